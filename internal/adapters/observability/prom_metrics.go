// Package observability wires structured logging and Prometheus metrics
// behind the ports.Observability interface.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/halcyonlabs/vitalflow/internal/ports"
)

type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	drops    *prometheus.CounterVec
}

// NewPromObs registers the pipeline metric set on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewPromObs(log *zap.Logger, reg prometheus.Registerer) *PromObs {
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vitalflow_packets_processed_total",
		Help: "Sensor packets fully processed through the pipeline.",
	})
	alerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vitalflow_alerts_raised_total",
		Help: "Critical alerts emitted after cooldown dedupe.",
	})
	synced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vitalflow_records_synced_total",
		Help: "Stored records acknowledged by the backend.",
	})
	writeFails := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vitalflow_store_write_failures_total",
		Help: "Record writes that fell back to the in-memory buffer.",
	})
	storeSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vitalflow_store_size_bytes",
		Help: "Approximate size of the offline record store.",
	})
	unsynced := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vitalflow_store_unsynced_records",
		Help: "Records waiting for backend acknowledgement.",
	})
	battery := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vitalflow_battery_percent",
		Help: "Battery level reported by the last sensor packet.",
	})
	queueLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vitalflow_intake_queue_length",
		Help: "Frames buffered between transport and the worker pool.",
	})
	activeAlerts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vitalflow_alerts_active",
		Help: "Alerts raised and not yet acknowledged.",
	})
	budgetMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vitalflow_infer_budget_misses_total",
		Help: "Model scores that finished after the inference budget.",
	})
	inferLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vitalflow_infer_latency_seconds",
		Help:    "Wall time of one inference pass across all models.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	pipeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vitalflow_pipeline_latency_seconds",
		Help:    "Frame arrival to snapshot publication.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vitalflow_drops_total",
		Help: "Frames or records discarded, by reason.",
	}, []string{"reason"})

	reg.MustRegister(processed, alerts, synced, writeFails, budgetMisses,
		storeSize, unsynced, battery, queueLen, activeAlerts, inferLatency,
		pipeLatency, drops)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"vitalflow_packets_processed_total":    processed,
			"vitalflow_alerts_raised_total":        alerts,
			"vitalflow_records_synced_total":       synced,
			"vitalflow_store_write_failures_total": writeFails,
			"vitalflow_infer_budget_misses_total":  budgetMisses,
		},
		gauges: map[string]prometheus.Gauge{
			"vitalflow_store_size_bytes":       storeSize,
			"vitalflow_store_unsynced_records": unsynced,
			"vitalflow_battery_percent":        battery,
			"vitalflow_intake_queue_length":    queueLen,
			"vitalflow_alerts_active":          activeAlerts,
		},
		histos: map[string]prometheus.Observer{
			"vitalflow_infer_latency_seconds":    inferLatency,
			"vitalflow_pipeline_latency_seconds": pipeLatency,
		},
		drops: drops,
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	// DPanic keeps production alive while failing loudly under tests.
	p.log.DPanic(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(reason string, err error) {
	p.drops.WithLabelValues(reason).Inc()
	p.log.Warn("dropped", zap.String("reason", reason), zap.Error(err))
}

var _ ports.Observability = (*PromObs)(nil)
