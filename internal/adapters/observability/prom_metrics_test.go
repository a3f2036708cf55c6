package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(zap.NewNop(), reg)

	obs.IncCounter("vitalflow_packets_processed_total", 5)
	if got := testutil.ToFloat64(obs.counters["vitalflow_packets_processed_total"]); got != 5 {
		t.Fatalf("expected processed counter 5, got %f", got)
	}

	obs.IncCounter("vitalflow_alerts_raised_total", 2)
	if got := testutil.ToFloat64(obs.counters["vitalflow_alerts_raised_total"]); got != 2 {
		t.Fatalf("expected alert counter 2, got %f", got)
	}

	obs.SetGauge("vitalflow_store_size_bytes", 42)
	if got := testutil.ToFloat64(obs.gauges["vitalflow_store_size_bytes"]); got != 42 {
		t.Fatalf("expected store size gauge 42, got %f", got)
	}

	obs.ObserveLatency("vitalflow_infer_latency_seconds", 0.05)
	hCollector := obs.histos["vitalflow_infer_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.RecordDrop("queue_full", nil)
	if got := testutil.ToFloat64(obs.drops.WithLabelValues("queue_full")); got != 1 {
		t.Fatalf("expected drop counter 1, got %f", got)
	}
}

func TestPromObsIgnoresUnknownNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(zap.NewNop(), reg)

	// Unknown names are a wiring bug, not a crash.
	obs.IncCounter("no_such_counter", 1)
	obs.SetGauge("no_such_gauge", 1)
	obs.ObserveLatency("no_such_histogram", 1)
}
