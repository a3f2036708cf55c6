// Package pipeline wires the packet path: sealed frame in, snapshot and
// alerts out, derived records persisted. It is the single writer of the
// metrics snapshot.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/adapters/codec"
	"github.com/halcyonlabs/vitalflow/internal/adapters/dsp"
	"github.com/halcyonlabs/vitalflow/internal/adapters/features"
	"github.com/halcyonlabs/vitalflow/internal/app/alerts"
	"github.com/halcyonlabs/vitalflow/internal/app/inference"
	"github.com/halcyonlabs/vitalflow/internal/app/scheduler"
	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// ErrIntakeFull is returned by Ingest under the "drop" policy when the
// frame queue is at capacity.
var ErrIntakeFull = errors.New("pipeline: intake queue full")

// ErrStopped is returned by Ingest after Stop.
var ErrStopped = errors.New("pipeline: stopped")

type Config struct {
	Workers         int
	Intake          ports.IntakePolicy
	ECGSampleRateHz float64
}

// Pipeline consumes sealed frames through a bounded intake and a worker
// pool. Each frame runs decode, condition, extract, infer, then commits
// a whole-replace snapshot update and feeds the alert engine.
type Pipeline struct {
	cfg    Config
	codec  *codec.Codec
	cond   *dsp.Conditioner
	extr   *features.Extractor
	orch   *inference.Orchestrator
	models ports.ModelSet
	alerts *alerts.Engine
	store  ports.RecordStore
	sched  *scheduler.Scheduler
	obs    ports.Observability

	intake  chan []byte
	done    chan struct{}
	passSeq atomic.Uint64
	stopped atomic.Bool
	wg      sync.WaitGroup

	// commitMu serializes snapshot writes; readers go through the atomic
	// pointer and never block.
	commitMu  sync.Mutex
	snapshot  atomic.Pointer[domain.MetricsSnapshot]
	lastRes   domain.InferenceResult
	lastSig   domain.ConditionedSignals
	lastFeats domain.FeatureSet
	lastPkt   domain.SensorPacket
}

func New(cfg Config, c *codec.Codec, cond *dsp.Conditioner, extr *features.Extractor,
	models ports.ModelSet, eng *alerts.Engine, store ports.RecordStore,
	sched *scheduler.Scheduler, budget time.Duration, obs ports.Observability) *Pipeline {

	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Intake.MaxQueueLen <= 0 {
		cfg.Intake.MaxQueueLen = 256
	}
	if cfg.Intake.IdleSleep <= 0 {
		cfg.Intake.IdleSleep = 5 * time.Millisecond
	}
	if cfg.ECGSampleRateHz <= 0 {
		cfg.ECGSampleRateHz = 250
	}

	p := &Pipeline{
		cfg:    cfg,
		codec:  c,
		cond:   cond,
		extr:   extr,
		models: models,
		alerts: eng,
		store:  store,
		sched:  sched,
		obs:    obs,
		intake: make(chan []byte, cfg.Intake.MaxQueueLen),
		done:   make(chan struct{}),
	}
	p.orch = inference.NewOrchestrator(models, budget, obs, p.applyLate)
	return p
}

// Start launches the worker pool. Workers exit when ctx is canceled or
// Stop is called.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.done:
					return
				case frame := <-p.intake:
					p.process(ctx, frame)
				}
			}
		}()
	}
}

// Stop marks the pipeline stopped and waits for in-flight work. It does
// not depend on the worker context being canceled. Results that complete
// after Stop are discarded rather than written to the snapshot.
func (p *Pipeline) Stop() {
	if p.stopped.CompareAndSwap(false, true) {
		close(p.done)
	}
	p.wg.Wait()
}

// Ingest hands one sealed frame to the worker pool, honoring the intake
// policy: "block" waits for capacity, "drop" fails fast with
// ErrIntakeFull.
func (p *Pipeline) Ingest(frame []byte) error {
	if p.stopped.Load() {
		return ErrStopped
	}
	switch p.cfg.Intake.OnQueueFull {
	case "block":
		for {
			select {
			case p.intake <- frame:
				p.obs.SetGauge("vitalflow_intake_queue_length", float64(len(p.intake)))
				return nil
			default:
				if p.stopped.Load() {
					return ErrStopped
				}
				time.Sleep(p.cfg.Intake.IdleSleep)
			}
		}
	default:
		select {
		case p.intake <- frame:
			p.obs.SetGauge("vitalflow_intake_queue_length", float64(len(p.intake)))
			return nil
		default:
			p.obs.RecordDrop("intake_full", nil)
			return ErrIntakeFull
		}
	}
}

// Snapshot returns the last committed snapshot by value; the zero value
// before the first pass commits.
func (p *Pipeline) Snapshot() domain.MetricsSnapshot {
	if s := p.snapshot.Load(); s != nil {
		return *s
	}
	return domain.MetricsSnapshot{}
}

func (p *Pipeline) process(ctx context.Context, frame []byte) {
	start := time.Now()

	pkt, err := p.codec.Decode(frame)
	if err != nil {
		// Tampered or corrupt frames are not recoverable; the source has
		// already moved past them.
		switch {
		case errors.Is(err, codec.ErrAuthenticationFailed):
			p.obs.RecordDrop("auth_failed", err)
		case errors.Is(err, codec.ErrCorruptFrame):
			p.obs.RecordDrop("corrupt_frame", err)
		default:
			p.obs.RecordDrop("malformed_packet", err)
		}
		return
	}

	if pkt.HasGlucose && p.models.Hypoglycemia != nil {
		p.models.Hypoglycemia.Observe(float64(pkt.Glucose))
	}
	if pkt.HasSpO2 && p.models.SpO2 != nil {
		p.models.SpO2.Observe(float64(pkt.SpO2))
	}

	sig := p.cond.Condition(pkt.ECG, pkt.PPG)
	feats := p.extr.Extract(sig)

	pass := p.passSeq.Add(1)
	res := p.orch.Run(ctx, pass, sig, feats, pkt)

	p.commit(ctx, pkt, sig, feats, res)

	p.obs.IncCounter("vitalflow_packets_processed_total", 1)
	p.obs.ObserveLatency("vitalflow_pipeline_latency_seconds", time.Since(start).Seconds())
}

// commit publishes one pass. A pass older than the committed snapshot is
// discarded so the snapshot only moves forward in arrival order.
func (p *Pipeline) commit(ctx context.Context, pkt domain.SensorPacket, sig domain.ConditionedSignals, feats domain.FeatureSet, res domain.InferenceResult) {
	if p.stopped.Load() {
		return
	}

	p.commitMu.Lock()
	cur := p.snapshot.Load()
	if cur != nil && res.Pass < cur.Pass {
		p.commitMu.Unlock()
		p.obs.RecordDrop("stale_pass", nil)
		return
	}

	snap := domain.MetricsSnapshot{}
	if cur != nil {
		snap = *cur
	}
	if feats.Usable {
		snap.MeanRRMs = feats.MeanRRMs
		snap.SDNNMs = feats.SDNNMs
		snap.RMSSDMs = feats.RMSSDMs
		snap.LFHFRatio = feats.LFHFRatio
		snap.SampleEntropy = feats.SampleEntropy
		if feats.MeanRRMs > 0 {
			snap.HeartRateBPM = 60000 / feats.MeanRRMs
		}
	}
	if rr := estimateRespRate(sig.ECG, p.cfg.ECGSampleRateHz); rr > 0 {
		snap.RespiratoryRate = rr
	}
	if pkt.HasGlucose {
		snap.GlucoseMgDL = float64(pkt.Glucose)
	}
	if pkt.HasSpO2 {
		snap.SpO2Pct = float64(pkt.SpO2)
	}
	snap.BatteryPct = pkt.BatteryPct
	applyModelResults(&snap, res)
	snap.UpdatedAt = time.Now()
	snap.Pass = res.Pass

	p.snapshot.Store(&snap)
	p.lastRes = res
	p.lastSig = sig
	p.lastFeats = feats
	p.lastPkt = pkt
	p.commitMu.Unlock()

	p.obs.SetGauge("vitalflow_battery_percent", float64(pkt.BatteryPct))

	raised := p.alerts.Evaluate(ctx, res)
	for _, a := range raised {
		prio := domain.PriorityHigh
		if a.AutoEscalate {
			prio = domain.PriorityCritical
		}
		p.persist(ctx, domain.RecordAlert, a, prio)
	}

	p.persist(ctx, domain.RecordEdgePrediction, res, domain.PriorityNormal)
	p.sched.Update(float64(pkt.BatteryPct), snap.Risk)
}

// applyLate folds a model result that missed the budget back into the
// snapshot, but only while its pass is still the committed one; a newer
// pass supersedes it.
func (p *Pipeline) applyLate(pass uint64, patch inference.Patch) {
	if p.stopped.Load() {
		return
	}

	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	cur := p.snapshot.Load()
	if cur == nil || cur.Pass != pass {
		p.obs.RecordDrop("late_result_superseded", nil)
		return
	}

	patch(&p.lastRes)
	snap := *cur
	applyModelResults(&snap, p.lastRes)
	snap.UpdatedAt = time.Now()
	p.snapshot.Store(&snap)
}

// applyModelResults writes model-derived snapshot fields. Fields whose
// model was unavailable this pass keep their last-known value.
func applyModelResults(snap *domain.MetricsSnapshot, res domain.InferenceResult) {
	if res.HasArrhythmia {
		snap.ArrhythmiaDetected = res.Arrhythmia.Detected
		snap.ArrhythmiaConfidence = res.Arrhythmia.Confidence
	}
	if res.HasSTElevation {
		snap.STElevation = res.STElevation.Detected
	}
	if res.HasBloodPressure {
		snap.SystolicMmHg = res.BloodPressure.SystolicMmHg
		snap.DiastolicMmHg = res.BloodPressure.DiastolicMmHg
		snap.BPCategory = res.BloodPressure.Category
	}
	if res.HasHypoglycemia {
		snap.HypoRisk = res.Hypoglycemia.Risk
		snap.GlucoseTrend = res.Hypoglycemia.TrendMgDL
		if res.Hypoglycemia.GlucoseMgDL > 0 {
			snap.GlucoseMgDL = res.Hypoglycemia.GlucoseMgDL
		}
	}
	if res.HasSpO2 {
		snap.SpO2Alert = res.SpO2.Alert
	}
	if res.HasFall {
		snap.FallDetected = res.Fall.Detected
	}
	snap.Risk = res.Risk()
	snap.TroponinProxy = troponinProxy(res, *snap)
}

// troponinProxy composes a 0..1 cardiac-injury risk score from the
// ST-segment magnitude, arrhythmia confidence and BP staging. It is a
// proxy, not a measurement; the backend recalibrates against labs.
func troponinProxy(res domain.InferenceResult, snap domain.MetricsSnapshot) float64 {
	st := 0.0
	if snap.STElevation {
		st = 1
		if res.HasSTElevation && res.STElevation.Elevation < 0.5 {
			st = res.STElevation.Elevation / 0.5
		}
	}
	bp := 0.0
	switch snap.BPCategory {
	case domain.BPCrisis:
		bp = 1
	case domain.BPStage2:
		bp = 0.5
	}
	score := 0.5*st + 0.3*snap.ArrhythmiaConfidence + 0.2*bp
	if score > 1 {
		score = 1
	}
	return score
}

// estimateRespRate derives a respiration estimate from the slow
// amplitude modulation of the conditioned ECG (EDR). Returns 0 when the
// segment is too short to hold a full breath.
func estimateRespRate(ecg []float32, sampleRateHz float64) float64 {
	if sampleRateHz <= 0 {
		return 0
	}
	durationSec := float64(len(ecg)) / sampleRateHz
	if durationSec < 5 {
		return 0
	}

	// Envelope via two cascaded 1 s moving averages of |x|. A single
	// pass leaves carrier rectification ripple above the respiratory
	// band; the second pass squares the stopband attenuation while the
	// sub-0.5 Hz breath modulation passes nearly intact.
	win := int(sampleRateHz)
	rect := make([]float64, len(ecg))
	for i, v := range ecg {
		x := float64(v)
		if x < 0 {
			x = -x
		}
		rect[i] = x
	}
	env := movingAverage(movingAverage(rect, win), win)

	mean := meanOf(env)
	crossings := 0
	for i := 1; i < len(env); i++ {
		if env[i-1] < mean && env[i] >= mean {
			crossings++
		}
	}
	return float64(crossings) / durationSec * 60
}

func movingAverage(xs []float64, win int) []float64 {
	out := make([]float64, len(xs))
	var sum float64
	for i, x := range xs {
		sum += x
		if i >= win {
			sum -= xs[i-win]
		}
		n := i + 1
		if n > win {
			n = win
		}
		out[i] = sum / float64(n)
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func (p *Pipeline) persist(ctx context.Context, t domain.RecordType, v any, prio domain.Priority) {
	raw, err := json.Marshal(v)
	if err != nil {
		p.obs.LogError("record_marshal_failed", err)
		return
	}
	if _, err := p.store.Persist(ctx, t, raw, prio); err != nil {
		p.obs.LogError("record_persist_failed", err,
			ports.Field{Key: "data_type", Value: string(t)})
	}
}

// VitalsPass persists the current snapshot as a vital-signs record. The
// scheduler drives it at the vitals cadence.
func (p *Pipeline) VitalsPass(ctx context.Context) {
	snap := p.Snapshot()
	if snap.Pass == 0 {
		return
	}
	p.persist(ctx, domain.RecordVitalSigns, snap, domain.PriorityNormal)
}

// BiomarkersPass re-runs the trend models on their rolling windows and
// persists a biomarker record. Runs without a fresh packet.
func (p *Pipeline) BiomarkersPass(ctx context.Context) {
	if p.stopped.Load() {
		return
	}

	pkt := domain.SensorPacket{}
	if p.models.Hypoglycemia != nil {
		pkt.HasGlucose = true
	}
	if p.models.SpO2 != nil {
		pkt.HasSpO2 = true
	}

	pass := p.passSeq.Add(1)
	res := p.orch.Run(ctx, pass, domain.ConditionedSignals{}, domain.FeatureSet{}, pkt)
	p.commitTrend(ctx, res)
	p.persist(ctx, domain.RecordBiomarkers, res, domain.PriorityNormal)
}

// PatternPass re-scores the cardiac models against the last conditioned
// packet, catching slow-building patterns between packets.
func (p *Pipeline) PatternPass(ctx context.Context) {
	if p.stopped.Load() {
		return
	}

	p.commitMu.Lock()
	sig := p.lastSig
	feats := p.lastFeats
	p.commitMu.Unlock()
	if !feats.Usable {
		return
	}

	pass := p.passSeq.Add(1)
	res := p.orch.Run(ctx, pass, sig, feats, domain.SensorPacket{})
	p.commitTrend(ctx, res)
}

// commitTrend publishes a scheduler-driven pass that carries no new raw
// packet: only model-derived fields move.
func (p *Pipeline) commitTrend(ctx context.Context, res domain.InferenceResult) {
	if p.stopped.Load() {
		return
	}

	p.commitMu.Lock()
	cur := p.snapshot.Load()
	if cur != nil && res.Pass < cur.Pass {
		p.commitMu.Unlock()
		return
	}
	snap := domain.MetricsSnapshot{}
	if cur != nil {
		snap = *cur
	}
	applyModelResults(&snap, res)
	snap.UpdatedAt = time.Now()
	snap.Pass = res.Pass
	p.snapshot.Store(&snap)
	p.lastRes = res
	p.commitMu.Unlock()

	for _, a := range p.alerts.Evaluate(ctx, res) {
		prio := domain.PriorityHigh
		if a.AutoEscalate {
			prio = domain.PriorityCritical
		}
		p.persist(ctx, domain.RecordAlert, a, prio)
	}
	p.sched.Update(float64(snap.BatteryPct), snap.Risk)
}
