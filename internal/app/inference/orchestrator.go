// Package inference fans one conditioned packet out over the scoring
// models in parallel and enforces the per-pass latency budget.
package inference

import (
	"context"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Patch applies one model's output to an aggregate result.
type Patch func(*domain.InferenceResult)

// LateFunc receives a model result that finished after the budget
// expired, together with the pass it belongs to. The receiver decides
// whether the result is still current enough to apply.
type LateFunc func(pass uint64, p Patch)

// Orchestrator runs every applicable model concurrently and collects
// results until the budget runs out. A model that misses the budget
// leaves its Has* flag false for the pass; its eventual output is handed
// to the LateFunc instead of being discarded.
type Orchestrator struct {
	models ports.ModelSet
	budget time.Duration
	obs    ports.Observability
	onLate LateFunc
}

func NewOrchestrator(models ports.ModelSet, budget time.Duration, obs ports.Observability, onLate LateFunc) *Orchestrator {
	if budget <= 0 {
		budget = 100 * time.Millisecond
	}
	return &Orchestrator{models: models, budget: budget, obs: obs, onLate: onLate}
}

type scored struct {
	name  string
	patch Patch
}

// Run scores one pass. Trend models must have been fed via Observe
// before the call. The returned result always carries Pass and Elapsed;
// individual Has* flags depend on input availability and the budget.
func (o *Orchestrator) Run(ctx context.Context, pass uint64, sig domain.ConditionedSignals, feats domain.FeatureSet, pkt domain.SensorPacket) domain.InferenceResult {
	res := domain.InferenceResult{Pass: pass, StartedAt: time.Now()}

	ch := make(chan scored, 6)
	launched := 0
	launch := func(name string, score func() Patch) {
		launched++
		go func() {
			ch <- scored{name: name, patch: score()}
		}()
	}

	if o.models.Arrhythmia != nil && feats.Usable {
		launch("arrhythmia", func() Patch {
			out := o.models.Arrhythmia.Score(feats)
			return func(r *domain.InferenceResult) { r.Arrhythmia, r.HasArrhythmia = out, true }
		})
	}
	if o.models.STElevation != nil && feats.Usable {
		launch("st_elevation", func() Patch {
			out := o.models.STElevation.Score(sig, feats)
			return func(r *domain.InferenceResult) { r.STElevation, r.HasSTElevation = out, true }
		})
	}
	if o.models.BloodPressure != nil && feats.Usable && feats.PTTProxy > 0 {
		launch("blood_pressure", func() Patch {
			out := o.models.BloodPressure.Estimate(feats)
			return func(r *domain.InferenceResult) { r.BloodPressure, r.HasBloodPressure = out, true }
		})
	}
	if o.models.Hypoglycemia != nil && pkt.HasGlucose {
		launch("hypoglycemia", func() Patch {
			out := o.models.Hypoglycemia.Predict()
			return func(r *domain.InferenceResult) { r.Hypoglycemia, r.HasHypoglycemia = out, true }
		})
	}
	if o.models.SpO2 != nil && pkt.HasSpO2 {
		launch("spo2", func() Patch {
			out := o.models.SpO2.Detect()
			return func(r *domain.InferenceResult) { r.SpO2, r.HasSpO2 = out, true }
		})
	}
	if o.models.Fall != nil && len(pkt.Accel) > 0 {
		launch("fall", func() Patch {
			out := o.models.Fall.Score(pkt.Accel)
			return func(r *domain.InferenceResult) { r.Fall, r.HasFall = out, true }
		})
	}

	timer := time.NewTimer(o.budget)
	defer timer.Stop()

	received := 0
collect:
	for received < launched {
		select {
		case s := <-ch:
			s.patch(&res)
			received++
		case <-timer.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if missing := launched - received; missing > 0 {
		o.obs.IncCounter("vitalflow_infer_budget_misses_total", float64(missing))
		go o.drainLate(ctx, pass, ch, missing)
	}

	res.Elapsed = time.Since(res.StartedAt)
	o.obs.ObserveLatency("vitalflow_infer_latency_seconds", res.Elapsed.Seconds())
	return res
}

// drainLate collects stragglers so their goroutines never leak, handing
// each to the LateFunc when one is configured.
func (o *Orchestrator) drainLate(ctx context.Context, pass uint64, ch <-chan scored, n int) {
	for i := 0; i < n; i++ {
		select {
		case s := <-ch:
			if o.onLate != nil {
				o.onLate(pass, s.patch)
			}
		case <-ctx.Done():
			return
		}
	}
}
