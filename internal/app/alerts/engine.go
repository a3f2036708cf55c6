// Package alerts turns inference results into severity-graded alerts,
// suppresses duplicates inside a cooldown window, and escalates the ones
// that cannot wait for the next sync pass.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Engine owns the active alert list. It is the only writer; consumers
// read via Active and acknowledge via Acknowledge.
type Engine struct {
	notifier ports.Notifier
	uploader ports.Uploader
	obs      ports.Observability
	cooldown time.Duration

	mu        sync.Mutex
	active    []domain.CriticalAlert
	lastFired map[dedupeKey]time.Time

	now func() time.Time
}

type dedupeKey struct {
	Type     domain.AlertType
	Severity domain.Severity
}

func NewEngine(notifier ports.Notifier, uploader ports.Uploader, obs ports.Observability, cooldown time.Duration) *Engine {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &Engine{
		notifier:  notifier,
		uploader:  uploader,
		obs:       obs,
		cooldown:  cooldown,
		lastFired: make(map[dedupeKey]time.Time),
		now:       time.Now,
	}
}

// Evaluate derives alerts from one inference pass. Returned alerts have
// already passed dedupe and joined the active list; auto-escalating ones
// have been handed to the notifier and the backend.
func (e *Engine) Evaluate(ctx context.Context, res domain.InferenceResult) []domain.CriticalAlert {
	var out []domain.CriticalAlert
	for _, c := range candidates(res) {
		if a, ok := e.raise(c); ok {
			out = append(out, a)
			if a.AutoEscalate {
				e.escalate(ctx, a)
			}
		}
	}
	return out
}

// candidate is an alert before id/timestamp assignment and dedupe.
type candidate struct {
	Type           domain.AlertType
	Severity       domain.Severity
	Message        string
	ActionRequired bool
	AutoEscalate   bool
}

// candidates applies the deterministic severity mapping. The mapping is
// monotone in the underlying signal: a stronger detection never yields a
// weaker severity.
func candidates(res domain.InferenceResult) []candidate {
	var out []candidate

	if res.HasArrhythmia && res.Arrhythmia.Detected {
		sev := domain.SeverityUrgent
		escalate := false
		if res.Arrhythmia.Confidence > 0.9 {
			sev = domain.SeverityEmergency
			escalate = true
		}
		out = append(out, candidate{
			Type:         domain.AlertCardiac,
			Severity:     sev,
			Message:      fmt.Sprintf("irregular heart rhythm detected (confidence %.2f)", res.Arrhythmia.Confidence),
			AutoEscalate: escalate,
		})
	}

	if res.HasSTElevation && res.STElevation.Detected {
		out = append(out, candidate{
			Type:           domain.AlertCardiac,
			Severity:       domain.SeverityEmergency,
			Message:        fmt.Sprintf("ST-segment elevation %.2f mV, possible myocardial infarction", res.STElevation.Elevation),
			ActionRequired: true,
			AutoEscalate:   true,
		})
	}

	if res.HasBloodPressure && res.BloodPressure.Category == domain.BPCrisis {
		out = append(out, candidate{
			Type:           domain.AlertCardiac,
			Severity:       domain.SeverityCritical,
			Message:        fmt.Sprintf("hypertensive crisis: %.0f/%.0f mmHg", res.BloodPressure.SystolicMmHg, res.BloodPressure.DiastolicMmHg),
			ActionRequired: true,
		})
	}

	if res.HasHypoglycemia {
		switch res.Hypoglycemia.Risk {
		case domain.HypoCritical:
			out = append(out, candidate{
				Type:           domain.AlertGlucose,
				Severity:       domain.SeverityEmergency,
				Message:        fmt.Sprintf("critical hypoglycemia risk: glucose %.0f mg/dL, trend %.1f", res.Hypoglycemia.GlucoseMgDL, res.Hypoglycemia.TrendMgDL),
				ActionRequired: true,
				AutoEscalate:   true,
			})
		case domain.HypoHigh:
			out = append(out, candidate{
				Type:     domain.AlertGlucose,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("high hypoglycemia risk: glucose %.0f mg/dL falling", res.Hypoglycemia.GlucoseMgDL),
			})
		case domain.HypoModerate:
			out = append(out, candidate{
				Type:     domain.AlertGlucose,
				Severity: domain.SeverityWarning,
				Message:  "glucose trending down",
			})
		}
	}

	if res.HasSpO2 {
		switch res.SpO2.Alert {
		case domain.SpO2Critical:
			out = append(out, candidate{
				Type:           domain.AlertRespiratory,
				Severity:       domain.SeverityEmergency,
				Message:        fmt.Sprintf("severe desaturation: SpO2 minimum %.0f%%", res.SpO2.MinPct),
				ActionRequired: true,
				AutoEscalate:   true,
			})
		case domain.SpO2Warning:
			out = append(out, candidate{
				Type:     domain.AlertRespiratory,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("low oxygen saturation: mean %.0f%%", res.SpO2.MeanPct),
			})
		}
	}

	if res.HasFall && res.Fall.Detected {
		out = append(out, candidate{
			Type:           domain.AlertFall,
			Severity:       domain.SeverityEmergency,
			Message:        fmt.Sprintf("fall detected, impact %.1fg", res.Fall.ImpactG),
			ActionRequired: true,
			AutoEscalate:   true,
		})
	}

	return out
}

// raise applies cooldown dedupe and registers the alert as active.
func (e *Engine) raise(c candidate) (domain.CriticalAlert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	key := dedupeKey{Type: c.Type, Severity: c.Severity}
	if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
		return domain.CriticalAlert{}, false
	}
	e.lastFired[key] = now

	a := domain.CriticalAlert{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		Type:           c.Type,
		Severity:       c.Severity,
		Message:        c.Message,
		ActionRequired: c.ActionRequired,
		AutoEscalate:   c.AutoEscalate,
	}
	e.active = append(e.active, a)
	e.obs.IncCounter("vitalflow_alerts_raised_total", 1)
	e.obs.SetGauge("vitalflow_alerts_active", float64(len(e.active)))
	e.obs.LogInfo("alert_raised",
		ports.Field{Key: "type", Value: string(a.Type)},
		ports.Field{Key: "severity", Value: string(a.Severity)})
	return a, true
}

// escalate delivers to the consumer layer and the backend. Backend
// failure is logged only; the alert is still persisted with critical
// priority and rides the next sync attempt.
func (e *Engine) escalate(ctx context.Context, a domain.CriticalAlert) {
	e.notifier.Deliver(a)
	if e.uploader != nil {
		if err := e.uploader.SendCriticalAlert(ctx, a); err != nil {
			e.obs.LogError("alert_escalation_failed", err,
				ports.Field{Key: "alert_id", Value: a.ID})
		}
	}
}

// Active returns a copy of the unacknowledged alert list, newest last.
func (e *Engine) Active() []domain.CriticalAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CriticalAlert, len(e.active))
	copy(out, e.active)
	return out
}

// Acknowledge removes an alert from the active list and clears its
// cooldown key: suppression only covers active, unacknowledged alerts,
// so a re-detection after acknowledgement fires again immediately.
// Acknowledging an unknown id is a no-op; the alert may have been
// acknowledged already.
func (e *Engine) Acknowledge(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, a := range e.active {
		if a.ID == id {
			e.active = append(e.active[:i], e.active[i+1:]...)
			delete(e.lastFired, dedupeKey{Type: a.Type, Severity: a.Severity})
			e.obs.SetGauge("vitalflow_alerts_active", float64(len(e.active)))
			return true
		}
	}
	return false
}
