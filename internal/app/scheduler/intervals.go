// Package scheduler derives pass cadences from battery level and risk,
// and owns the periodic timers that drive them.
package scheduler

import (
	"time"

	"github.com/halcyonlabs/vitalflow/internal/app/config"
	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// Intervals is the derived cadence for the four periodic tasks.
type Intervals struct {
	Vitals     time.Duration
	Biomarkers time.Duration
	Pattern    time.Duration
	Sync       time.Duration
}

// ComputeIntervals is a pure function of configuration, battery and
// risk. Low battery stretches every cadence (x2 below the low
// threshold, x4 below the critical threshold). Critical risk halves the
// vitals and pattern cadences, but only on healthy battery: the battery
// stretch is a floor that risk never shortens below.
func ComputeIntervals(cfg config.SchedulerConfig, batteryPct float64, risk domain.RiskLevel) Intervals {
	scale := time.Duration(1)
	switch {
	case batteryPct < cfg.BatteryCriticalPct:
		scale = 4
	case batteryPct < cfg.BatteryLowPct:
		scale = 2
	}

	iv := Intervals{
		Vitals:     cfg.VitalsInterval * scale,
		Biomarkers: cfg.BiomarkersInterval * scale,
		Pattern:    cfg.PatternInterval * scale,
		Sync:       cfg.SyncInterval * scale,
	}

	if risk == domain.RiskCritical && scale == 1 {
		iv.Vitals /= 2
		iv.Pattern /= 2
	}
	return iv
}
