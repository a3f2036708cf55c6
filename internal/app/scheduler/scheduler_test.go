package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/app/config"
	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}
func (nopObs) RecordDrop(string, error)                  {}

func baseCfg() config.SchedulerConfig {
	return config.SchedulerConfig{
		VitalsInterval:     30 * time.Second,
		BiomarkersInterval: 5 * time.Minute,
		PatternInterval:    time.Minute,
		SyncInterval:       5 * time.Minute,
		BatteryLowPct:      20,
		BatteryCriticalPct: 10,
	}
}

func TestComputeIntervalsBaseline(t *testing.T) {
	iv := ComputeIntervals(baseCfg(), 80, domain.RiskLow)
	if iv.Vitals != 30*time.Second {
		t.Fatalf("expected vitals 30s, got %s", iv.Vitals)
	}
	if iv.Biomarkers != 5*time.Minute {
		t.Fatalf("expected biomarkers 5m, got %s", iv.Biomarkers)
	}
	if iv.Pattern != time.Minute {
		t.Fatalf("expected pattern 60s, got %s", iv.Pattern)
	}
	if iv.Sync != 5*time.Minute {
		t.Fatalf("expected sync 5m, got %s", iv.Sync)
	}
}

func TestComputeIntervalsLowBatteryDoubles(t *testing.T) {
	iv := ComputeIntervals(baseCfg(), 15, domain.RiskLow)
	if iv.Vitals != time.Minute {
		t.Fatalf("expected vitals 60s at low battery, got %s", iv.Vitals)
	}
	if iv.Sync != 10*time.Minute {
		t.Fatalf("expected sync 10m at low battery, got %s", iv.Sync)
	}
}

func TestComputeIntervalsCriticalBatteryQuadruples(t *testing.T) {
	iv := ComputeIntervals(baseCfg(), 5, domain.RiskLow)
	if iv.Vitals != 2*time.Minute {
		t.Fatalf("expected vitals 120s at critical battery, got %s", iv.Vitals)
	}
}

func TestComputeIntervalsCriticalRiskHalvesVitalsAndPattern(t *testing.T) {
	iv := ComputeIntervals(baseCfg(), 80, domain.RiskCritical)
	if iv.Vitals != 15*time.Second {
		t.Fatalf("expected vitals 15s at critical risk, got %s", iv.Vitals)
	}
	if iv.Pattern != 30*time.Second {
		t.Fatalf("expected pattern 30s at critical risk, got %s", iv.Pattern)
	}
	// Biomarkers and sync are unaffected by risk.
	if iv.Biomarkers != 5*time.Minute || iv.Sync != 5*time.Minute {
		t.Fatalf("expected biomarkers/sync unchanged, got %s/%s", iv.Biomarkers, iv.Sync)
	}
}

func TestBatteryFloorDominatesRiskShortening(t *testing.T) {
	// Battery at 15% with critical risk: the low-battery stretch wins and
	// vitals stay at 60s rather than dropping to 30s.
	iv := ComputeIntervals(baseCfg(), 15, domain.RiskCritical)
	if iv.Vitals != time.Minute {
		t.Fatalf("expected vitals 60s, got %s", iv.Vitals)
	}
	if iv.Pattern != 2*time.Minute {
		t.Fatalf("expected pattern 120s, got %s", iv.Pattern)
	}
}

func TestSchedulerFiresRegisteredTask(t *testing.T) {
	cfg := baseCfg()
	cfg.VitalsInterval = 10 * time.Millisecond

	var fired atomic.Int64
	s := New(cfg, nopObs{})
	s.Register(TaskVitals, func() { fired.Add(1) })
	s.Start()
	defer s.Stop()

	deadline := time.After(time.Second)
	for fired.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("vitals task never fired twice")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerReplaceDoesNotDuplicateTimers(t *testing.T) {
	cfg := baseCfg()
	cfg.VitalsInterval = 20 * time.Millisecond

	var fired atomic.Int64
	s := New(cfg, nopObs{})
	s.Register(TaskVitals, func() { fired.Add(1) })
	s.Start()
	defer s.Stop()

	// Churn battery state; each change replaces, never adds, timers.
	for i := 0; i < 10; i++ {
		s.Update(15, domain.RiskLow)
		s.Update(80, domain.RiskLow)
	}

	fired.Store(0)
	time.Sleep(110 * time.Millisecond)
	// One 20ms timer over ~110ms fires at most 6 times; duplicated timers
	// would multiply that.
	if n := fired.Load(); n > 8 {
		t.Fatalf("expected at most 8 ticks from a single timer, got %d", n)
	}
}

func TestSchedulerUnchangedIntervalsKeepTimers(t *testing.T) {
	s := New(baseCfg(), nopObs{})
	s.Register(TaskVitals, func() {})
	s.Start()
	defer s.Stop()

	before := s.Intervals()
	s.Update(90, domain.RiskLow) // same cadence as 100%
	if s.Intervals() != before {
		t.Fatal("expected intervals unchanged for same battery band")
	}
}

func TestSchedulerStopCancelsAll(t *testing.T) {
	cfg := baseCfg()
	cfg.VitalsInterval = 10 * time.Millisecond

	var fired atomic.Int64
	s := New(cfg, nopObs{})
	s.Register(TaskVitals, func() { fired.Add(1) })
	s.Start()
	s.Stop()

	// A tick already in flight at Stop may still land; let it settle.
	time.Sleep(20 * time.Millisecond)
	settled := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != settled {
		t.Fatal("task fired after Stop")
	}

	// Updates after Stop must not revive timers.
	s.Update(5, domain.RiskCritical)
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != settled {
		t.Fatal("update after Stop revived a timer")
	}
}
