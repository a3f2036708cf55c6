package scheduler

import (
	"sync"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/app/config"
	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Task names one periodic cadence.
type Task string

const (
	TaskVitals     Task = "vitals"
	TaskBiomarkers Task = "biomarkers"
	TaskPattern    Task = "pattern"
	TaskSync       Task = "sync"
)

// Scheduler recomputes intervals on every Update and replaces the
// running timers when they change. At most one timer per task exists at
// any moment.
type Scheduler struct {
	cfg config.SchedulerConfig
	obs ports.Observability

	mu      sync.Mutex
	tasks   map[Task]func()
	cancels map[Task]chan struct{}
	current Intervals
	stopped bool
}

func New(cfg config.SchedulerConfig, obs ports.Observability) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		obs:     obs,
		tasks:   make(map[Task]func()),
		cancels: make(map[Task]chan struct{}),
	}
}

// Register binds a task callback. Must be called before Start; the
// callback runs on the timer goroutine and should hand work off quickly.
func (s *Scheduler) Register(t Task, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t] = fn
}

// Start launches timers at full-battery, low-risk cadence.
func (s *Scheduler) Start() {
	s.Update(100, domain.RiskLow)
}

// Update recomputes intervals from the new battery/risk state. Timers
// are replaced only when the derived cadence actually changed, so
// jittery battery readings do not churn tickers.
func (s *Scheduler) Update(batteryPct float64, risk domain.RiskLevel) {
	iv := ComputeIntervals(s.cfg, batteryPct, risk)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || iv == s.current {
		return
	}
	s.current = iv

	s.obs.LogInfo("cadence_changed",
		ports.Field{Key: "battery_pct", Value: batteryPct},
		ports.Field{Key: "risk", Value: string(risk)},
		ports.Field{Key: "vitals", Value: iv.Vitals.String()},
		ports.Field{Key: "sync", Value: iv.Sync.String()})

	s.scheduleLocked(TaskVitals, iv.Vitals)
	s.scheduleLocked(TaskBiomarkers, iv.Biomarkers)
	s.scheduleLocked(TaskPattern, iv.Pattern)
	s.scheduleLocked(TaskSync, iv.Sync)
}

// Intervals returns the cadence currently in force.
func (s *Scheduler) Intervals() Intervals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// scheduleLocked replaces the timer for one task. Caller holds s.mu.
func (s *Scheduler) scheduleLocked(t Task, d time.Duration) {
	fn, ok := s.tasks[t]
	if !ok || d <= 0 {
		return
	}
	if old, ok := s.cancels[t]; ok {
		close(old)
	}

	done := make(chan struct{})
	s.cancels[t] = done
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop cancels every timer. Further Updates are ignored; in-flight task
// callbacks finish but no new ticks fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for t, done := range s.cancels {
		close(done)
		delete(s.cancels, t)
	}
}
