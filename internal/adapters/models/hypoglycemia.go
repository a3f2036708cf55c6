package models

import (
	"sync"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// HypoglycemiaConfig calibrates the glucose-trend scorer. Trend is the
// total change across the last three readings; rate is the latest
// successive difference. Readings arrive at the biomarker cadence.
type HypoglycemiaConfig struct {
	WindowSize    int     `yaml:"window_size"`
	CriticalMgDL  float64 `yaml:"critical_mg_dl"`
	LowMgDL       float64 `yaml:"low_mg_dl"`
	CriticalTrend float64 `yaml:"critical_trend"`
	CriticalRate  float64 `yaml:"critical_rate"`
	HighTrend     float64 `yaml:"high_trend"`
	HighRate      float64 `yaml:"high_rate"`
	ModerateTrend float64 `yaml:"moderate_trend"`
}

func (c *HypoglycemiaConfig) ApplyDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 12
	}
	if c.CriticalMgDL == 0 {
		c.CriticalMgDL = 70
	}
	if c.LowMgDL == 0 {
		c.LowMgDL = 90
	}
	if c.CriticalTrend == 0 {
		c.CriticalTrend = -10
	}
	if c.CriticalRate == 0 {
		c.CriticalRate = -5
	}
	if c.HighTrend == 0 {
		c.HighTrend = -5
	}
	if c.HighRate == 0 {
		c.HighRate = -2
	}
	if c.ModerateTrend == 0 {
		c.ModerateTrend = -2
	}
}

// Hypoglycemia keeps its own rolling window of glucose readings; Observe
// and Predict may run from different pipeline passes.
type Hypoglycemia struct {
	cfg HypoglycemiaConfig

	mu       sync.Mutex
	readings []float64
	seen     int
}

func NewHypoglycemia(cfg HypoglycemiaConfig) *Hypoglycemia {
	cfg.ApplyDefaults()
	return &Hypoglycemia{cfg: cfg}
}

func (m *Hypoglycemia) Observe(glucoseMgDL float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, glucoseMgDL)
	if len(m.readings) > m.cfg.WindowSize {
		m.readings = m.readings[1:]
	}
	m.seen++
}

// Predict grades hypoglycemia risk from the current value, the trend over
// the last three readings, and the latest rate of change:
//
//	critical: current < 70, or trend <= -10 with rate <= -5
//	high:     current < 90, or trend <= -5 with rate <= -2
//	moderate: trend <= -2
//	low:      otherwise
func (m *Hypoglycemia) Predict() domain.HypoglycemiaResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := domain.HypoglycemiaResult{Risk: domain.HypoLow, SamplesSeen: m.seen}
	n := len(m.readings)
	if n == 0 {
		return res
	}

	current := m.readings[n-1]
	res.GlucoseMgDL = current
	if n < 3 {
		if current < m.cfg.CriticalMgDL {
			res.Risk = domain.HypoCritical
		}
		return res
	}

	trend := current - m.readings[n-3]
	rate := current - m.readings[n-2]
	res.TrendMgDL = trend
	res.RateMgDLMin = rate

	switch {
	case current < m.cfg.CriticalMgDL,
		trend <= m.cfg.CriticalTrend && rate <= m.cfg.CriticalRate:
		res.Risk = domain.HypoCritical
	case current < m.cfg.LowMgDL,
		trend <= m.cfg.HighTrend && rate <= m.cfg.HighRate:
		res.Risk = domain.HypoHigh
	case trend <= m.cfg.ModerateTrend:
		res.Risk = domain.HypoModerate
	}
	return res
}
