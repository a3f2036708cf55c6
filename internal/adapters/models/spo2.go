package models

import (
	"sync"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// SpO2Config calibrates the desaturation scorer over its 5-sample window.
type SpO2Config struct {
	WindowSize  int     `yaml:"window_size"`
	CriticalMin float64 `yaml:"critical_min"`
	WarningMean float64 `yaml:"warning_mean"`
}

func (c *SpO2Config) ApplyDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 5
	}
	if c.CriticalMin == 0 {
		c.CriticalMin = 85
	}
	if c.WarningMean == 0 {
		c.WarningMean = 92
	}
}

// SpO2 keeps a rolling window of saturation samples.
type SpO2 struct {
	cfg SpO2Config

	mu      sync.Mutex
	samples []float64
}

func NewSpO2(cfg SpO2Config) *SpO2 {
	cfg.ApplyDefaults()
	return &SpO2{cfg: cfg}
}

func (m *SpO2) Observe(spo2Pct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, spo2Pct)
	if len(m.samples) > m.cfg.WindowSize {
		m.samples = m.samples[1:]
	}
}

// Detect grades the window: critical when the minimum drops below 85%,
// warning when the mean sits below 92%, otherwise none.
func (m *SpO2) Detect() domain.SpO2Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) == 0 {
		return domain.SpO2Result{Alert: domain.SpO2None}
	}

	min := m.samples[0]
	var sum float64
	for _, v := range m.samples {
		if v < min {
			min = v
		}
		sum += v
	}
	mean := sum / float64(len(m.samples))

	res := domain.SpO2Result{Alert: domain.SpO2None, MinPct: min, MeanPct: mean}
	switch {
	case min < m.cfg.CriticalMin:
		res.Alert = domain.SpO2Critical
	case mean < m.cfg.WarningMean:
		res.Alert = domain.SpO2Warning
	}
	return res
}
