package models

import (
	"math"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// FallConfig calibrates the accelerometer impact heuristic. Input samples
// are acceleration magnitudes in g.
type FallConfig struct {
	ImpactThresholdG    float64 `yaml:"impact_threshold_g"`
	StillnessDeviationG float64 `yaml:"stillness_deviation_g"`
	StillnessWindow     int     `yaml:"stillness_window"`
}

func (c *FallConfig) ApplyDefaults() {
	if c.ImpactThresholdG <= 0 {
		c.ImpactThresholdG = 2.5
	}
	if c.StillnessDeviationG <= 0 {
		c.StillnessDeviationG = 0.3
	}
	if c.StillnessWindow <= 0 {
		c.StillnessWindow = 20
	}
}

type Fall struct {
	cfg FallConfig
}

func NewFall(cfg FallConfig) *Fall {
	cfg.ApplyDefaults()
	return &Fall{cfg: cfg}
}

// Score reports a fall when an impact spike is followed by a window of
// stillness (magnitude hugging 1 g with little deviation).
func (m *Fall) Score(accel []float32) domain.FallResult {
	if len(accel) == 0 {
		return domain.FallResult{}
	}

	impactIdx := -1
	var impact float64
	for i, v := range accel {
		mag := math.Abs(float64(v))
		if mag > m.cfg.ImpactThresholdG && mag > impact {
			impact, impactIdx = mag, i
		}
	}
	if impactIdx < 0 {
		return domain.FallResult{}
	}

	window := accel[impactIdx+1:]
	if len(window) > m.cfg.StillnessWindow {
		window = window[len(window)-m.cfg.StillnessWindow:]
	}
	if len(window) < m.cfg.StillnessWindow/2 {
		// Impact at the tail of the packet: not enough evidence yet.
		return domain.FallResult{ImpactG: impact}
	}

	var sum float64
	for _, v := range window {
		sum += math.Abs(float64(v))
	}
	mean := sum / float64(len(window))

	var dev float64
	for _, v := range window {
		dev += math.Abs(math.Abs(float64(v)) - mean)
	}
	dev /= float64(len(window))

	return domain.FallResult{
		Detected: dev < m.cfg.StillnessDeviationG,
		ImpactG:  impact,
	}
}
