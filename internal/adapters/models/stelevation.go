package models

import (
	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// STElevationConfig calibrates the ST-segment scorer.
type STElevationConfig struct {
	SampleRateHz float64 `yaml:"sample_rate_hz"`
	// ElevationThreshold is the mean ST-window amplitude (in the
	// conditioned signal's normalized units) treated as elevation.
	ElevationThreshold float64 `yaml:"elevation_threshold"`
	PeakThresholdFrac  float64 `yaml:"peak_threshold_frac"`
}

func (c *STElevationConfig) ApplyDefaults() {
	if c.SampleRateHz <= 0 {
		c.SampleRateHz = 250
	}
	if c.ElevationThreshold <= 0 {
		c.ElevationThreshold = 0.2
	}
	if c.PeakThresholdFrac <= 0 {
		c.PeakThresholdFrac = 0.6
	}
}

type STElevation struct {
	cfg STElevationConfig
}

func NewSTElevation(cfg STElevationConfig) *STElevation {
	cfg.ApplyDefaults()
	return &STElevation{cfg: cfg}
}

// Score averages the 80-120 ms window after each R peak; sustained
// positive deflection there marks ST elevation.
func (m *STElevation) Score(s domain.ConditionedSignals, f domain.FeatureSet) domain.STElevationResult {
	if !f.Usable || len(s.ECG) == 0 {
		return domain.STElevationResult{}
	}

	var max float32
	for _, v := range s.ECG {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return domain.STElevationResult{}
	}
	thr := float32(m.cfg.PeakThresholdFrac) * max

	stFrom := int(0.080 * m.cfg.SampleRateHz)
	stTo := int(0.120 * m.cfg.SampleRateHz)

	var sum float64
	var n int
	for i := 1; i < len(s.ECG)-1; i++ {
		if s.ECG[i] < thr || s.ECG[i] < s.ECG[i-1] || s.ECG[i] <= s.ECG[i+1] {
			continue
		}
		for j := i + stFrom; j <= i+stTo && j < len(s.ECG); j++ {
			sum += float64(s.ECG[j])
			n++
		}
	}
	if n == 0 {
		return domain.STElevationResult{}
	}

	elev := sum / float64(n)
	return domain.STElevationResult{
		Detected:  elev > m.cfg.ElevationThreshold,
		Elevation: elev,
	}
}
