package models

import (
	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// BloodPressureConfig holds the linear PTT-to-pressure calibration. The
// inverse relation (shorter transit time, stiffer vessels, higher
// pressure) is the documented contract; the coefficients are per-device
// calibration values.
type BloodPressureConfig struct {
	SystolicIntercept  float64 `yaml:"systolic_intercept"`
	SystolicSlope      float64 `yaml:"systolic_slope"`
	DiastolicIntercept float64 `yaml:"diastolic_intercept"`
	DiastolicSlope     float64 `yaml:"diastolic_slope"`
}

func (c *BloodPressureConfig) ApplyDefaults() {
	if c.SystolicIntercept == 0 {
		c.SystolicIntercept = 185
	}
	if c.SystolicSlope == 0 {
		c.SystolicSlope = 0.25
	}
	if c.DiastolicIntercept == 0 {
		c.DiastolicIntercept = 125
	}
	if c.DiastolicSlope == 0 {
		c.DiastolicSlope = 0.18
	}
}

type BloodPressure struct {
	cfg BloodPressureConfig
}

func NewBloodPressure(cfg BloodPressureConfig) *BloodPressure {
	cfg.ApplyDefaults()
	return &BloodPressure{cfg: cfg}
}

// Estimate maps the PTT proxy to systolic/diastolic pressure and stages
// the result. A missing PTT (no PPG) yields the zero result; the
// orchestrator treats it as unavailable.
func (m *BloodPressure) Estimate(f domain.FeatureSet) domain.BloodPressureResult {
	if !f.Usable || f.PTTProxy <= 0 {
		return domain.BloodPressureResult{}
	}

	sys := clamp(m.cfg.SystolicIntercept-m.cfg.SystolicSlope*f.PTTProxy, 80, 230)
	dia := clamp(m.cfg.DiastolicIntercept-m.cfg.DiastolicSlope*f.PTTProxy, 50, 140)

	return domain.BloodPressureResult{
		SystolicMmHg:  sys,
		DiastolicMmHg: dia,
		Category:      StageBP(sys, dia),
	}
}

// StageBP classifies a reading per the AHA staging table.
func StageBP(sys, dia float64) domain.BPCategory {
	switch {
	case sys >= 180 || dia >= 120:
		return domain.BPCrisis
	case sys >= 140 || dia >= 90:
		return domain.BPStage2
	case sys >= 130 || dia >= 80:
		return domain.BPStage1
	case sys >= 120:
		return domain.BPElevated
	}
	return domain.BPNormal
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
