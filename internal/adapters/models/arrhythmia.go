// Package models holds the replaceable scoring strategies the inference
// orchestrator fans out over. Each model is an opaque scoring function
// with a documented input/output contract; none of them block or touch
// shared state except the trend models' own rolling windows.
package models

import (
	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// ArrhythmiaConfig calibrates the RR-irregularity detector.
type ArrhythmiaConfig struct {
	// IrregularityThresholdMs is the RMSSD level above which rhythm is
	// flagged irregular. Resting RMSSD above ~100 ms is atypical.
	IrregularityThresholdMs float64 `yaml:"irregularity_threshold_ms"`
}

func (c *ArrhythmiaConfig) ApplyDefaults() {
	if c.IrregularityThresholdMs <= 0 {
		c.IrregularityThresholdMs = 100
	}
}

type Arrhythmia struct {
	cfg ArrhythmiaConfig
}

func NewArrhythmia(cfg ArrhythmiaConfig) *Arrhythmia {
	cfg.ApplyDefaults()
	return &Arrhythmia{cfg: cfg}
}

// Score flags irregular rhythm when RMSSD exceeds the calibrated
// threshold; confidence scales with the margin above it and saturates at
// twice the threshold.
func (m *Arrhythmia) Score(f domain.FeatureSet) domain.ArrhythmiaResult {
	if !f.Usable {
		return domain.ArrhythmiaResult{}
	}
	thr := m.cfg.IrregularityThresholdMs
	if f.RMSSDMs <= thr {
		return domain.ArrhythmiaResult{}
	}
	conf := (f.RMSSDMs - thr) / thr
	if conf > 1 {
		conf = 1
	}
	return domain.ArrhythmiaResult{Detected: true, Confidence: conf}
}
