package ports

import "github.com/halcyonlabs/vitalflow/internal/domain"

// The scoring models are replaceable strategies: pure functions of the
// feature set and packet, except that trend models (glucose, SpO2) keep
// their own rolling windows fed via Observe.

type ArrhythmiaModel interface {
	Score(f domain.FeatureSet) domain.ArrhythmiaResult
}

type STElevationModel interface {
	Score(s domain.ConditionedSignals, f domain.FeatureSet) domain.STElevationResult
}

type BloodPressureModel interface {
	Estimate(f domain.FeatureSet) domain.BloodPressureResult
}

type HypoglycemiaModel interface {
	Observe(glucoseMgDL float64)
	Predict() domain.HypoglycemiaResult
}

type SpO2Model interface {
	Observe(spo2Pct float64)
	Detect() domain.SpO2Result
}

type FallModel interface {
	Score(accel []float32) domain.FallResult
}

// ModelSet bundles the strategies the orchestrator fans out over.
type ModelSet struct {
	Arrhythmia    ArrhythmiaModel
	STElevation   STElevationModel
	BloodPressure BloodPressureModel
	Hypoglycemia  HypoglycemiaModel
	SpO2          SpO2Model
	Fall          FallModel
}
