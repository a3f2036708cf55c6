package domain

import "time"

// ArrhythmiaResult is the output of the arrhythmia scorer.
type ArrhythmiaResult struct {
	Detected   bool
	Confidence float64
}

// STElevationResult is the output of the ST-segment scorer.
type STElevationResult struct {
	Detected  bool
	Elevation float64
}

// BloodPressureResult is the output of the PTT-based BP estimator.
type BloodPressureResult struct {
	SystolicMmHg  float64
	DiastolicMmHg float64
	Category      BPCategory
}

// HypoglycemiaResult is the output of the glucose-trend scorer.
type HypoglycemiaResult struct {
	Risk        HypoRisk
	GlucoseMgDL float64
	TrendMgDL   float64
	RateMgDLMin float64
	SamplesSeen int
}

// SpO2Result is the output of the desaturation scorer.
type SpO2Result struct {
	Alert   SpO2Alert
	MinPct  float64
	MeanPct float64
}

// FallResult is the output of the accelerometer fall heuristic.
type FallResult struct {
	Detected bool
	ImpactG  float64
}

// InferenceResult aggregates one pass over all scorers. Each Has* flag is
// false when the corresponding model missed its share of the latency
// budget or had no input; the pipeline then retains the last-known value.
type InferenceResult struct {
	Pass      uint64
	StartedAt time.Time
	Elapsed   time.Duration

	Arrhythmia    ArrhythmiaResult
	HasArrhythmia bool

	STElevation    STElevationResult
	HasSTElevation bool

	BloodPressure    BloodPressureResult
	HasBloodPressure bool

	Hypoglycemia    HypoglycemiaResult
	HasHypoglycemia bool

	SpO2    SpO2Result
	HasSpO2 bool

	Fall    FallResult
	HasFall bool
}

// Risk condenses a pass into an overall risk level for the scheduler.
func (r InferenceResult) Risk() RiskLevel {
	switch {
	case (r.HasHypoglycemia && r.Hypoglycemia.Risk == HypoCritical) ||
		(r.HasSpO2 && r.SpO2.Alert == SpO2Critical) ||
		(r.HasArrhythmia && r.Arrhythmia.Detected && r.Arrhythmia.Confidence > 0.9) ||
		(r.HasFall && r.Fall.Detected):
		return RiskCritical
	case (r.HasArrhythmia && r.Arrhythmia.Detected) ||
		(r.HasSTElevation && r.STElevation.Detected) ||
		(r.HasHypoglycemia && r.Hypoglycemia.Risk == HypoHigh) ||
		(r.HasBloodPressure && r.BloodPressure.Category == BPCrisis):
		return RiskHigh
	case (r.HasHypoglycemia && r.Hypoglycemia.Risk == HypoModerate) ||
		(r.HasSpO2 && r.SpO2.Alert == SpO2Warning) ||
		(r.HasBloodPressure && r.BloodPressure.Category == BPStage2):
		return RiskModerate
	}
	return RiskLow
}
