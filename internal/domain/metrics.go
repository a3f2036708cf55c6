package domain

import "time"

// RiskLevel grades the subject's overall condition; it feeds the adaptive
// scheduler and the alert engine.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// BPCategory is the hypertension staging of a blood-pressure estimate.
type BPCategory string

const (
	BPNormal   BPCategory = "normal"
	BPElevated BPCategory = "elevated"
	BPStage1   BPCategory = "stage1"
	BPStage2   BPCategory = "stage2"
	BPCrisis   BPCategory = "crisis"
)

// HypoRisk is the hypoglycemia risk grade derived from glucose trend.
type HypoRisk string

const (
	HypoLow      HypoRisk = "low"
	HypoModerate HypoRisk = "moderate"
	HypoHigh     HypoRisk = "high"
	HypoCritical HypoRisk = "critical"
)

// SpO2Alert is the oxygen-saturation alert grade over the recent window.
type SpO2Alert string

const (
	SpO2None     SpO2Alert = "none"
	SpO2Warning  SpO2Alert = "warning"
	SpO2Critical SpO2Alert = "critical"
)

// MetricsSnapshot is the current best-known value of every tracked vital
// and biomarker. Exactly one live snapshot exists per session; each
// committed inference pass replaces the whole snapshot so consumers never
// observe a torn update.
type MetricsSnapshot struct {
	HeartRateBPM    float64    `json:"heart_rate_bpm"`
	MeanRRMs        float64    `json:"mean_rr_ms"`
	SDNNMs          float64    `json:"sdnn_ms"`
	RMSSDMs         float64    `json:"rmssd_ms"`
	LFHFRatio       float64    `json:"lf_hf_ratio"`
	SampleEntropy   float64    `json:"sample_entropy"`
	RespiratoryRate float64    `json:"respiratory_rate"`
	SystolicMmHg    float64    `json:"systolic_mmhg"`
	DiastolicMmHg   float64    `json:"diastolic_mmhg"`
	BPCategory      BPCategory `json:"bp_category"`
	GlucoseMgDL     float64    `json:"glucose_mg_dl"`
	GlucoseTrend    float64    `json:"glucose_trend_mg_dl"`
	HypoRisk        HypoRisk   `json:"hypo_risk"`
	SpO2Pct         float64    `json:"spo2_pct"`
	SpO2Alert       SpO2Alert  `json:"spo2_alert"`
	TroponinProxy   float64    `json:"troponin_proxy"`

	ArrhythmiaDetected   bool    `json:"arrhythmia_detected"`
	ArrhythmiaConfidence float64 `json:"arrhythmia_confidence"`
	STElevation          bool    `json:"st_elevation"`
	FallDetected         bool    `json:"fall_detected"`

	BatteryPct float32   `json:"battery_pct"`
	Risk       RiskLevel `json:"risk"`
	UpdatedAt  time.Time `json:"updated_at"`
	// Pass is the inference generation that produced this snapshot.
	Pass uint64 `json:"pass"`
}
