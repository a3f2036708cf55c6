package domain

import "time"

// SensorPacket is the canonical unit of wearable telemetry in VitalFlow.
// It is produced by the codec from a sealed transport frame, consumed once
// by the processing pipeline, and then dropped; only derived metrics and
// alerts are persisted.
type SensorPacket struct {
	CapturedAt  time.Time `json:"captured_at"`
	ECG         []float32 `json:"ecg"`
	PPG         []float32 `json:"ppg"`
	Accel       []float32 `json:"accel"`
	Temperature float32   `json:"temperature"`
	BatteryPct  float32   `json:"battery_pct"`

	// Optional point samples multiplexed into the same stream by the
	// device. Zero value plus false flag means "not present in this frame".
	Glucose    float32 `json:"glucose,omitempty"`
	HasGlucose bool    `json:"has_glucose,omitempty"`
	SpO2       float32 `json:"spo2,omitempty"`
	HasSpO2    bool    `json:"has_spo2,omitempty"`
}

// ConditionedSignals holds the filtered waveforms for one packet. Owned
// solely by the in-flight processing task; never shared across tasks.
type ConditionedSignals struct {
	ECG []float32
	PPG []float32
}

// FeatureSet is an immutable snapshot of scalar descriptors derived from
// one conditioned packet. Passed by value into the inference orchestrator.
type FeatureSet struct {
	MeanRRMs      float64
	SDNNMs        float64
	RMSSDMs       float64
	LFHFRatio     float64
	SampleEntropy float64
	PeakCount     int
	// PTTProxy is a pulse-transit-time-like delay between the ECG R peak
	// and the following PPG foot, in milliseconds.
	PTTProxy float64
	// Usable is false when fewer than two R peaks were detected. The
	// remaining fields are zero in that case; this is a normal
	// low-confidence condition, not an error.
	Usable bool
}
