package domain

import "time"

// RecordType is the logical category of a persisted record.
type RecordType string

const (
	RecordVitalSigns     RecordType = "vital_signs"
	RecordBiomarkers     RecordType = "biomarkers"
	RecordECGWaveform    RecordType = "ecg_waveform"
	RecordAlert          RecordType = "alert"
	RecordEdgePrediction RecordType = "edge_prediction"
)

// Priority orders records for sync; critical records bypass the normal
// cadence and go out on the next attempt.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// StoredRecord is owned by the offline store. The payload is sealed with
// the at-rest key before it reaches the store; the only mutation after
// insert is flipping Synced. A record with Synced == false is never
// deleted by retention or the size cap.
type StoredRecord struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	DataType  RecordType `json:"data_type"`
	Payload   []byte     `json:"payload"`
	Priority  Priority   `json:"priority"`
	Synced    bool       `json:"synced"`
}
