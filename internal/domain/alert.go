package domain

import "time"

// AlertType names the detection category an alert belongs to.
type AlertType string

const (
	AlertCardiac     AlertType = "cardiac"
	AlertGlucose     AlertType = "glucose"
	AlertRespiratory AlertType = "respiratory"
	AlertFall        AlertType = "fall"
	AlertMedication  AlertType = "medication"
)

// Severity grades an alert. Ordering matters: Emergency > Critical >
// Urgent > Warning.
type Severity string

const (
	SeverityWarning   Severity = "warning"
	SeverityUrgent    Severity = "urgent"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// Rank maps a severity onto a comparable scale.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityUrgent:
		return 2
	case SeverityCritical:
		return 3
	case SeverityEmergency:
		return 4
	}
	return 0
}

// CriticalAlert is immutable once created; its lifecycle ends when it is
// acknowledged or evicted by retention. IDs are never reused.
type CriticalAlert struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	ActionRequired bool      `json:"action_required"`
	AutoEscalate   bool      `json:"auto_escalate"`
}
