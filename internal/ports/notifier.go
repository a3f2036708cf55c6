package ports

import "github.com/halcyonlabs/vitalflow/internal/domain"

// Notifier receives alerts for the consumer/presentation layer. Deliver
// must not block the pipeline; implementations buffer or drop.
type Notifier interface {
	Deliver(alert domain.CriticalAlert)
}
