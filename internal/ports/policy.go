package ports

import "time"

// IntakePolicy controls the bounded frame intake between the transport
// source and the worker pool.
type IntakePolicy struct {
	MaxQueueLen int           `yaml:"max_queue_len"`
	IdleSleep   time.Duration `yaml:"idle_sleep"`

	OnQueueFull string `yaml:"on_queue_full"` // "block", "drop"
}
