package vitalflow

import (
	"github.com/halcyonlabs/vitalflow/internal/adapters/dsp"
	"github.com/halcyonlabs/vitalflow/internal/adapters/store"
	"github.com/halcyonlabs/vitalflow/internal/app/config"
)

// Config re-exports the root configuration struct so embedding projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// KeysConfig carries the transport and at-rest key material.
	KeysConfig = config.KeysConfig
	// DSPConfig sets the sample rates and filter cutoffs.
	DSPConfig = dsp.Config
	// StoreConfig tunes the offline record store.
	StoreConfig = store.Config
	// InferenceConfig sets the worker count and latency budget.
	InferenceConfig = config.InferenceConfig
	// SchedulerConfig holds the base cadences and battery thresholds.
	SchedulerConfig = config.SchedulerConfig
	// SyncConfig bounds sync batches and the maintenance cadence.
	SyncConfig = config.SyncConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LoggingConfig selects log level and format.
	LoggingConfig = config.LoggingConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
