// Package config loads and validates the edge runtime configuration.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halcyonlabs/vitalflow/internal/adapters/dsp"
	"github.com/halcyonlabs/vitalflow/internal/adapters/store"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

type Config struct {
	Keys      KeysConfig         `yaml:"keys"`
	Intake    ports.IntakePolicy `yaml:"intake"`
	DSP       dsp.Config         `yaml:"dsp"`
	Store     store.Config       `yaml:"store"`
	Inference InferenceConfig    `yaml:"inference"`
	Alerts    AlertsConfig       `yaml:"alerts"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	Sync      SyncConfig         `yaml:"sync"`
	Uplink    UplinkConfig       `yaml:"uplink"`
	Metrics   MetricsConfig      `yaml:"metrics"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// KeysConfig carries the two independent 256-bit keys as hex strings.
// The transport key opens incoming sensor frames; the storage key seals
// records at rest. They must never be the same key.
type KeysConfig struct {
	TransportKeyHex string `yaml:"transport_key_hex"`
	StorageKeyHex   string `yaml:"storage_key_hex"`
}

func (k KeysConfig) TransportKey() ([]byte, error) { return decodeKey(k.TransportKeyHex) }
func (k KeysConfig) StorageKey() ([]byte, error)   { return decodeKey(k.StorageKeyHex) }

func decodeKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	return raw, nil
}

type InferenceConfig struct {
	Workers int           `yaml:"workers"`
	Budget  time.Duration `yaml:"budget"`
}

type AlertsConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// SchedulerConfig holds the base cadences before battery and risk
// scaling are applied.
type SchedulerConfig struct {
	VitalsInterval     time.Duration `yaml:"vitals_interval"`
	BiomarkersInterval time.Duration `yaml:"biomarkers_interval"`
	PatternInterval    time.Duration `yaml:"pattern_interval"`
	SyncInterval       time.Duration `yaml:"sync_interval"`

	BatteryLowPct      float64 `yaml:"battery_low_pct"`
	BatteryCriticalPct float64 `yaml:"battery_critical_pct"`
}

type SyncConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type UplinkConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Intake.MaxQueueLen == 0 {
		c.Intake.MaxQueueLen = 256
	}
	if c.Intake.IdleSleep == 0 {
		c.Intake.IdleSleep = 5 * time.Millisecond
	}
	if c.Intake.OnQueueFull == "" {
		c.Intake.OnQueueFull = "drop"
	}
	if c.Inference.Workers == 0 {
		c.Inference.Workers = 2
	}
	if c.Inference.Budget == 0 {
		c.Inference.Budget = 100 * time.Millisecond
	}
	if c.Alerts.Cooldown == 0 {
		c.Alerts.Cooldown = 5 * time.Minute
	}
	if c.Scheduler.VitalsInterval == 0 {
		c.Scheduler.VitalsInterval = 30 * time.Second
	}
	if c.Scheduler.BiomarkersInterval == 0 {
		c.Scheduler.BiomarkersInterval = 5 * time.Minute
	}
	if c.Scheduler.PatternInterval == 0 {
		c.Scheduler.PatternInterval = time.Minute
	}
	if c.Scheduler.SyncInterval == 0 {
		c.Scheduler.SyncInterval = 5 * time.Minute
	}
	if c.Scheduler.BatteryLowPct == 0 {
		c.Scheduler.BatteryLowPct = 20
	}
	if c.Scheduler.BatteryCriticalPct == 0 {
		c.Scheduler.BatteryCriticalPct = 10
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 100
	}
	if c.Sync.SweepInterval == 0 {
		c.Sync.SweepInterval = time.Hour
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	c.DSP.ApplyDefaults()
	c.Store.ApplyDefaults()
}

func (c *Config) Validate() error {
	if _, err := c.Keys.TransportKey(); err != nil {
		return fmt.Errorf("keys.transport_key_hex: %w", err)
	}
	if _, err := c.Keys.StorageKey(); err != nil {
		return fmt.Errorf("keys.storage_key_hex: %w", err)
	}
	if c.Keys.TransportKeyHex == c.Keys.StorageKeyHex {
		return fmt.Errorf("keys: transport and storage keys must differ")
	}
	switch c.Intake.OnQueueFull {
	case "block", "drop":
	default:
		return fmt.Errorf("intake.on_queue_full: unknown policy %q", c.Intake.OnQueueFull)
	}
	if c.Scheduler.BatteryCriticalPct >= c.Scheduler.BatteryLowPct {
		return fmt.Errorf("scheduler: battery_critical_pct must be below battery_low_pct")
	}
	if c.Inference.Workers < 1 {
		return fmt.Errorf("inference.workers must be at least 1")
	}
	return nil
}
