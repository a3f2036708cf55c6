package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testTransportKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testStorageKey   = "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
keys:
  transport_key_hex: "`+testTransportKey+`"
  storage_key_hex: "`+testStorageKey+`"
intake:
  max_queue_len: 1000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Intake.MaxQueueLen != 1000 {
		t.Fatalf("expected MaxQueueLen 1000, got %d", cfg.Intake.MaxQueueLen)
	}
	if cfg.Inference.Budget != 100*time.Millisecond {
		t.Fatalf("expected inference budget default 100ms, got %s", cfg.Inference.Budget)
	}
	if cfg.Scheduler.VitalsInterval != 30*time.Second {
		t.Fatalf("expected vitals interval default 30s, got %s", cfg.Scheduler.VitalsInterval)
	}
	if cfg.Store.RetentionHours != 72 {
		t.Fatalf("expected retention default 72h, got %d", cfg.Store.RetentionHours)
	}
	if cfg.Sync.BatchSize != 100 {
		t.Fatalf("expected sync batch default 100, got %d", cfg.Sync.BatchSize)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if cfg.DSP.ECGSampleRateHz != 250 {
		t.Fatalf("expected ECG rate default 250, got %f", cfg.DSP.ECGSampleRateHz)
	}

	key, err := cfg.Keys.TransportKey()
	if err != nil {
		t.Fatalf("decode transport key: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}
}

func TestLoadRejectsBadKeys(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing keys",
			body: "intake:\n  max_queue_len: 10\n",
			want: "transport_key_hex",
		},
		{
			name: "short key",
			body: "keys:\n  transport_key_hex: \"abcd\"\n  storage_key_hex: \"" + testStorageKey + "\"\n",
			want: "32 bytes",
		},
		{
			name: "identical keys",
			body: "keys:\n  transport_key_hex: \"" + testTransportKey + "\"\n  storage_key_hex: \"" + testTransportKey + "\"\n",
			want: "must differ",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsInvertedBatteryThresholds(t *testing.T) {
	path := writeConfig(t, `
keys:
  transport_key_hex: "`+testTransportKey+`"
  storage_key_hex: "`+testStorageKey+`"
scheduler:
  battery_low_pct: 10
  battery_critical_pct: 20
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for inverted battery thresholds, got nil")
	}
}
