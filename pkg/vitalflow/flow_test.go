package vitalflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfFromConfigBuildsRuntime(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "flow.db")

	f, err := ConfFromConfig(cfg, WithFlowOptions(WithObservability(nopObs{})))
	if err != nil {
		t.Fatalf("conf from config: %v", err)
	}

	rt, err := f.
		StreamIN(StreamInTransport(stillSource{})).
		StreamOUT(StreamOutStore(&fakeStore{}), StreamOutCallback(func(Alert) {}))
	if err != nil {
		t.Fatalf("stream out: %v", err)
	}
	if rt == nil {
		t.Fatal("expected runtime")
	}
}

func TestConfFromConfigRequiresConfig(t *testing.T) {
	if _, err := ConfFromConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfLoadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
keys:
  transport_key_hex: "` + testTransportKey + `"
  storage_key_hex: "` + testStorageKey + `"
store:
  path: "` + filepath.Join(dir, "records.db") + `"
metrics:
  addr: "127.0.0.1:0"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	f, err := Conf(path)
	if err != nil {
		t.Fatalf("conf: %v", err)
	}
	if f.Config().Store.RetentionHours != 72 {
		t.Fatalf("expected retention default 72, got %d", f.Config().Store.RetentionHours)
	}
}

func TestFlowNilSafety(t *testing.T) {
	var f *Flow
	if f.StreamIN() != nil {
		t.Fatal("expected nil flow to stay nil")
	}
	if _, err := f.StreamOUT(); err == nil {
		t.Fatal("expected error from nil flow")
	}
}
