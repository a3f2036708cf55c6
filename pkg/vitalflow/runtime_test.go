package vitalflow

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/adapters/codec"
	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

const (
	testTransportKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testStorageKey   = "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
)

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}
func (nopObs) RecordDrop(string, error)                  {}

// fakeStore is an in-memory RecordStore for facade tests.
type fakeStore struct {
	mu   sync.Mutex
	recs []StoredRecord
	seq  int
}

func (m *fakeStore) Persist(_ context.Context, t domain.RecordType, payload []byte, p domain.Priority) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("rec-%d", m.seq)
	m.recs = append(m.recs, StoredRecord{ID: id, CreatedAt: time.Now(), DataType: t, Payload: payload, Priority: p})
	return id, nil
}

func (m *fakeStore) Pending(_ context.Context, limit int) ([]StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StoredRecord
	for _, r := range m.recs {
		if !r.Synced {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *fakeStore) MarkSynced(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		for i := range m.recs {
			if m.recs[i].ID == id {
				m.recs[i].Synced = true
			}
		}
	}
	return nil
}

func (m *fakeStore) SweepExpired(context.Context) (int, error)   { return 0, nil }
func (m *fakeStore) EnforceSizeCap(context.Context) (int, error) { return 0, nil }
func (m *fakeStore) Stats(context.Context) (ports.StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ports.StoreStats{TotalRecords: int64(len(m.recs))}, nil
}
func (m *fakeStore) Close() error { return nil }

// stillSource never emits; tests push frames through Runtime.Ingest.
type stillSource struct{}

func (stillSource) Start(chan<- []byte) error { return nil }
func (stillSource) Stop() error               { return nil }

func testConfig() *Config {
	cfg := &Config{}
	cfg.Keys.TransportKeyHex = testTransportKey
	cfg.Keys.StorageKeyHex = testStorageKey
	cfg.Metrics.Addr = "127.0.0.1:0"
	return cfg
}

func testCodec(t *testing.T) *codec.Codec {
	t.Helper()
	key, err := hex.DecodeString(testTransportKey)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	c, err := codec.New(key)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestNewRuntimeRequiresConfig(t *testing.T) {
	if _, err := NewRuntime(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewRuntimeRejectsBadKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Keys.StorageKeyHex = "abcd"
	if _, err := NewRuntime(cfg); err == nil {
		t.Fatal("expected error for short storage key")
	}
}

func TestRuntimeProcessesIngestedFrames(t *testing.T) {
	notifier, alertCh, closeNotifier := NewChannelNotifier(8)
	defer closeNotifier()

	rt, err := NewRuntime(testConfig(),
		WithTransport(stillSource{}),
		WithStore(&fakeStore{}),
		WithNotifier(notifier),
		WithObservability(nopObs{}),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := rt.Shutdown(ctx); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}()

	c := testCodec(t)
	for _, g := range []float32{100, 80, 62} {
		frame, err := c.Encode(SensorPacket{
			CapturedAt: time.Now(),
			BatteryPct: 80,
			Glucose:    g,
			HasGlucose: true,
		})
		if err != nil {
			t.Fatalf("encode frame: %v", err)
		}
		if err := rt.Ingest(frame); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for rt.Snapshot().Pass < 3 {
		select {
		case <-deadline:
			t.Fatalf("pipeline never reached pass 3, at %d", rt.Snapshot().Pass)
		case <-time.After(10 * time.Millisecond):
		}
	}

	snap := rt.Snapshot()
	if snap.HypoRisk != domain.HypoCritical {
		t.Fatalf("expected critical hypo risk, got %s", snap.HypoRisk)
	}

	select {
	case a := <-alertCh:
		if a.Type != domain.AlertGlucose {
			t.Fatalf("expected glucose alert, got %s", a.Type)
		}
		if !rt.Acknowledge(a.ID) {
			t.Fatal("acknowledge failed for delivered alert")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no alert delivered")
	}
}

func TestRuntimeIngestAfterShutdown(t *testing.T) {
	rt, err := NewRuntime(testConfig(),
		WithTransport(stillSource{}),
		WithStore(&fakeStore{}),
		WithObservability(nopObs{}),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start runtime: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := rt.Ingest([]byte("frame")); err == nil {
		t.Fatal("expected ingest error after shutdown")
	}
}
