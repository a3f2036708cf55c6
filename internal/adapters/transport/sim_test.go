package transport

import (
	"testing"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/adapters/codec"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}
func (nopObs) RecordDrop(string, error)                  {}

func testCodec(t *testing.T) *codec.Codec {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := codec.New(key)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestSimFramesDecode(t *testing.T) {
	c := testCodec(t)
	s := NewSim(SimConfig{Interval: 5 * time.Millisecond, SegmentSec: 2}, c, nopObs{})

	out := make(chan []byte, 4)
	if err := s.Start(out); err != nil {
		t.Fatalf("start sim: %v", err)
	}
	defer s.Stop()

	select {
	case frame := <-out:
		pkt, err := c.Decode(frame)
		if err != nil {
			t.Fatalf("decode sim frame: %v", err)
		}
		if len(pkt.ECG) != 500 {
			t.Fatalf("expected 500 ECG samples for a 2s segment at 250Hz, got %d", len(pkt.ECG))
		}
		if len(pkt.PPG) != 100 {
			t.Fatalf("expected 100 PPG samples for a 2s segment at 50Hz, got %d", len(pkt.PPG))
		}
		if pkt.BatteryPct <= 0 || pkt.BatteryPct > 100 {
			t.Fatalf("battery out of range: %f", pkt.BatteryPct)
		}
	case <-time.After(time.Second):
		t.Fatal("sim emitted no frame")
	}
}

func TestSimECGHasDominantRPeaks(t *testing.T) {
	c := testCodec(t)
	s := NewSim(SimConfig{SegmentSec: 4, NoiseLevel: 0.001}, c, nopObs{})

	pkt := s.nextPacketLocked()

	var maxV float32
	for _, v := range pkt.ECG {
		if v > maxV {
			maxV = v
		}
	}
	// R lobes reach ~1.0 over a ~0.05 baseline.
	if maxV < 0.8 {
		t.Fatalf("expected R peak near 1.0, got %f", maxV)
	}
}

func TestSimStopIsIdempotent(t *testing.T) {
	c := testCodec(t)
	s := NewSim(SimConfig{Interval: time.Hour}, c, nopObs{})

	out := make(chan []byte, 1)
	if err := s.Start(out); err != nil {
		t.Fatalf("start sim: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop sim: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
