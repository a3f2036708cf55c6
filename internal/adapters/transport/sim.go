// Package transport provides frame sources for the pipeline. The
// simulator stands in for the Bluetooth pairing collaborator so the
// binary runs end-to-end without hardware.
package transport

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/halcyonlabs/vitalflow/internal/adapters/codec"
	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// SimConfig tunes the synthetic wearable.
type SimConfig struct {
	Interval        time.Duration
	SegmentSec      float64
	ECGSampleRateHz float64
	PPGSampleRateHz float64
	HeartRateBPM    float64
	NoiseLevel      float64
	// Glucose and SpO2 readings are multiplexed in every Nth frame,
	// mimicking the slower CGM/oximeter duty cycle.
	GlucoseEvery int
	SpO2Every    int
}

func (c *SimConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.SegmentSec <= 0 {
		c.SegmentSec = 10
	}
	if c.ECGSampleRateHz <= 0 {
		c.ECGSampleRateHz = 250
	}
	if c.PPGSampleRateHz <= 0 {
		c.PPGSampleRateHz = 50
	}
	if c.HeartRateBPM <= 0 {
		c.HeartRateBPM = 72
	}
	if c.NoiseLevel <= 0 {
		c.NoiseLevel = 0.02
	}
	if c.GlucoseEvery <= 0 {
		c.GlucoseEvery = 6
	}
	if c.SpO2Every <= 0 {
		c.SpO2Every = 3
	}
}

// Sim emits sealed frames carrying a synthetic P-QRS-T ECG, a delayed
// PPG, resting accelerometer noise, and periodic glucose/SpO2 samples.
type Sim struct {
	cfg   SimConfig
	codec *codec.Codec
	obs   ports.Observability

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool

	phase   float64
	battery float32
	frameNo int
	rng     *rand.Rand
}

func NewSim(cfg SimConfig, c *codec.Codec, obs ports.Observability) *Sim {
	cfg.ApplyDefaults()
	return &Sim{
		cfg:     cfg,
		codec:   c,
		obs:     obs,
		battery: 100,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins emitting frames on out until Stop. The channel is not
// closed on Stop; the pipeline owns its lifetime.
func (s *Sim) Start(out chan<- []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.stopped = false

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				frame, err := s.nextFrame()
				if err != nil {
					s.obs.LogError("sim_encode_failed", err)
					continue
				}
				select {
				case out <- frame:
				case <-s.stop:
					return
				}
			}
		}
	}()
	return nil
}

func (s *Sim) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil && !s.stopped {
		close(s.stop)
		s.stopped = true
	}
	return nil
}

func (s *Sim) nextFrame() ([]byte, error) {
	s.mu.Lock()
	pkt := s.nextPacketLocked()
	s.mu.Unlock()
	return s.codec.Encode(pkt)
}

// nextPacketLocked synthesizes one segment. The ECG is a baseline plus
// gaussian P, Q, R, S and T lobes per cycle; the PPG is a smoothed pulse
// wave trailing the R peak by a plausible transit delay.
func (s *Sim) nextPacketLocked() domain.SensorPacket {
	cfg := s.cfg
	ecgN := int(cfg.SegmentSec * cfg.ECGSampleRateHz)
	ppgN := int(cfg.SegmentSec * cfg.PPGSampleRateHz)
	cycleHz := cfg.HeartRateBPM / 60

	ecg := make([]float32, ecgN)
	phase := s.phase
	for i := range ecg {
		ecg[i] = float32(ecgSample(phase, cfg.NoiseLevel, s.rng))
		phase += cycleHz / cfg.ECGSampleRateHz
		if phase >= 1 {
			phase -= 1
		}
	}

	ppg := make([]float32, ppgN)
	ppgPhase := s.phase - 0.25*cycleHz // pulse wave lags the R peak
	for i := range ppg {
		ppg[i] = float32(0.5 + 0.4*math.Sin(2*math.Pi*(ppgPhase-0.35)) + cfg.NoiseLevel*s.rng.NormFloat64())
		ppgPhase += cycleHz / cfg.PPGSampleRateHz
		if ppgPhase >= 1 {
			ppgPhase -= 1
		}
	}
	s.phase = phase

	accel := make([]float32, 3*int(cfg.SegmentSec))
	for i := range accel {
		accel[i] = float32(1 + 0.05*s.rng.NormFloat64()) // resting, ~1g
	}

	s.frameNo++
	s.battery -= 0.01
	if s.battery < 1 {
		s.battery = 100
	}

	pkt := domain.SensorPacket{
		CapturedAt:  time.Now(),
		ECG:         ecg,
		PPG:         ppg,
		Accel:       accel,
		Temperature: float32(36.5 + 0.2*s.rng.NormFloat64()),
		BatteryPct:  s.battery,
	}
	if s.frameNo%s.cfg.GlucoseEvery == 0 {
		pkt.Glucose = float32(95 + 10*s.rng.NormFloat64())
		pkt.HasGlucose = true
	}
	if s.frameNo%s.cfg.SpO2Every == 0 {
		pkt.SpO2 = float32(97 + 1.5*s.rng.NormFloat64())
		pkt.HasSpO2 = true
	}
	return pkt
}

func ecgSample(t, noise float64, rng *rand.Rand) float64 {
	baseline := 0.05 * math.Sin(2*math.Pi*0.33*t)
	p := 0.08 * gauss(t, 0.18, 0.03)
	q := -0.12 * gauss(t, 0.30, 0.01)
	r := 1.00 * gauss(t, 0.32, 0.008)
	sw := -0.25 * gauss(t, 0.35, 0.012)
	tw := 0.25 * gauss(t, 0.60, 0.06)
	return baseline + p + q + r + sw + tw + noise*rng.NormFloat64()
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

var _ ports.FrameSource = (*Sim)(nil)
