// Package dsp implements the deterministic signal-conditioning stage:
// band-limiting low-pass filters plus baseline-wander removal, applied to
// raw ECG/PPG waveforms before feature extraction.
package dsp

import (
	"math"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// Conditioner filters one packet's waveforms. Filter state is reset on
// every call so identical input always yields identical output.
type Conditioner struct {
	ecgLP biquad
	ppgLP biquad

	ecgHPAlpha float64
	ppgHPAlpha float64
}

// Config sets sample rates and cutoffs. Zero values fall back to the
// wearable's defaults: ECG 250 Hz sampled, 40 Hz low-pass; PPG 50 Hz
// sampled, 10 Hz low-pass; 0.5 Hz baseline high-pass for both.
type Config struct {
	ECGSampleRateHz float64 `yaml:"ecg_sample_rate_hz"`
	PPGSampleRateHz float64 `yaml:"ppg_sample_rate_hz"`
	ECGLowPassHz    float64 `yaml:"ecg_low_pass_hz"`
	PPGLowPassHz    float64 `yaml:"ppg_low_pass_hz"`
	BaselineHz      float64 `yaml:"baseline_hz"`
}

func (c *Config) ApplyDefaults() {
	if c.ECGSampleRateHz <= 0 {
		c.ECGSampleRateHz = 250
	}
	if c.PPGSampleRateHz <= 0 {
		c.PPGSampleRateHz = 50
	}
	if c.ECGLowPassHz <= 0 {
		c.ECGLowPassHz = 40
	}
	if c.PPGLowPassHz <= 0 {
		c.PPGLowPassHz = 10
	}
	if c.BaselineHz <= 0 {
		c.BaselineHz = 0.5
	}
}

func NewConditioner(cfg Config) *Conditioner {
	cfg.ApplyDefaults()
	return &Conditioner{
		ecgLP:      designLowPass(cfg.ECGLowPassHz, cfg.ECGSampleRateHz),
		ppgLP:      designLowPass(cfg.PPGLowPassHz, cfg.PPGSampleRateHz),
		ecgHPAlpha: highPassAlpha(cfg.BaselineHz, cfg.ECGSampleRateHz),
		ppgHPAlpha: highPassAlpha(cfg.BaselineHz, cfg.PPGSampleRateHz),
	}
}

// Condition applies low-pass then baseline-removal to both waveforms.
// Empty input yields empty output; there is no error path.
func (c *Conditioner) Condition(ecg, ppg []float32) domain.ConditionedSignals {
	return domain.ConditionedSignals{
		ECG: highPass(c.ecgLP.apply(ecg), c.ecgHPAlpha),
		PPG: highPass(c.ppgLP.apply(ppg), c.ppgHPAlpha),
	}
}

// biquad holds 2nd-order Butterworth low-pass coefficients (RBJ cookbook
// form, Q = 1/sqrt(2)).
type biquad struct {
	b0, b1, b2, a1, a2 float64
}

func designLowPass(cutoffHz, sampleRateHz float64) biquad {
	w0 := 2 * math.Pi * cutoffHz / sampleRateHz
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2 // sin(w0)/(2Q), Q = 1/sqrt(2)

	a0 := 1 + alpha
	return biquad{
		b0: (1 - cosw0) / 2 / a0,
		b1: (1 - cosw0) / a0,
		b2: (1 - cosw0) / 2 / a0,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f biquad) apply(in []float32) []float32 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float32, len(in))
	var x1, x2, y1, y2 float64
	for i, v := range in {
		x := float64(v)
		y := f.b0*x + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] = float32(y)
	}
	return out
}

func highPassAlpha(cutoffHz, sampleRateHz float64) float64 {
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / sampleRateHz
	return rc / (rc + dt)
}

// highPass is a 1st-order DC/baseline-wander remover operating in place
// on the already-copied low-pass output.
func highPass(in []float32, alpha float64) []float32 {
	if len(in) == 0 {
		return nil
	}
	prevX := float64(in[0])
	prevY := 0.0
	in[0] = 0
	for i := 1; i < len(in); i++ {
		x := float64(in[i])
		y := alpha * (prevY + x - prevX)
		prevX, prevY = x, y
		in[i] = float32(y)
	}
	return in
}
