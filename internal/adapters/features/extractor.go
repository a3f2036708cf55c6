// Package features computes time- and frequency-domain descriptors from
// conditioned waveforms: R-peak driven RR intervals, HRV statistics,
// LF/HF spectral power, and sample entropy.
package features

import (
	"math"

	"github.com/halcyonlabs/vitalflow/internal/domain"
)

// Config tunes peak detection and spectral bands. Zero values fall back
// to defaults matched to the conditioner's sample rates.
type Config struct {
	ECGSampleRateHz   float64 `yaml:"ecg_sample_rate_hz"`
	PPGSampleRateHz   float64 `yaml:"ppg_sample_rate_hz"`
	PeakThresholdFrac float64 `yaml:"peak_threshold_frac"`
	RefractoryMs      float64 `yaml:"refractory_ms"`
}

func (c *Config) ApplyDefaults() {
	if c.ECGSampleRateHz <= 0 {
		c.ECGSampleRateHz = 250
	}
	if c.PPGSampleRateHz <= 0 {
		c.PPGSampleRateHz = 50
	}
	if c.PeakThresholdFrac <= 0 {
		c.PeakThresholdFrac = 0.6
	}
	if c.RefractoryMs <= 0 {
		c.RefractoryMs = 200
	}
}

type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) *Extractor {
	cfg.ApplyDefaults()
	return &Extractor{cfg: cfg}
}

// Extract derives a FeatureSet from one packet's conditioned signals.
// Fewer than two detected peaks yields a zero-valued set with
// Usable=false; insufficient signal is not an error.
func (e *Extractor) Extract(s domain.ConditionedSignals) domain.FeatureSet {
	peaks := e.detectRPeaks(s.ECG)
	if len(peaks) < 2 {
		return domain.FeatureSet{PeakCount: len(peaks)}
	}

	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = float64(peaks[i]-peaks[i-1]) / e.cfg.ECGSampleRateHz * 1000
	}

	mean := meanOf(rr)
	lf, hf := bandPowers(rr)
	ratio := 0.0
	if hf > 0 {
		ratio = lf / hf
	}

	return domain.FeatureSet{
		MeanRRMs:      mean,
		SDNNMs:        stdDev(rr, mean),
		RMSSDMs:       rmssd(rr),
		LFHFRatio:     ratio,
		SampleEntropy: sampleEntropy(rr, 2, 0.2*stdDev(rr, mean)),
		PeakCount:     len(peaks),
		PTTProxy:      e.pttProxy(peaks, s.PPG),
		Usable:        true,
	}
}

// detectRPeaks finds local maxima above an adaptive threshold (a fraction
// of the window maximum) separated by at least the refractory period.
func (e *Extractor) detectRPeaks(ecg []float32) []int {
	if len(ecg) < 3 {
		return nil
	}

	var max float32
	for _, v := range ecg {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return nil
	}
	threshold := float32(e.cfg.PeakThresholdFrac) * max
	refractory := int(e.cfg.RefractoryMs / 1000 * e.cfg.ECGSampleRateHz)

	var peaks []int
	last := -refractory - 1
	for i := 1; i < len(ecg)-1; i++ {
		v := ecg[i]
		if v < threshold || v < ecg[i-1] || v <= ecg[i+1] {
			continue
		}
		if i-last <= refractory {
			// Within refractory: keep the taller of the two candidates.
			if len(peaks) > 0 && v > ecg[peaks[len(peaks)-1]] {
				peaks[len(peaks)-1] = i
				last = i
			}
			continue
		}
		peaks = append(peaks, i)
		last = i
	}
	return peaks
}

// pttProxy measures the delay from the last R peak to the next PPG
// maximum, in milliseconds. Zero when either signal is missing.
func (e *Extractor) pttProxy(peaks []int, ppg []float32) float64 {
	if len(ppg) == 0 || len(peaks) == 0 {
		return 0
	}
	rSec := float64(peaks[len(peaks)-1]) / e.cfg.ECGSampleRateHz
	start := int(rSec * e.cfg.PPGSampleRateHz)
	if start >= len(ppg)-1 {
		return 0
	}
	best, bestIdx := ppg[start], start
	for i := start + 1; i < len(ppg); i++ {
		if ppg[i] > best {
			best, bestIdx = ppg[i], i
		}
	}
	return (float64(bestIdx)/e.cfg.PPGSampleRateHz - rSec) * 1000
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func rmssd(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(rr); i++ {
		d := rr[i] - rr[i-1]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(rr)-1))
}

// bandPowers resamples the RR tachogram evenly at 4 Hz and integrates
// spectral power over the LF (0.04-0.15 Hz) and HF (0.15-0.40 Hz) bands
// via direct DFT.
func bandPowers(rr []float64) (lf, hf float64) {
	const resampleHz = 4.0

	totalMs := 0.0
	for _, v := range rr {
		totalMs += v
	}
	n := int(totalMs / 1000 * resampleHz)
	if n < 8 {
		return 0, 0
	}

	// Linear interpolation of RR value over cumulative beat time.
	series := make([]float64, n)
	cum := make([]float64, len(rr))
	acc := 0.0
	for i, v := range rr {
		acc += v
		cum[i] = acc
	}
	mean := meanOf(rr)
	j := 0
	for i := 0; i < n; i++ {
		tMs := float64(i) / resampleHz * 1000
		for j < len(rr)-1 && cum[j] < tMs {
			j++
		}
		series[i] = rr[j] - mean
	}

	df := resampleHz / float64(n)
	for k := 1; k < n/2; k++ {
		f := float64(k) * df
		if f < 0.04 || f > 0.40 {
			continue
		}
		var re, im float64
		for i, v := range series {
			phi := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += v * math.Cos(phi)
			im -= v * math.Sin(phi)
		}
		p := (re*re + im*im) / float64(n)
		if f < 0.15 {
			lf += p
		} else {
			hf += p
		}
	}
	return lf, hf
}

// sampleEntropy computes SampEn(m, r) over the RR series; higher values
// mean less self-similarity (more complexity).
func sampleEntropy(xs []float64, m int, r float64) float64 {
	n := len(xs)
	if n <= m+1 || r <= 0 {
		return 0
	}

	count := func(length int) int {
		c := 0
		for i := 0; i < n-length; i++ {
			for j := i + 1; j < n-length+1; j++ {
				match := true
				for k := 0; k < length; k++ {
					if math.Abs(xs[i+k]-xs[j+k]) > r {
						match = false
						break
					}
				}
				if match {
					c++
				}
			}
		}
		return c
	}

	b := count(m)
	a := count(m + 1)
	if a == 0 || b == 0 {
		return 0
	}
	return -math.Log(float64(a) / float64(b))
}
