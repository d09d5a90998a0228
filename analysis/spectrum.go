// Package analysis measures rendered and recorded impact sounds: peak
// frequency, envelope decay and a combined distance used for fitting.
package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	algofft "github.com/cwbudde/algo-fft"
)

// ErrShortSignal is returned when a signal is too short to analyse.
var ErrShortSignal = errors.New("analysis: signal too short")

const maxFFTSize = 1 << 17

// Spectrum is the magnitude spectrum of a Hann-windowed, zero-padded frame.
type Spectrum struct {
	SampleRate int
	Size       int       // FFT size
	Mag        []float64 // bins 0..Size/2
}

// BinHz returns the bin spacing.
func (s *Spectrum) BinHz() float64 {
	return float64(s.SampleRate) / float64(s.Size)
}

// NewSpectrum analyses x. Signals longer than the largest FFT are truncated.
func NewSpectrum(x []float64, sampleRate int) (*Spectrum, error) {
	if len(x) < 16 || sampleRate <= 0 {
		return nil, ErrShortSignal
	}
	n := len(x)
	if n > maxFFTSize {
		n = maxFFTSize
	}
	size := nextPow2(n)
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, err
	}
	buf := make([]float64, size)
	for i := 0; i < n; i++ {
		buf[i] = x[i] * hann(i, n)
	}
	spec := make([]complex128, size/2+1)
	plan.Forward(spec, buf)
	s := &Spectrum{SampleRate: sampleRate, Size: size, Mag: make([]float64, len(spec))}
	for k, c := range spec {
		s.Mag[k] = cmplx.Abs(c)
	}
	return s, nil
}

// Peak returns the frequency of the strongest bin above minHz, refined by
// parabolic interpolation on log magnitudes.
func (s *Spectrum) Peak(minHz float64) float64 {
	lo := int(math.Ceil(minHz / s.BinHz()))
	if lo < 1 {
		lo = 1
	}
	best := -1
	for k := lo; k < len(s.Mag)-1; k++ {
		if best < 0 || s.Mag[k] > s.Mag[best] {
			best = k
		}
	}
	if best < 0 {
		return 0
	}
	return s.refine(best)
}

// Peaks returns up to n local maxima above minHz, strongest first, refined
// like Peak. Maxima closer than three bins to a stronger one are skipped.
func (s *Spectrum) Peaks(n int, minHz float64) []float64 {
	lo := int(math.Ceil(minHz / s.BinHz()))
	if lo < 1 {
		lo = 1
	}
	var cand []int
	for k := lo; k < len(s.Mag)-1; k++ {
		if s.Mag[k] > s.Mag[k-1] && s.Mag[k] >= s.Mag[k+1] {
			cand = append(cand, k)
		}
	}
	sort.Slice(cand, func(i, j int) bool { return s.Mag[cand[i]] > s.Mag[cand[j]] })

	var picked []int
	for _, k := range cand {
		if len(picked) == n {
			break
		}
		clash := false
		for _, p := range picked {
			if k-p < 3 && p-k < 3 {
				clash = true
				break
			}
		}
		if !clash {
			picked = append(picked, k)
		}
	}
	out := make([]float64, len(picked))
	for i, k := range picked {
		out[i] = s.refine(k)
	}
	return out
}

func (s *Spectrum) refine(k int) float64 {
	a := math.Log(s.Mag[k-1] + 1e-30)
	b := math.Log(s.Mag[k] + 1e-30)
	c := math.Log(s.Mag[k+1] + 1e-30)
	off := 0.0
	if den := a - 2*b + c; den < 0 {
		off = 0.5 * (a - c) / den
	}
	return (float64(k) + off) * s.BinHz()
}

// PeakFrequency returns the dominant frequency of x above 20 Hz.
func PeakFrequency(x []float64, sampleRate int) (float64, error) {
	s, err := NewSpectrum(x, sampleRate)
	if err != nil {
		return 0, err
	}
	return s.Peak(20), nil
}

// DecayRate estimates the exponential decay of x in 1/s (negative for a
// decaying signal) from the slope of its RMS envelope after the peak.
func DecayRate(x []float64, sampleRate int) (float64, error) {
	env := rmsEnvelope(x, 256, 128)
	slope := decaySlopeDBPerS(env, 128/float64(sampleRate))
	if !isFinite(slope) {
		return 0, ErrShortSignal
	}
	return slope / dBPerNeper, nil
}

// dBPerNeper converts a dB/s slope to a natural-log amplitude rate.
var dBPerNeper = 20 / math.Ln10

func hann(i, n int) float64 {
	if n < 2 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
