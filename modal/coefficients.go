package modal

import (
	"fmt"
	"math"
)

// Pole radius limits. Every derived resonator has R in [MinPole, MaxPole],
// so pathological decays (>= 0, NaN) still yield a decaying filter.
const (
	MinPole = 1e-9
	MaxPole = 0.999999
)

// nyquistGuard is the fraction of Nyquist above which a mode is muted.
const nyquistGuard = 0.95

// Scales uniformly scale the model at coefficient derivation time.
type Scales struct {
	Freq  float32 // 0.1..100
	Decay float32 // 0.01..10
	Gain  float32 // 0.1..100
}

// DefaultScales returns identity scales.
func DefaultScales() Scales {
	return Scales{Freq: 1, Decay: 1, Gain: 1}
}

func (s Scales) clamped() Scales {
	if s.Freq <= 0 {
		s.Freq = 1
	}
	if s.Decay <= 0 {
		s.Decay = 1
	}
	if s.Gain <= 0 {
		s.Gain = 1
	}
	s.Freq = clampf(s.Freq, 0.1, 100)
	s.Decay = clampf(s.Decay, 0.01, 10)
	s.Gain = clampf(s.Gain, 0.1, 100)
	return s
}

// Coefficients are the derived per-mode recursion terms. They are immutable
// after Derive and published to the bank by pointer swap.
type Coefficients struct {
	SampleRate int
	Scales     Scales

	TwoRCos []float32 // 2·R·cos(θ)
	R2      []float32 // R²
	RSin    []float32 // R·sin(θ), amplitude scale for gains
	Active  []bool    // false for modes at or above the Nyquist guard
}

// PoleRadius returns R = exp(decay/sampleRate) clamped into [MinPole, MaxPole].
func PoleRadius(decay float64, sampleRate float64) float64 {
	r := math.Exp(decay / sampleRate)
	if math.IsNaN(r) || r > MaxPole {
		return MaxPole
	}
	if r < MinPole {
		return MinPole
	}
	return r
}

// Derive computes coefficients for every mode of m at sampleRate.
func Derive(m *Model, sampleRate int, scales Scales) (*Coefficients, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0, got %d", sampleRate)
	}
	scales = scales.clamped()
	nf := m.NumModes
	c := &Coefficients{
		SampleRate: sampleRate,
		Scales:     scales,
		TwoRCos:    make([]float32, nf),
		R2:         make([]float32, nf),
		RSin:       make([]float32, nf),
		Active:     make([]bool, nf),
	}
	fs := float64(sampleRate)
	nyquist := 0.5 * fs
	for i := 0; i < nf; i++ {
		freq := float64(m.Freqs[i]) * float64(scales.Freq)
		r := PoleRadius(float64(m.Decays[i])*float64(scales.Decay), fs)
		theta := 2.0 * math.Pi * freq / fs
		c.TwoRCos[i] = float32(2.0 * r * math.Cos(theta))
		c.R2[i] = float32(r * r)
		c.RSin[i] = float32(r * math.Sin(theta))
		c.Active[i] = freq < nyquist*nyquistGuard
	}
	return c, nil
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
