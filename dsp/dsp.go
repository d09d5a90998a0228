package dsp

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const ln10Over20 = 0.11512925464970229

// Random is a linear congruential noise source (no heap allocations in Next).
type Random struct {
	seed uint64
}

// NewRandom creates a noise source with the given seed.
func NewRandom(seed uint64) *Random {
	return &Random{seed: seed}
}

// Next returns a uniform value in [0, 1].
func (r *Random) Next() float32 {
	const scale = 1.0 / float32(0x7FFFFFFF)
	r.seed = r.seed*69069 + 1
	return float32(((r.seed>>16)^r.seed)&0x7FFFFFFF) * scale
}

// Range returns a uniform value in [lo, hi].
func (r *Random) Range(lo, hi float32) float32 {
	return lo + (hi-lo)*r.Next()
}

// Compressor is a logistic soft limiter:
// y = Limit/(1+exp(-Growth*(x-Midpoint))) - Limit/2.
type Compressor struct {
	Limit    float32
	Growth   float32
	Midpoint float32
}

// DefaultCompressor returns the limiter tuned for int16-scaled modal output.
func DefaultCompressor() Compressor {
	return Compressor{
		Limit:    2.0,
		Growth:   0.00015,
		Midpoint: 0,
	}
}

// Apply compresses one sample.
func (c Compressor) Apply(x float32) float32 {
	e := math.Exp(-float64(c.Growth) * float64(x-c.Midpoint))
	return c.Limit/float32(1+e) - 0.5*c.Limit
}

// Flush converts denormal numbers to zero to avoid performance issues.
func Flush(x float32) float32 {
	return float32(dspcore.FlushDenormals(float64(x)))
}

// DBToLinear converts decibels to a linear amplitude factor.
func DBToLinear(db float32) float32 {
	return float32(math.Pow(10, float64(db)*0.05))
}

// FastDBToLinear is DBToLinear through a fast exp approximation.
// Use it on block-rate paths where a few ulps of error are inaudible.
func FastDBToLinear(db float32) float32 {
	return approx.FastExp(db * ln10Over20)
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
