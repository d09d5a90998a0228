package dsp

import (
	"math"
	"testing"
)

func TestRandomRangeStaysInBounds(t *testing.T) {
	r := NewRandom(12345)
	for i := 0; i < 100000; i++ {
		v := r.Range(-1, 1)
		if v < -1 || v > 1 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestRandomIsDeterministicPerSeed(t *testing.T) {
	a := NewRandom(7)
	b := NewRandom(7)
	for i := 0; i < 64; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("sequences diverged at %d", i)
		}
	}
}

func TestCompressorZeroInIsZeroOut(t *testing.T) {
	c := DefaultCompressor()
	if got := c.Apply(0); got != 0 {
		t.Fatalf("Apply(0) = %g, want 0", got)
	}
}

func TestCompressorIsBoundedAndOdd(t *testing.T) {
	c := DefaultCompressor()
	half := 0.5 * c.Limit
	for _, x := range []float32{10, 1000, 30000, 1e6, 1e9} {
		pos := c.Apply(x)
		neg := c.Apply(-x)
		if pos <= 0 || pos > half {
			t.Fatalf("Apply(%g) = %g outside (0,%g]", x, pos, half)
		}
		if math.Abs(float64(pos+neg)) > 1e-5 {
			t.Fatalf("expected odd symmetry at %g: %g vs %g", x, pos, neg)
		}
	}
	if c.Apply(1000) >= c.Apply(2000) {
		t.Fatalf("expected monotonic compression")
	}
}

func TestDBToLinear(t *testing.T) {
	if got := DBToLinear(0); math.Abs(float64(got-1)) > 1e-6 {
		t.Fatalf("0 dB = %f", got)
	}
	if got := DBToLinear(-20); math.Abs(float64(got-0.1)) > 1e-6 {
		t.Fatalf("-20 dB = %f", got)
	}
	for _, db := range []float32{-80, -40, -6, 0, 6, 20} {
		exact := DBToLinear(db)
		fast := FastDBToLinear(db)
		if math.Abs(float64(fast-exact)) > 0.01*float64(exact) {
			t.Fatalf("fast dB conversion too far off at %g: fast=%g exact=%g", db, fast, exact)
		}
	}
}

func TestFlushKeepsNormalValues(t *testing.T) {
	if Flush(0) != 0 {
		t.Fatalf("expected zero to stay zero")
	}
	if Flush(0.5) != 0.5 {
		t.Fatalf("expected normal value to pass through")
	}
}
