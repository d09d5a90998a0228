package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestPeakFrequencyOfDecayingSine(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440, 1, 0.3)
	f, err := PeakFrequency(x, sr)
	if err != nil {
		t.Fatalf("PeakFrequency: %v", err)
	}
	if math.Abs(f-440) > 2 {
		t.Fatalf("peak = %.2f Hz, want 440", f)
	}
}

func TestPeakFrequencyRejectsShortInput(t *testing.T) {
	if _, err := PeakFrequency(make([]float64, 4), 48000); err != ErrShortSignal {
		t.Fatalf("expected ErrShortSignal, got %v", err)
	}
}

func TestPeaksFindsStrongestPartials(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 300, 1, 0.3)
	b := makeDecaySine(sr, 1200, 1, 0.3)
	for i := range a {
		a[i] += 0.5 * b[i]
	}
	s, err := NewSpectrum(a, sr)
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	peaks := s.Peaks(2, 20)
	if len(peaks) != 2 {
		t.Fatalf("got %d peaks, want 2", len(peaks))
	}
	if math.Abs(peaks[0]-300) > 2 || math.Abs(peaks[1]-1200) > 2 {
		t.Fatalf("peaks = %v, want [300 1200]", peaks)
	}
}

func TestDecayRateMatchesEnvelope(t *testing.T) {
	sr := 48000
	// exp(-t/0.2) decays at -5 1/s.
	x := makeDecaySine(sr, 1000, 1, 0.2)
	d, err := DecayRate(x, sr)
	if err != nil {
		t.Fatalf("DecayRate: %v", err)
	}
	if math.Abs(d+5) > 0.5 {
		t.Fatalf("decay = %.3f 1/s, want -5", d)
	}
}

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 1.5, 0.7)
	m := Compare(x, x, sr)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical signals, got %f", m.Score)
	}
	if m.LagSamples != 0 {
		t.Fatalf("lag = %d, want 0", m.LagSamples)
	}
}

func TestCompareDifferentSignalsHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 261.63, 1.8, 0.8)
	b := makeDecaySine(sr, 330.0, 0.8, 0.25)
	m := Compare(a, b, sr)
	if m.Score < 0.25 {
		t.Fatalf("expected higher score for different signals, got %f", m.Score)
	}
	if math.Abs(m.RefPeakHz-261.63) > 2 || math.Abs(m.CandPeakHz-330) > 2 {
		t.Fatalf("peaks = %.2f, %.2f", m.RefPeakHz, m.CandPeakHz)
	}
}

func TestCompareEmptyIsMaximal(t *testing.T) {
	if m := Compare(nil, []float64{1, 2}, 48000); m.Score != 1 {
		t.Fatalf("score = %v, want 1", m.Score)
	}
}

func TestEstimateLagFindsShift(t *testing.T) {
	const n = 4096
	ref := randomSignal(n, 7)
	for _, shift := range []int{137, -91} {
		cand := make([]float64, n)
		if shift > 0 {
			copy(cand, ref[shift:])
		} else {
			copy(cand[-shift:], ref)
		}
		if got := estimateLag(ref, cand, 300); got != shift {
			t.Fatalf("estimateLag() = %d, want %d", got, shift)
		}
	}
}

func BenchmarkCompare(b *testing.B) {
	const sr = 48000
	ref := makeDecaySine(sr, 440, 1, 0.3)
	cand := makeDecaySine(sr, 445, 1, 0.25)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand, sr)
	}
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := int(float64(sr) * durationSec)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sr)
		out[i] = math.Exp(-t/decaySec) * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}
