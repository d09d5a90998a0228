package fitcommon

import (
	"math"
	"math/rand"
	"testing"
)

func TestLogLerpRoundTrip(t *testing.T) {
	for _, u := range []float64{0, 0.25, 0.5, 1} {
		v := LogLerp(20, 20000, u)
		if got := InvLogLerp(20, 20000, v); math.Abs(got-u) > 1e-12 {
			t.Fatalf("u=%v: round trip %v", u, got)
		}
	}
	if v := LogLerp(1, 100, 0.5); math.Abs(v-10) > 1e-9 {
		t.Fatalf("midpoint = %v, want 10", v)
	}
	if got := InvLogLerp(1, 100, 1000); got != 1 {
		t.Fatalf("above range should clamp to 1, got %v", got)
	}
}

func TestParseWorkers(t *testing.T) {
	if n, err := ParseWorkers("auto"); err != nil || n != 0 {
		t.Fatalf("auto: %d, %v", n, err)
	}
	if n, err := ParseWorkers(" 4 "); err != nil || n != 4 {
		t.Fatalf("4: %d, %v", n, err)
	}
	for _, bad := range []string{"", "0", "x"} {
		if _, err := ParseWorkers(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestNewMayflyConfigRejectsUnknownVariant(t *testing.T) {
	if _, err := NewMayflyConfig("nope", 10, 3, 5); err == nil {
		t.Fatalf("expected error")
	}
	for _, v := range Variants {
		cfg, err := NewMayflyConfig(v, 10, 3, 5)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if cfg.ProblemSize != 3 || cfg.NPop != 10 || cfg.NC != 20 || cfg.NM != 1 {
			t.Fatalf("%s: unexpected config %+v", v, cfg)
		}
	}
}

func TestRunMayflyMinimizesSphere(t *testing.T) {
	cfg, err := NewMayflyConfig("desma", 10, 2, 30)
	if err != nil {
		t.Fatalf("NewMayflyConfig: %v", err)
	}
	cfg.Rand = rand.New(rand.NewSource(1))
	best := math.Inf(1)
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		var s float64
		for _, x := range pos {
			s += (x - 0.3) * (x - 0.3)
		}
		best = math.Min(best, s)
		return s
	}
	if _, err := RunMayfly(cfg); err != nil {
		t.Fatalf("RunMayfly: %v", err)
	}
	if best > 0.01 {
		t.Fatalf("best = %v, want < 0.01", best)
	}
}
