package main

import (
	"context"
	"math"
	"testing"
)

func TestSpaceRoundTrip(t *testing.T) {
	sp := space{centres: []float64{440, 1200}, span: 1.06, sampleRate: 48000}
	modes := []fitMode{{Freq: 450, Decay: -8, Gain: 0.5}, {Freq: 1180, Decay: -30, Gain: 0.1}}
	got := sp.decode(sp.encode(modes))
	for k := range modes {
		if math.Abs(got[k].Freq-modes[k].Freq) > 1e-6 ||
			math.Abs(got[k].Decay-modes[k].Decay) > 1e-6 ||
			math.Abs(got[k].Gain-modes[k].Gain) > 1e-9 {
			t.Fatalf("mode %d: %+v, want %+v", k, got[k], modes[k])
		}
	}
	for _, m := range sp.decode(make([]float64, sp.dims())) {
		if m.Decay > -minDecay+1e-9 || m.Gain < minGain-1e-12 {
			t.Fatalf("lower corner out of range: %+v", m)
		}
	}
}

func TestRenderImpulseRingsAtModeFrequency(t *testing.T) {
	sr := 48000
	ir, err := renderImpulse(buildModel("ref", []fitMode{{Freq: 440, Decay: -8, Gain: 1}}), sr, sr/2)
	if err != nil {
		t.Fatalf("renderImpulse: %v", err)
	}
	if len(ir) != sr/2 {
		t.Fatalf("len = %d, want %d", len(ir), sr/2)
	}
	modes, err := initialModes(ir, sr, 1)
	if err != nil {
		t.Fatalf("initialModes: %v", err)
	}
	if math.Abs(modes[0].Freq-440) > 2 {
		t.Fatalf("peak = %.2f Hz, want 440", modes[0].Freq)
	}
	if math.Abs(modes[0].Decay+8) > 1.5 {
		t.Fatalf("decay = %.2f 1/s, want -8", modes[0].Decay)
	}
}

func TestFitNeverWorsensInitialGuess(t *testing.T) {
	sr := 48000
	ref, err := renderImpulse(buildModel("ref", []fitMode{{Freq: 440, Decay: -8, Gain: 1}}), sr, sr/2)
	if err != nil {
		t.Fatalf("renderImpulse: %v", err)
	}
	guess := []fitMode{{Freq: 452, Decay: -20, Gain: 1}}
	res, err := fit(context.Background(), ref, sr, guess, fitOptions{
		Variant: "desma",
		Pop:     4,
		Evals:   48,
		Workers: 2,
		Seed:    3,
		Span:    1.06,
		ModelID: "fit",
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if res.Metrics.Score > res.Initial.Score {
		t.Fatalf("score %.4f worse than initial %.4f", res.Metrics.Score, res.Initial.Score)
	}
	if res.Evals == 0 || res.Evals > 48 {
		t.Fatalf("evals = %d, want 1..48", res.Evals)
	}
	if err := res.Model.Validate(); err != nil {
		t.Fatalf("fitted model invalid: %v", err)
	}
	f := float64(res.Model.Freqs[0])
	if f < 452/1.06-1e-3 || f > 452*1.06+1e-3 {
		t.Fatalf("freq %.2f left the search window", f)
	}
}

func TestFitRejectsUnknownVariant(t *testing.T) {
	ref := make([]float64, 4096)
	ref[0] = 1
	_, err := fit(context.Background(), ref, 48000, []fitMode{{Freq: 440, Decay: -5, Gain: 1}}, fitOptions{Variant: "nope", Evals: 10})
	if err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}
