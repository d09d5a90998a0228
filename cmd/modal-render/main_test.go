package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/internal/cli"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modelfile"
	"github.com/cwbudde/algo-modal/stream"
)

func buildBell(t *testing.T) *cli.Built {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bell.json")
	m := &modal.Model{NumModes: 1, NumVertices: 1, Freqs: []float32{440}, Decays: []float32{-6}, Gains: []float32{1}}
	if err := modelfile.SaveJSON(path, m); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	cfg := config.Default()
	env := cfg.Env(nil)
	env.Mode = stream.Direct
	b, err := cli.ObjectFlags{Model: path}.Build(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return b
}

func energy(x []float32) float64 {
	var e float64
	for _, v := range x {
		e += float64(v) * float64(v)
	}
	return e
}

func TestRenderFiresScheduledHits(t *testing.T) {
	hits, err := cli.ParseHits("0.5")
	if err != nil {
		t.Fatalf("ParseHits: %v", err)
	}
	r := renderer{obj: buildBell(t), hits: hits, velocity: 2, mass: 0.5, slide: slideWindow{start: -1}}
	const sr, ch = 48000, 2
	out := r.render(sr, ch, 512, sr)
	if len(out) != sr*ch {
		t.Fatalf("len = %d, want %d", len(out), sr*ch)
	}
	half := sr / 2 * ch
	before, after := energy(out[:half]), energy(out[half:])
	if after <= 100*before || after == 0 {
		t.Fatalf("expected the hit at 0.5s to dominate: before=%g after=%g", before, after)
	}
}

func TestRenderHandlesPartialLastBlock(t *testing.T) {
	r := renderer{obj: buildBell(t), slide: slideWindow{start: -1}}
	out := r.render(48000, 2, 512, 1000)
	if len(out) != 2000 {
		t.Fatalf("len = %d, want 2000", len(out))
	}
}

func TestSlideWindow(t *testing.T) {
	w := slideWindow{start: 1, end: 2}
	for _, c := range []struct {
		t    float64
		want bool
	}{{0.5, false}, {1, true}, {1.9, true}, {2, false}} {
		if got := w.active(c.t); got != c.want {
			t.Fatalf("active(%v) = %v, want %v", c.t, got, c.want)
		}
	}
	if (slideWindow{start: -1, end: 5}).active(1) {
		t.Fatalf("negative start should disable sliding")
	}
}
