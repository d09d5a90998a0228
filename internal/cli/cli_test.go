package cli

import (
	"context"
	"flag"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modelfile"
	"github.com/cwbudde/algo-modal/sonic"
	"github.com/cwbudde/algo-modal/stream"
)

func directEnv(t *testing.T) (*config.Config, sonic.Env) {
	t.Helper()
	cfg := config.Default()
	env := cfg.Env(nil)
	env.Mode = stream.Direct
	return cfg, env
}

func TestParseHits(t *testing.T) {
	hits, err := ParseHits("1.5, 0@3 ,0.25")
	if err != nil {
		t.Fatalf("ParseHits: %v", err)
	}
	want := []Hit{{At: 0, Vertex: 3}, {At: 250 * time.Millisecond}, {At: 1500 * time.Millisecond}}
	if len(hits) != len(want) {
		t.Fatalf("got %v, want %v", hits, want)
	}
	for i := range want {
		if hits[i] != want[i] {
			t.Fatalf("hit %d = %+v, want %+v", i, hits[i], want[i])
		}
	}
	for _, bad := range []string{"x", "-1", "0@a", "0@-2"} {
		if _, err := ParseHits(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
	if hits, err := ParseHits(""); err != nil || len(hits) != 0 {
		t.Fatalf("empty: %v, %v", hits, err)
	}
}

func TestRegisterDefaults(t *testing.T) {
	var f ObjectFlags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Register(fs)
	if err := fs.Parse([]string{"-mesh", "sphere", "-material", "steel"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Mesh != "sphere" || f.Material != "steel" || f.Size != 0.2 {
		t.Fatalf("unexpected flags %+v", f)
	}
}

func TestBuildFromModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bell.json")
	m := &modal.Model{NumModes: 1, NumVertices: 1, Freqs: []float32{440}, Decays: []float32{-3}, Gains: []float32{1}}
	if err := modelfile.SaveJSON(path, m); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	cfg, env := directEnv(t)
	b, err := ObjectFlags{Model: path, Friction: "sine"}.Build(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Mesh != nil || !b.Object.Ready() {
		t.Fatalf("expected ready unindexed object")
	}
	if p := b.HitPoint(5); p.X != 0 || p.Y != 0 || p.Z != 0 {
		t.Fatalf("hit point without mesh = %v", p)
	}
}

func TestBuildMissingModelIsSilent(t *testing.T) {
	cfg, env := directEnv(t)
	b, err := ObjectFlags{Model: filepath.Join(t.TempDir(), "none.json")}.Build(context.Background(), cfg, env, nil)
	if err == nil {
		t.Fatalf("expected load error")
	}
	if b == nil || b.Object.Ready() {
		t.Fatalf("expected a silent object alongside the error")
	}
}

func TestBuildPrimitiveThroughScene(t *testing.T) {
	cfg, env := directEnv(t)
	f := ObjectFlags{Mesh: "plate", Size: 0.2, Detail: 4, Material: "wood"}
	b, err := f.Build(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Mesh == nil || b.Object.Model() == nil {
		t.Fatalf("expected meshed object with a model")
	}
	if got, want := b.HitPoint(1000), b.Mesh.Vertices[len(b.Mesh.Vertices)-1]; got != want {
		t.Fatalf("HitPoint should clamp to the last vertex: %v", got)
	}

	if !b.Object.Collide(sonic.Collision{
		Points:           []r3.Vec{b.HitPoint(12)},
		RelativeVelocity: r3.Vec{Y: -2},
		Mass:             0.5,
	}) {
		t.Fatalf("impact rejected")
	}
	out := make([]float32, 2*512)
	var energy float64
	for i := 0; i < 8; i++ {
		b.Source.Fill(out, 2)
		for _, v := range out {
			energy += float64(v) * float64(v)
		}
	}
	if energy == 0 {
		t.Fatalf("scene stayed silent after a hit")
	}
}

func TestBuildRejectsUnknownInputs(t *testing.T) {
	cfg, env := directEnv(t)
	if _, err := (ObjectFlags{Mesh: "torus", Size: 1, Material: "wood"}).Build(context.Background(), cfg, env, nil); err == nil {
		t.Fatalf("expected unknown mesh error")
	}
	if _, err := (ObjectFlags{Mesh: "plate", Size: 1, Material: "cheese"}).Build(context.Background(), cfg, env, nil); err == nil {
		t.Fatalf("expected unknown material error")
	}
}
