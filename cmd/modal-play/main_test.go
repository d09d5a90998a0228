package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/internal/cli"
	"github.com/cwbudde/algo-modal/stream"
)

func TestStrikeExcitesUntilCancelled(t *testing.T) {
	cfg := config.Default()
	env := cfg.Env(nil)
	env.Mode = stream.Direct
	b, err := cli.ObjectFlags{Mesh: "plate", Size: 0.2, Detail: 4, Material: "steel"}.Build(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- strike(ctx, b, striker{
			interval: 5 * time.Millisecond,
			velocity: 2,
			mass:     0.5,
			wander:   true,
			rng:      rand.New(rand.NewSource(1)),
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("strike: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("strike did not stop after cancellation")
	}

	out := make([]float32, 2*512)
	var e float64
	for i := 0; i < 4; i++ {
		b.Source.Fill(out, 2)
		for _, v := range out {
			e += float64(v) * float64(v)
		}
	}
	if e == 0 {
		t.Fatalf("no sound after strikes")
	}
}
