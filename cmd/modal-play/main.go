package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/device"
	"github.com/cwbudde/algo-modal/internal/cli"
	"github.com/cwbudde/algo-modal/internal/logger"
	"github.com/cwbudde/algo-modal/sonic"
)

func main() {
	var obj cli.ObjectFlags
	obj.Register(flag.CommandLine)
	configPath := flag.String("config", "", "Config YAML path (default ./modal.yaml if present)")
	duration := flag.Duration("duration", 5*time.Second, "Play for this long (0 = until interrupted)")
	interval := flag.Duration("interval", 500*time.Millisecond, "Time between impacts")
	velocity := flag.Float64("velocity", 2.0, "Impact speed in m/s")
	mass := flag.Float64("mass", 0.5, "Impactor mass in kg")
	soft := flag.Bool("soft", false, "Use raised-cosine pulses instead of noise bursts")
	wander := flag.Bool("wander", true, "Strike a random vertex each time")
	slideSpeed := flag.Float64("slide-speed", 0, "Continuous sliding speed in m/s (0 disables)")
	seed := flag.Int64("seed", 1, "Random seed for -wander")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cli.InitLogger(cfg, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error initialising logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	env := cfg.Env(logger.Named("play"))
	built, err := obj.Build(ctx, cfg, env, logger.Log)
	if built == nil {
		fmt.Fprintf(os.Stderr, "Error building object: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		logger.Warn("playing degraded object", zap.Error(err))
	}

	dev, err := device.Open(built.Source, device.Options{
		SampleRate:  env.SampleRate,
		Channels:    env.Channels,
		BlockFrames: env.DeviceBlockSize,
		Logger:      logger.Named("device"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	fmt.Printf("Playing %s at %d Hz (%s mode), impact every %v. Ctrl-C to stop.\n", built.Object.Name(), env.SampleRate, env.Mode, *interval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return built.Run(ctx) })
	g.Go(func() error {
		return strike(ctx, built, striker{
			interval: *interval,
			velocity: *velocity,
			mass:     *mass,
			soft:     *soft,
			wander:   *wander,
			slide:    float32(*slideSpeed),
			rng:      rand.New(rand.NewSource(*seed)),
		})
	})
	dev.Start()

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Playback failed: %v\n", err)
	}
	built.Object.Close()

	st := built.Object.Stats()
	logger.Info("playback stopped",
		zap.Uint64("device_callbacks", dev.Callbacks()),
		zap.Uint64("device_frames", dev.Frames()),
		zap.Uint64("underruns", st.Underruns),
		zap.Uint64("overflows", st.Overflows))
	fmt.Printf("Done: %d callbacks, %d underruns, %d overflows\n", st.Callbacks, st.Underruns, st.Overflows)
}

type striker struct {
	interval time.Duration
	velocity float64
	mass     float64
	soft     bool
	wander   bool
	slide    float32
	rng      *rand.Rand
}

// strike delivers impacts on a ticker until ctx is done, the way the physics
// collaborator would deliver collision events.
func strike(ctx context.Context, b *cli.Built, s striker) error {
	if s.slide > 0 {
		b.Object.Slide(s.slide, true)
		defer b.Object.Slide(0, false)
	}
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		vertex := 0
		if s.wander && b.Mesh != nil {
			vertex = s.rng.Intn(len(b.Mesh.Vertices))
		}
		b.Object.Collide(sonic.Collision{
			Points:           []r3.Vec{b.HitPoint(vertex)},
			RelativeVelocity: r3.Vec{Y: -s.velocity},
			Mass:             s.mass,
			Soft:             s.soft,
		})
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
