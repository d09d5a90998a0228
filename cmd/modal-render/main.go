package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/internal/cli"
	"github.com/cwbudde/algo-modal/internal/logger"
	"github.com/cwbudde/algo-modal/internal/wavio"
	"github.com/cwbudde/algo-modal/sonic"
	"github.com/cwbudde/algo-modal/stream"
)

func main() {
	var obj cli.ObjectFlags
	obj.Register(flag.CommandLine)
	configPath := flag.String("config", "", "Config YAML path (default ./modal.yaml if present)")
	duration := flag.Float64("duration", 2.0, "Duration in seconds")
	hitsFlag := flag.String("hits", "0", "Impact times in seconds, optionally @vertex (e.g. 0,0.5@12)")
	velocity := flag.Float64("velocity", 2.0, "Impact speed in m/s")
	mass := flag.Float64("mass", 0.5, "Impactor mass in kg")
	soft := flag.Bool("soft", false, "Use raised-cosine pulses instead of noise bursts")
	slideStart := flag.Float64("slide-start", -1, "Start sliding at this time in seconds (< 0 disables)")
	slideEnd := flag.Float64("slide-end", -1, "Stop sliding at this time in seconds")
	slideSpeed := flag.Float64("slide-speed", 1.0, "Sliding speed in m/s")
	output := flag.String("output", "output.wav", "Output WAV file path")
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

	hits, err := cli.ParseHits(*hitsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -hits: %v\n", err)
		os.Exit(1)
	}

	env := cfg.Env(logger.Named("render"))
	env.Mode = stream.Direct

	built, err := obj.Build(context.Background(), cfg, env, logger.Log)
	if built == nil {
		fmt.Fprintf(os.Stderr, "Error building object: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		logger.Warn("rendering degraded object", zap.Error(err))
	}

	sr := env.SampleRate
	channels := env.Channels
	block := env.DeviceBlockSize
	if block <= 0 {
		block = env.BlockSize
	}
	totalFrames := max(1, int(float64(sr)*(*duration)))

	fmt.Printf("Rendering %s for %.2f seconds at %d Hz (%d hits)...\n", built.Object.Name(), *duration, sr, len(hits))

	r := renderer{
		obj:      built,
		hits:     hits,
		velocity: *velocity,
		mass:     *mass,
		soft:     *soft,
		slide: slideWindow{
			start: *slideStart,
			end:   *slideEnd,
			speed: float32(*slideSpeed),
		},
	}
	samples := r.render(sr, channels, block, totalFrames)

	if err := wavio.WriteInterleaved(*output, samples, sr, channels); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	rms := wavio.RMS(samples)
	fmt.Printf("Successfully wrote %s (%d frames, %.1f dBFS RMS)\n", *output, totalFrames, 20*math.Log10(rms+1e-12))
}

type slideWindow struct {
	start, end float64
	speed      float32
}

func (w slideWindow) active(t float64) bool {
	return w.start >= 0 && t >= w.start && t < w.end
}

// renderer drives one object in direct mode, firing scheduled contacts at
// block boundaries.
type renderer struct {
	obj      *cli.Built
	hits     []cli.Hit
	velocity float64
	mass     float64
	soft     bool
	slide    slideWindow
}

func (r *renderer) render(sr, channels, block, totalFrames int) []float32 {
	samples := make([]float32, 0, totalFrames*channels)
	buf := make([]float32, block*channels)
	next := 0
	sliding := false
	for frames := 0; frames < totalFrames; {
		t := float64(frames) / float64(sr)
		for next < len(r.hits) && r.hits[next].At <= time.Duration(t*float64(time.Second)) {
			r.obj.Object.Collide(sonic.Collision{
				Points:           []r3.Vec{r.obj.HitPoint(r.hits[next].Vertex)},
				RelativeVelocity: r3.Vec{Y: -r.velocity},
				Mass:             r.mass,
				Soft:             r.soft,
			})
			next++
		}
		if on := r.slide.active(t); on || sliding {
			r.obj.Object.Slide(r.slide.speed, on)
			sliding = on
		}

		n := min(block, totalFrames-frames)
		out := buf[:n*channels]
		r.obj.Source.Fill(out, channels)
		samples = append(samples, out...)
		frames += n
	}
	return samples
}
