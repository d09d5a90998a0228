package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/internal/cli"
	fitcommon "github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/internal/logger"
	"github.com/cwbudde/algo-modal/internal/wavio"
	"github.com/cwbudde/algo-modal/modelfile"
)

func main() {
	referencePath := flag.String("reference", "", "Recorded impact WAV to fit (required)")
	configPath := flag.String("config", "", "Config YAML path (default ./modal.yaml if present)")
	sampleRate := flag.Int("sample-rate", 0, "Analysis sample rate in Hz (0 = config audio.sample_rate)")
	modes := flag.Int("modes", 4, "Number of modes to fit")
	maxDuration := flag.Float64("max-duration", 2.0, "Use at most this many seconds of the reference")
	span := flag.Float64("span", 1.06, "Frequency search ratio either side of each detected peak")
	variant := flag.String("mayfly-variant", "desma", "Mayfly variant: "+strings.Join(fitcommon.Variants, "|"))
	pop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	maxEvals := flag.Int("max-evals", 2000, "Total evaluation budget across workers")
	workersFlag := flag.String("workers", "auto", "Parallel independent restarts (integer or 'auto')")
	seed := flag.Int64("seed", 1, "Random seed")
	timeLimit := flag.Duration("time-limit", 10*time.Minute, "Stop after this long")
	output := flag.String("output", "fit.json", "Output model JSON path")
	outputWAV := flag.String("output-wav", "", "Optional WAV of the fitted impulse response")
	reportPath := flag.String("report", "", "Optional JSON report path")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *referencePath == "" {
		die("-reference is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		die("config: %v", err)
	}
	if err := cli.InitLogger(cfg, *debug); err != nil {
		die("logger: %v", err)
	}
	defer logger.Sync()

	workers, err := fitcommon.ParseWorkers(*workersFlag)
	if err != nil {
		die("invalid -workers: %v", err)
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	sr := *sampleRate
	if sr <= 0 {
		sr = cfg.Audio.SampleRate
	}

	ref, err := wavio.ReadMonoAt(*referencePath, sr)
	if err != nil {
		die("failed to read reference %q: %v", *referencePath, err)
	}
	if limit := int(*maxDuration * float64(sr)); limit > 0 && len(ref) > limit {
		ref = ref[:limit]
	}

	guess, err := initialModes(ref, sr, *modes)
	if err != nil {
		die("failed to analyse reference: %v", err)
	}
	for k, m := range guess {
		logger.Debug("initial mode", zap.Int("mode", k), zap.Float64("freq", m.Freq), zap.Float64("decay", m.Decay), zap.Float64("gain", m.Gain))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeLimit)
	defer cancel()

	id := strings.TrimSuffix(filepath.Base(*output), filepath.Ext(*output))
	fmt.Printf("Fitting %d modes to %s (%d frames at %d Hz, %d workers, variant %s)...\n", len(guess), *referencePath, len(ref), sr, workers, *variant)
	start := time.Now()
	res, err := fit(ctx, ref, sr, guess, fitOptions{
		Variant: strings.ToLower(*variant),
		Pop:     *pop,
		Evals:   *maxEvals,
		Workers: workers,
		Seed:    *seed,
		Span:    *span,
		ModelID: id,
		Progress: func(w, evals int, score float64) {
			fmt.Printf("Improved worker=%d eval=%d score=%.4f elapsed=%.1fs\n", w, evals, score, time.Since(start).Seconds())
		},
	})
	if err != nil {
		die("fit failed: %v", err)
	}

	if err := modelfile.SaveJSON(*output, res.Model); err != nil {
		die("failed to write model: %v", err)
	}
	if *outputWAV != "" {
		ir, err := renderImpulse(res.Model, sr, len(ref))
		if err != nil {
			die("failed to render fitted model: %v", err)
		}
		if err := wavio.WriteMono(*outputWAV, wavio.ToFloat32(ir), sr); err != nil {
			die("failed to write %s: %v", *outputWAV, err)
		}
	}
	if *reportPath != "" {
		if err := writeReport(*reportPath, *referencePath, res, time.Since(start)); err != nil {
			fmt.Fprintf(os.Stderr, "report write failed: %v\n", err)
		}
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs initial_score=%.4f best_score=%.4f output=%s\n",
		res.Evals, time.Since(start).Seconds(), res.Initial.Score, res.Metrics.Score, *output)
}

type report struct {
	Reference string           `json:"reference"`
	ElapsedS  float64          `json:"elapsed_s"`
	Evals     int              `json:"evals"`
	Modes     []fitMode        `json:"modes"`
	Initial   analysis.Metrics `json:"initial"`
	Best      analysis.Metrics `json:"best"`
}

func writeReport(path, reference string, res fitResult, elapsed time.Duration) error {
	r := report{
		Reference: reference,
		ElapsedS:  elapsed.Seconds(),
		Evals:     res.Evals,
		Modes:     res.Modes,
		Initial:   res.Initial,
		Best:      res.Metrics,
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
