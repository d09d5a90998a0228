package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/contact"
	fitcommon "github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/modal"
)

const (
	minDecay = 0.2   // 1/s
	maxDecay = 500.0 // 1/s
	minGain  = 1e-3
	maxGain  = 1.0
)

// fitMode is one decoded resonator: frequency in Hz, decay in 1/s (negative)
// and the single-vertex gain.
type fitMode struct {
	Freq  float64 `json:"freq"`
	Decay float64 `json:"decay"`
	Gain  float64 `json:"gain"`
}

// space maps the unit hypercube onto modes. Each mode contributes three
// dimensions: frequency within span of its centre, decay and gain on
// logarithmic scales.
type space struct {
	centres    []float64
	span       float64 // frequency ratio either side of the centre
	sampleRate int
}

func (s space) dims() int { return 3 * len(s.centres) }

func (s space) freqBounds(k int) (float64, float64) {
	lo := math.Max(21, s.centres[k]/s.span)
	hi := math.Min(0.45*float64(s.sampleRate), s.centres[k]*s.span)
	if hi <= lo {
		hi = lo * 1.001
	}
	return lo, hi
}

func (s space) decode(pos []float64) []fitMode {
	out := make([]fitMode, len(s.centres))
	for k := range out {
		lo, hi := s.freqBounds(k)
		out[k] = fitMode{
			Freq:  fitcommon.LogLerp(lo, hi, pos[3*k]),
			Decay: -fitcommon.LogLerp(minDecay, maxDecay, pos[3*k+1]),
			Gain:  fitcommon.LogLerp(minGain, maxGain, pos[3*k+2]),
		}
	}
	return out
}

func (s space) encode(modes []fitMode) []float64 {
	pos := make([]float64, s.dims())
	for k, m := range modes {
		lo, hi := s.freqBounds(k)
		pos[3*k] = fitcommon.InvLogLerp(lo, hi, m.Freq)
		pos[3*k+1] = fitcommon.InvLogLerp(minDecay, maxDecay, -m.Decay)
		pos[3*k+2] = fitcommon.InvLogLerp(minGain, maxGain, m.Gain)
	}
	return pos
}

// initialModes seeds the search from the strongest spectral peaks of ref
// and its overall envelope decay.
func initialModes(ref []float64, sampleRate, n int) ([]fitMode, error) {
	spec, err := analysis.NewSpectrum(ref, sampleRate)
	if err != nil {
		return nil, err
	}
	peaks := spec.Peaks(n, 30)
	if len(peaks) == 0 {
		return nil, fmt.Errorf("no spectral peaks in reference")
	}
	decay, err := analysis.DecayRate(ref, sampleRate)
	if err != nil || decay >= -minDecay {
		decay = -5
	}
	decay = math.Max(decay, -maxDecay)

	ref0 := spec.Mag[bin(spec, peaks[0])]
	out := make([]fitMode, len(peaks))
	for k, f := range peaks {
		g := 1.0
		if ref0 > 0 {
			g = fitcommon.Clamp(spec.Mag[bin(spec, f)]/ref0, minGain, maxGain)
		}
		out[k] = fitMode{Freq: f, Decay: decay, Gain: g}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Freq < out[j].Freq })
	return out, nil
}

func bin(s *analysis.Spectrum, hz float64) int {
	k := int(math.Round(hz / s.BinHz()))
	return min(max(k, 0), len(s.Mag)-1)
}

// buildModel turns modes into a single-vertex model.
func buildModel(id string, modes []fitMode) *modal.Model {
	n := len(modes)
	m := &modal.Model{
		ID:          id,
		NumModes:    n,
		NumVertices: 1,
		Freqs:       make([]float32, n),
		Decays:      make([]float32, n),
		Gains:       make([]float32, n),
	}
	for k, md := range modes {
		m.Freqs[k] = float32(md.Freq)
		m.Decays[k] = float32(md.Decay)
		m.Gains[k] = float32(md.Gain)
	}
	return m
}

// renderImpulse excites vertex 0 of m with a unit impulse and renders frames
// samples through a resonator bank.
func renderImpulse(m *modal.Model, sampleRate, frames int) ([]float64, error) {
	bank, err := modal.NewBank(m, sampleRate, nil, modal.BankOptions{})
	if err != nil {
		return nil, err
	}
	hit := []contact.Hit{{Weights: [3]float64{1, 0, 0}}}
	bank.Gains().Store(contact.Gains(hit, m, bank.Coefficients()))

	const block = 128
	exc := make([]float32, block)
	out := make([]float32, block)
	ir := make([]float64, 0, frames)
	for len(ir) < frames {
		clear(exc)
		if len(ir) == 0 {
			exc[0] = 1
		}
		clear(out)
		bank.Render(out, exc)
		n := min(block, frames-len(ir))
		for _, v := range out[:n] {
			ir = append(ir, float64(v))
		}
	}
	return ir, nil
}

type fitOptions struct {
	Variant  string
	Pop      int
	Evals    int // total across workers
	Workers  int // independent restarts run in parallel
	Seed     int64
	Span     float64
	ModelID  string
	Progress func(worker, evals int, score float64)
}

type fitResult struct {
	Model   *modal.Model
	Modes   []fitMode
	Metrics analysis.Metrics
	Initial analysis.Metrics
	Evals   int
}

type worker struct {
	best    []fitMode
	metrics analysis.Metrics
	evals   int
}

// fit searches for the modes whose impulse response is closest to ref. The
// initial guess is always evaluated, so the result never scores worse.
func fit(ctx context.Context, ref []float64, sampleRate int, guess []fitMode, opts fitOptions) (fitResult, error) {
	sp := space{sampleRate: sampleRate, span: opts.Span}
	if sp.span <= 1 {
		sp.span = 1.06
	}
	for _, m := range guess {
		sp.centres = append(sp.centres, m.Freq)
	}
	if len(sp.centres) == 0 {
		return fitResult{}, fmt.Errorf("no initial modes")
	}
	workers := max(1, opts.Workers)
	budget := max(1, opts.Evals/workers)
	pop := max(2, opts.Pop)

	evaluate := func(modes []fitMode) (analysis.Metrics, error) {
		ir, err := renderImpulse(buildModel(opts.ModelID, modes), sampleRate, len(ref))
		if err != nil {
			return analysis.Metrics{}, err
		}
		return analysis.Compare(ref, ir, sampleRate), nil
	}
	initial, err := evaluate(guess)
	if err != nil {
		return fitResult{}, err
	}

	results := make([]worker, workers)
	var progressMu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for w := range results {
		g.Go(func() error {
			res := &results[w]
			res.best = append([]fitMode(nil), guess...)
			res.metrics = initial

			cfg, err := fitcommon.NewMayflyConfig(opts.Variant, pop, sp.dims(), max(1, budget/(2*pop)))
			if err != nil {
				return err
			}
			cfg.Rand = rand.New(rand.NewSource(opts.Seed + int64(w)*7919))
			cfg.ObjectiveFunc = func(pos []float64) float64 {
				if res.evals >= budget || ctx.Err() != nil {
					return res.metrics.Score + 1.0
				}
				modes := sp.decode(pos)
				m, err := evaluate(modes)
				res.evals++
				if err != nil {
					return res.metrics.Score + 0.8
				}
				if m.Score < res.metrics.Score {
					res.best = modes
					res.metrics = m
					if opts.Progress != nil {
						progressMu.Lock()
						opts.Progress(w, res.evals, m.Score)
						progressMu.Unlock()
					}
				}
				return m.Score
			}
			_, err = fitcommon.RunMayfly(cfg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fitResult{}, err
	}

	out := fitResult{Initial: initial}
	bestIdx := 0
	for i, r := range results {
		out.Evals += r.evals
		if r.metrics.Score < results[bestIdx].metrics.Score {
			bestIdx = i
		}
	}
	out.Modes = results[bestIdx].best
	out.Metrics = results[bestIdx].metrics
	out.Model = buildModel(opts.ModelID, out.Modes)
	return out, nil
}
