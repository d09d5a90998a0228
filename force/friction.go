package force

import (
	"math"

	"github.com/cwbudde/algo-modal/dsp"
	"github.com/cwbudde/algo-modal/internal/lockfree"
)

const (
	frictionBaseLevel = 35000.0
	frictionMaxLevel  = 32767.0
	frictionMinLevel  = 0.01
	frictionFreqEps   = 5e-3
)

// FrictionOptions tune the friction oscillator.
type FrictionOptions struct {
	DecayTime float32 // seconds, level settling when the pitch is steady
	InitialDB float32 // level until the first SetLevel
	BaseLevel float32 // linear level at 0 dB before clamping
}

// DefaultFrictionOptions starts the oscillator at -80 dB with a 150 ms decay.
func DefaultFrictionOptions() FrictionOptions {
	return FrictionOptions{DecayTime: 0.15, InitialDB: -80, BaseLevel: frictionBaseLevel}
}

// Friction is a wavetable oscillator reading a single-cycle loop with linear
// interpolation. Pitch and level targets are set through coalescing cells
// from any goroutine and applied at the next block.
type Friction struct {
	table      []float32 // loop plus one guard sample
	size       float32
	sampleRate float32

	baseFreq   float32
	baseLevel  float32
	freq       float32
	targetFreq float32
	level      float32
	decay      float32
	index      float32
	delta      float32

	freqCell  lockfree.Latest
	levelCell lockfree.Latest
}

// NewFriction creates a friction oscillator over loop at sampleRate. The loop
// is copied. An empty loop yields a silent generator.
func NewFriction(loop []float32, sampleRate int, opts FrictionOptions) *Friction {
	def := DefaultFrictionOptions()
	if opts.DecayTime <= 0 {
		opts.DecayTime = def.DecayTime
	}
	if opts.BaseLevel <= 0 {
		opts.BaseLevel = def.BaseLevel
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	f := &Friction{
		sampleRate: float32(sampleRate),
		baseLevel:  opts.BaseLevel,
		decay:      float32(math.Exp(-1.0 / float64(sampleRate) / float64(opts.DecayTime))),
	}
	if len(loop) == 0 {
		return f
	}
	f.table = make([]float32, len(loop)+1)
	copy(f.table, loop)
	f.table[len(loop)] = loop[0]
	f.size = float32(len(loop))
	f.baseFreq = f.sampleRate / f.size
	f.freq = f.baseFreq
	f.targetFreq = f.baseFreq
	f.updateDelta()
	f.applyLevel(opts.InitialDB)
	return f
}

// HasLoop reports whether a loop was provided.
func (f *Friction) HasLoop() bool { return len(f.table) > 0 }

// BaseFrequency returns the loop's natural playback frequency.
func (f *Friction) BaseFrequency() float32 { return f.baseFreq }

// Level returns the current linear level. Only valid on the generation
// goroutine.
func (f *Friction) Level() float32 { return f.level }

// SetFrequencyPct sets the pitch as a multiple of the base frequency,
// clamped to [0.05, 10]. Unconsumed updates are replaced.
func (f *Friction) SetFrequencyPct(pct float32) {
	if !f.HasLoop() || !dsp.IsFinite(pct) {
		return
	}
	f.freqCell.Store(pct)
}

// SetLevel sets the level in dB relative to the base level. The level jumps
// immediately when the update is applied.
func (f *Friction) SetLevel(db float32) {
	if !f.HasLoop() || math.IsNaN(float64(db)) {
		return
	}
	f.levelCell.Store(db)
}

func (f *Friction) applyLevel(db float32) {
	var lin float32
	if !math.IsInf(float64(db), -1) {
		lin = dsp.FastDBToLinear(dsp.Clamp(db, -200, 60)) * f.baseLevel
	}
	f.level = dsp.Clamp(lin, 0, frictionMaxLevel)
}

func (f *Friction) updateDelta() {
	f.delta = f.freq * f.size / f.sampleRate
}

func (f *Friction) next() float32 {
	i0 := int(f.index)
	frac := f.index - float32(i0)
	v0 := f.table[i0]
	v1 := f.table[i0+1]
	f.index += f.delta
	for f.index >= f.size {
		f.index -= f.size
	}
	return v0 + frac*(v1-v0)
}

// Produce implements Force.
func (f *Friction) Produce(out []float32, n int) {
	if !f.HasLoop() {
		return
	}
	n = clampN(out, n)
	if pct, ok := f.freqCell.Take(); ok {
		f.targetFreq = dsp.Clamp(pct, 0.05, 10) * f.baseFreq
	}
	if db, ok := f.levelCell.Take(); ok {
		f.applyLevel(db)
	}
	if f.level < frictionMinLevel || n == 0 {
		return
	}

	target := f.targetFreq
	if diff := target - f.freq; diff > frictionFreqEps || diff < -frictionFreqEps {
		step := diff / float32(n)
		for k := 0; k < n; k++ {
			s := f.next()
			f.freq += step
			f.updateDelta()
			out[k] += s * f.level
		}
		f.freq = target
		f.updateDelta()
		return
	}

	for k := 0; k < n; k++ {
		f.level *= f.decay
		out[k] += f.next() * f.level
	}
	f.level = dsp.Flush(f.level)
}
