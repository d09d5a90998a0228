package force

import (
	"math"

	"github.com/cwbudde/algo-modal/dsp"
	"github.com/cwbudde/algo-modal/internal/lockfree"
)

// MaxImpacts is the capacity of the active impact pool.
const MaxImpacts = 200

const (
	impactCutoff    = 0.5
	impactBandwidth = 0.9
	impactThreshDB  = -80.0
	impactDecayTime = 0.15
	impactGain      = 0.5 * (1.0 - impactBandwidth*impactBandwidth)
)

// ImpactOptions tune the impact generator.
type ImpactOptions struct {
	DecayTime float32 // seconds, per-sample volume time constant
	ThreshDB  float32 // entries below this level are pruned
	Seed      uint64
}

// DefaultImpactOptions returns the standard impact envelope.
func DefaultImpactOptions() ImpactOptions {
	return ImpactOptions{DecayTime: impactDecayTime, ThreshDB: impactThreshDB}
}

type impact struct {
	volume float32
	decay  float32
	lpf    float32
	bpf    float32
}

// Impact is a pool of band-limited noise bursts with exponential envelopes.
// AddImpact may be called from one producer goroutine while Produce runs on
// the generation goroutine.
type Impact struct {
	cut    float32
	bw     float32
	decay  float32
	thresh float32
	rng    *dsp.Random

	pending *lockfree.Ring[float32]
	pool    [MaxImpacts]impact
	active  int

	dropped uint64
}

// NewImpact creates an impact generator for sampleRate.
func NewImpact(sampleRate int, opts ImpactOptions) *Impact {
	if opts.DecayTime <= 0 {
		opts.DecayTime = impactDecayTime
	}
	if opts.ThreshDB == 0 {
		opts.ThreshDB = impactThreshDB
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 0x1a2b3c
	}
	sr := float64(sampleRate)
	if sr <= 0 {
		sr = 48000
	}
	return &Impact{
		cut:     float32(2.0 * math.Sin(0.25*math.Pi*impactCutoff)),
		bw:      impactBandwidth,
		decay:   float32(math.Exp(-1.0 / sr / float64(opts.DecayTime))),
		thresh:  dsp.DBToLinear(opts.ThreshDB),
		rng:     dsp.NewRandom(seed),
		pending: lockfree.NewRing[float32](MaxImpacts),
	}
}

// AddImpact enqueues an impact of the given velocity magnitude. It is picked
// up at the next block boundary. It returns false if the queue is full.
func (im *Impact) AddImpact(velocity float32) bool {
	if !(velocity > 0) || !dsp.IsFinite(velocity) {
		return false
	}
	return im.pending.Push(velocity * impactGain)
}

// Active returns the number of impacts currently sounding. Only valid on the
// generation goroutine.
func (im *Impact) Active() int { return im.active }

// Dropped returns how many impacts were discarded because the pool was full.
// Only valid on the generation goroutine.
func (im *Impact) Dropped() uint64 { return im.dropped }

// Decay returns the per-sample volume factor.
func (im *Impact) Decay() float32 { return im.decay }

// Threshold returns the linear prune threshold.
func (im *Impact) Threshold() float32 { return im.thresh }

// Produce implements Force.
func (im *Impact) Produce(out []float32, n int) {
	n = clampN(out, n)
	for {
		v, ok := im.pending.Pop()
		if !ok {
			break
		}
		if im.active >= MaxImpacts {
			im.dropped++
			continue
		}
		im.pool[im.active] = impact{volume: v, decay: im.decay}
		im.active++
	}

	i := 0
	for i < im.active {
		if im.process(&im.pool[i], out[:n]) {
			i++
			continue
		}
		im.active--
		im.pool[i] = im.pool[im.active]
	}
}

// process renders one entry and reports whether it is still audible. The
// entry stops at the first sample whose volume falls below the threshold.
func (im *Impact) process(e *impact, out []float32) bool {
	cut := im.cut
	bw := im.bw
	thr := im.thresh
	for k := range out {
		e.volume *= e.decay
		if e.volume < thr {
			return false
		}
		e.lpf += cut * e.bpf
		e.bpf += cut * (im.rng.Range(-1, 1) - e.lpf - e.bpf*bw)
		out[k] += e.bpf * e.volume
	}
	e.lpf = dsp.Flush(e.lpf)
	e.bpf = dsp.Flush(e.bpf)
	return true
}
