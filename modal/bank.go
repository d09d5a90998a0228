package modal

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cwbudde/algo-modal/dsp"
)

// GainPolicy selects how a gain vector update is applied to a rendered block.
type GainPolicy int

const (
	// GainBlock applies the vector observed at block start to the whole block.
	GainBlock GainPolicy = iota
	// GainInterpolate ramps linearly from the previous vector to the new one.
	GainInterpolate
)

func (p GainPolicy) String() string {
	switch p {
	case GainInterpolate:
		return "interpolate"
	default:
		return "block"
	}
}

// ParseGainPolicy maps a config string to a policy. Empty means GainBlock.
func ParseGainPolicy(s string) (GainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return GainBlock, nil
	case "interpolate", "ramp":
		return GainInterpolate, nil
	default:
		return GainBlock, fmt.Errorf("unknown gain policy %q", s)
	}
}

const ditherAmount = 1e-9

// BankOptions configure a resonator bank.
type BankOptions struct {
	Policy           GainPolicy
	Scales           Scales
	OutputGainDB     float32 // -120..50
	NormalizeByModes bool
	Dither           bool
	Seed             uint64
}

// Bank is a set of two-pole resonators, one per mode. Render must only be
// called from one goroutine; SetScales and the gain vector may be updated
// from any goroutine.
type Bank struct {
	model      *Model
	sampleRate int
	nf         int

	coefs atomic.Pointer[Coefficients]
	gains *GainVector

	policy  GainPolicy
	outGain float32
	dither  bool
	rng     *dsp.Random

	// Owned by the rendering goroutine.
	y1      []float32
	y2      []float32
	applied []float32
}

// NewBank derives coefficients for m and allocates filter state. A nil gains
// vector creates a fresh all-zero one.
func NewBank(m *Model, sampleRate int, gains *GainVector, opts BankOptions) (*Bank, error) {
	scales := opts.Scales
	if scales == (Scales{}) {
		scales = DefaultScales()
	}
	c, err := Derive(m, sampleRate, scales)
	if err != nil {
		return nil, err
	}
	if gains == nil {
		gains = NewGainVector(m.NumModes)
	}
	if gains.Len() != m.NumModes {
		return nil, fmt.Errorf("%w: gain vector has %d modes, model %d", ErrShape, gains.Len(), m.NumModes)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 0x5eed
	}
	b := &Bank{
		model:      m,
		sampleRate: sampleRate,
		nf:         m.NumModes,
		gains:      gains,
		policy:     opts.Policy,
		outGain:    outputGain(opts.OutputGainDB, opts.NormalizeByModes, m.NumModes),
		dither:     opts.Dither,
		rng:        dsp.NewRandom(seed),
		y1:         make([]float32, m.NumModes),
		y2:         make([]float32, m.NumModes),
		applied:    make([]float32, m.NumModes),
	}
	b.coefs.Store(c)
	return b, nil
}

func outputGain(db float32, normalize bool, modes int) float32 {
	g := dsp.DBToLinear(dsp.Clamp(db, -120, 50))
	if normalize && modes > 0 {
		g /= float32(modes)
	}
	return g
}

// NumModes returns the number of resonators.
func (b *Bank) NumModes() int { return b.nf }

// Model returns the model the bank was built from.
func (b *Bank) Model() *Model { return b.model }

// Gains returns the shared gain vector read at every block.
func (b *Bank) Gains() *GainVector { return b.gains }

// Coefficients returns the currently published coefficients.
func (b *Bank) Coefficients() *Coefficients { return b.coefs.Load() }

// SetScales re-derives coefficients with new scales and publishes them.
// Filter history is kept.
func (b *Bank) SetScales(s Scales) error {
	c, err := Derive(b.model, b.sampleRate, s)
	if err != nil {
		return err
	}
	b.coefs.Store(c)
	return nil
}

// Render filters excitation through every active mode and accumulates the
// summed output into out. min(len(out), len(excitation)) samples are
// processed.
func (b *Bank) Render(out, excitation []float32) {
	n := len(out)
	if len(excitation) < n {
		n = len(excitation)
	}
	if n == 0 {
		return
	}
	c := b.coefs.Load()
	target := b.gains.Load()
	var offset float32
	if b.dither {
		offset = b.rng.Range(-1, 1) * ditherAmount
	}
	og := b.outGain
	x := excitation[:n]
	o := out[:n]

	for i := 0; i < b.nf; i++ {
		gt := target[i]
		if !c.Active[i] {
			b.applied[i] = gt
			continue
		}
		a1 := c.TwoRCos[i]
		a2 := c.R2[i]
		y1 := b.y1[i]
		y2 := b.y2[i]

		if b.policy == GainInterpolate && gt != b.applied[i] {
			g := b.applied[i]
			step := (gt - g) / float32(n)
			for k := range x {
				g += step
				y := a1*y1 - a2*y2 + g*(x[k]+offset)
				y2 = y1
				y1 = y
				o[k] += y * og
			}
		} else {
			for k := range x {
				y := a1*y1 - a2*y2 + gt*(x[k]+offset)
				y2 = y1
				y1 = y
				o[k] += y * og
			}
		}

		b.applied[i] = gt
		b.y1[i] = dsp.Flush(y1)
		b.y2[i] = dsp.Flush(y2)
	}
}

// Reset clears filter history. It must be called from the rendering goroutine.
func (b *Bank) Reset() {
	for i := range b.y1 {
		b.y1[i] = 0
		b.y2[i] = 0
		b.applied[i] = 0
	}
}
