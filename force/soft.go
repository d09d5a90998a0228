package force

import (
	"math"

	"github.com/cwbudde/algo-modal/dsp"
	"github.com/cwbudde/algo-modal/internal/lockfree"
)

// MaxSoftHits is the capacity of the active soft-hit pool.
const MaxSoftHits = 64

// SoftImpactOptions map contact speed to pulse duration.
type SoftImpactOptions struct {
	MinDuration float32 // seconds, used at and above RefSpeed
	MaxDuration float32 // seconds, used at zero speed
	RefSpeed    float32 // m/s
}

// DefaultSoftImpactOptions returns durations between 0.5 ms and 5 ms.
func DefaultSoftImpactOptions() SoftImpactOptions {
	return SoftImpactOptions{MinDuration: 0.0005, MaxDuration: 0.005, RefSpeed: 10}
}

type softHit struct {
	peak  float32
	span  int
	count int
	phase float64 // 2π/span
}

type softRequest struct {
	speed float32
	peak  float32
}

// SoftImpact produces raised-cosine force pulses for gentle contacts. Faster
// contacts give shorter, brighter pulses.
type SoftImpact struct {
	sampleRate float32
	opts       SoftImpactOptions

	pending *lockfree.Ring[softRequest]
	pool    [MaxSoftHits]softHit
	active  int
}

// NewSoftImpact creates a soft impact generator.
func NewSoftImpact(sampleRate int, opts SoftImpactOptions) *SoftImpact {
	def := DefaultSoftImpactOptions()
	if opts.MinDuration <= 0 {
		opts.MinDuration = def.MinDuration
	}
	if opts.MaxDuration < opts.MinDuration {
		opts.MaxDuration = opts.MinDuration
	}
	if opts.RefSpeed <= 0 {
		opts.RefSpeed = def.RefSpeed
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &SoftImpact{
		sampleRate: float32(sampleRate),
		opts:       opts,
		pending:    lockfree.NewRing[softRequest](MaxSoftHits),
	}
}

// Duration returns the pulse duration in seconds for a contact speed.
func (s *SoftImpact) Duration(speed float32) float32 {
	t := dsp.Clamp(speed/s.opts.RefSpeed, 0, 1)
	return dsp.Lerp(s.opts.MaxDuration, s.opts.MinDuration, t)
}

// AddHit enqueues a pulse with the given contact speed and peak force.
func (s *SoftImpact) AddHit(speed, peak float32) bool {
	if !dsp.IsFinite(speed) || !dsp.IsFinite(peak) || peak == 0 {
		return false
	}
	if speed < 0 {
		speed = -speed
	}
	return s.pending.Push(softRequest{speed: speed, peak: peak})
}

// Active returns the number of pulses in flight.
func (s *SoftImpact) Active() int { return s.active }

// Produce implements Force.
func (s *SoftImpact) Produce(out []float32, n int) {
	n = clampN(out, n)
	for s.active < MaxSoftHits {
		r, ok := s.pending.Pop()
		if !ok {
			break
		}
		span := int(s.Duration(r.speed)*s.sampleRate + 0.5)
		if span < 2 {
			span = 2
		}
		s.pool[s.active] = softHit{peak: r.peak, span: span, phase: 2 * math.Pi / float64(span)}
		s.active++
	}

	i := 0
	for i < s.active {
		h := &s.pool[i]
		for k := 0; k < n && h.count < h.span; k++ {
			w := 0.5 * (1 - math.Cos(h.phase*float64(h.count)))
			out[k] += h.peak * float32(w)
			h.count++
		}
		if h.count >= h.span {
			s.active--
			s.pool[i] = s.pool[s.active]
			continue
		}
		i++
	}
}
