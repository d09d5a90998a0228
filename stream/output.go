package stream

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cwbudde/algo-modal/dsp"
)

// Mode selects where the output callback gets its samples.
type Mode int

const (
	// Queued drains blocks produced by a Generator.
	Queued Mode = iota
	// Direct renders synchronously inside the callback.
	Direct
)

func (m Mode) String() string {
	if m == Direct {
		return "direct"
	}
	return "queued"
}

// ParseMode maps a config string to a Mode. Empty means Queued.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queued", "queue":
		return Queued, nil
	case "direct":
		return Direct, nil
	default:
		return Queued, fmt.Errorf("unknown stream mode %q", s)
	}
}

// Stats are cumulative output counters.
type Stats struct {
	Callbacks     uint64
	Underruns     uint64 // callbacks that ran out of queued samples
	MissingFrames uint64 // frames replaced by silence
	Overflows     uint64 // blocks dropped by the producer
}

// Output is the consumer side: it feeds the platform audio callback with
// interleaved frames. Fill must only be called from one goroutine at a time.
type Output struct {
	mode     Mode
	queue    *Queue
	renderer Renderer
	scratch  *Block

	comp     dsp.Compressor
	compress bool

	cur *Block
	pos int

	ready         atomic.Bool
	callbacks     atomic.Uint64
	underruns     atomic.Uint64
	missingFrames atomic.Uint64
}

// OutputOptions configure an Output.
type OutputOptions struct {
	Mode       Mode
	Compressor *dsp.Compressor // nil disables compression
}

// NewOutput creates an output draining q. In Direct mode r renders each
// block synchronously and q only provides the block size.
func NewOutput(q *Queue, r Renderer, opts OutputOptions) *Output {
	o := &Output{mode: opts.Mode, queue: q, renderer: r}
	if opts.Compressor != nil {
		o.comp = *opts.Compressor
		o.compress = true
	}
	if opts.Mode == Direct {
		o.scratch = &Block{Samples: make([]float32, q.BlockSize())}
	}
	return o
}

// SetReady opens or closes the readiness gate. While closed Fill writes
// silence without touching synthesis state.
func (o *Output) SetReady(ready bool) { o.ready.Store(ready) }

// Ready reports the readiness gate.
func (o *Output) Ready() bool { return o.ready.Load() }

// Mode returns the output mode.
func (o *Output) Mode() Mode { return o.mode }

// Stats returns a snapshot of the counters.
func (o *Output) Stats() Stats {
	return Stats{
		Callbacks:     o.callbacks.Load(),
		Underruns:     o.underruns.Load(),
		MissingFrames: o.missingFrames.Load(),
		Overflows:     o.queue.Overflows(),
	}
}

// Fill writes len(out)/channels frames of interleaved output, duplicating
// the mono signal across channels.
func (o *Output) Fill(out []float32, channels int) {
	o.callbacks.Add(1)
	if channels < 1 {
		channels = 1
	}
	frames := len(out) / channels
	if !o.ready.Load() {
		clear(out)
		return
	}

	f := 0
	for f < frames {
		if o.cur == nil && !o.advance() {
			clear(out[f*channels:])
			o.underruns.Add(1)
			o.missingFrames.Add(uint64(frames - f))
			return
		}
		src := o.cur.Samples[o.pos:]
		n := frames - f
		if n > len(src) {
			n = len(src)
		}
		for k := 0; k < n; k++ {
			s := src[k]
			if o.compress {
				s = o.comp.Apply(s)
			}
			base := (f + k) * channels
			for c := 0; c < channels; c++ {
				out[base+c] = s
			}
		}
		f += n
		o.pos += n
		if o.pos >= len(o.cur.Samples) {
			o.release()
		}
	}
	clear(out[frames*channels:])
}

func (o *Output) advance() bool {
	o.pos = 0
	if o.mode == Direct {
		if o.renderer == nil {
			return false
		}
		o.renderer.RenderBlock(o.scratch.Samples)
		o.cur = o.scratch
		return true
	}
	b, ok := o.queue.next()
	if !ok {
		return false
	}
	o.cur = b
	return true
}

func (o *Output) release() {
	if o.mode == Queued {
		o.queue.recycle(o.cur)
	}
	o.cur = nil
	o.pos = 0
}
