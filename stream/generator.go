package stream

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GeneratorOptions configure a Generator.
type GeneratorOptions struct {
	// Target is the number of filled blocks kept ahead of the consumer.
	// Zero means the queue depth minus the block held by the consumer.
	Target int
	// Interval between fill passes. Zero means half a block at SampleRate.
	Interval   time.Duration
	SampleRate int
	Logger     *zap.Logger
}

// Generator renders blocks off the audio thread and publishes them to a
// Queue.
type Generator struct {
	queue    *Queue
	renderer Renderer
	target   int
	interval time.Duration
	log      *zap.Logger
	rendered uint64
}

// NewGenerator creates a generator feeding q from r.
func NewGenerator(q *Queue, r Renderer, opts GeneratorOptions) *Generator {
	target := opts.Target
	if target <= 0 || target > q.Depth()-1 {
		target = q.Depth() - 1
	}
	interval := opts.Interval
	if interval <= 0 {
		sr := opts.SampleRate
		if sr <= 0 {
			sr = 48000
		}
		interval = time.Duration(float64(q.BlockSize()) / float64(sr) / 2 * float64(time.Second))
		if interval < 100*time.Microsecond {
			interval = 100 * time.Microsecond
		}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{queue: q, renderer: r, target: target, interval: interval, log: log}
}

// Fill renders blocks until the queue holds Target blocks or no free block
// is left. It returns the number of blocks rendered.
func (g *Generator) Fill(ctx context.Context) int {
	n := 0
	for g.queue.Len() < g.target {
		if ctx.Err() != nil {
			break
		}
		b, ok := g.queue.free.Pop()
		if !ok {
			break
		}
		g.renderer.RenderBlock(b.Samples)
		g.queue.Publish(b)
		n++
	}
	g.rendered += uint64(n)
	return n
}

// Rendered returns the total number of blocks rendered. Only valid on the
// goroutine running the generator.
func (g *Generator) Rendered() uint64 { return g.rendered }

// Run fills the queue on every tick until ctx is cancelled. Cancellation is
// checked once per block.
func (g *Generator) Run(ctx context.Context) error {
	g.log.Debug("generator started",
		zap.Int("block_size", g.queue.BlockSize()),
		zap.Int("target", g.target),
		zap.Duration("interval", g.interval))
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.Fill(ctx)
	for {
		select {
		case <-ctx.Done():
			g.log.Debug("generator stopped",
				zap.Uint64("rendered", g.rendered),
				zap.Uint64("overflows", g.queue.Overflows()))
			return nil
		case <-ticker.C:
			g.Fill(ctx)
		}
	}
}
