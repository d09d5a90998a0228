// Package stream moves fixed-size sample blocks from a generation goroutine
// to the real-time output callback. Nothing on the callback path blocks or
// allocates: missing blocks become silence and surplus blocks are dropped.
package stream

import (
	"sync/atomic"

	"github.com/cwbudde/algo-modal/internal/lockfree"
)

// Block is one mono block of queue-block-size samples.
type Block struct {
	Samples []float32
}

// Renderer fills a whole block of output, overwriting it.
type Renderer interface {
	RenderBlock(out []float32)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(out []float32)

// RenderBlock implements Renderer.
func (f RendererFunc) RenderBlock(out []float32) { f(out) }

// Queue is a bounded single-producer/single-consumer block queue. Blocks
// travel producer→consumer through the filled ring and come back through
// the free ring, so steady state never allocates.
type Queue struct {
	blockSize int
	depth     int
	filled    *lockfree.Ring[*Block]
	free      *lockfree.Ring[*Block]

	overflows atomic.Uint64
	published atomic.Uint64
}

// NewQueue preallocates depth blocks of blockSize samples.
func NewQueue(blockSize, depth int) *Queue {
	if blockSize < 1 {
		blockSize = 1
	}
	if depth < 2 {
		depth = 2
	}
	q := &Queue{
		blockSize: blockSize,
		depth:     depth,
		filled:    lockfree.NewRing[*Block](depth),
		free:      lockfree.NewRing[*Block](depth),
	}
	for i := 0; i < depth; i++ {
		q.free.Push(&Block{Samples: make([]float32, blockSize)})
	}
	return q
}

// BlockSize returns the number of samples per block.
func (q *Queue) BlockSize() int { return q.blockSize }

// Depth returns the number of blocks in circulation.
func (q *Queue) Depth() int { return q.depth }

// Len returns the number of filled blocks waiting for the consumer.
func (q *Queue) Len() int { return q.filled.Len() }

// Acquire takes a free block for the producer. It returns nil and counts an
// overflow when every block is queued.
func (q *Queue) Acquire() *Block {
	b, ok := q.free.Pop()
	if !ok {
		q.overflows.Add(1)
		return nil
	}
	return b
}

// Publish hands a filled block to the consumer. Only blocks obtained from
// Acquire may be published.
func (q *Queue) Publish(b *Block) {
	// The filled ring holds every block in circulation, so this cannot fail.
	if q.filled.Push(b) {
		q.published.Add(1)
	}
}

// Push copies samples into a free block and publishes it. If no block is
// free the samples are dropped and false is returned.
func (q *Queue) Push(samples []float32) bool {
	b := q.Acquire()
	if b == nil {
		return false
	}
	n := copy(b.Samples, samples)
	clear(b.Samples[n:])
	q.Publish(b)
	return true
}

// next pops a filled block for the consumer.
func (q *Queue) next() (*Block, bool) {
	return q.filled.Pop()
}

// recycle returns a consumed block to the producer.
func (q *Queue) recycle(b *Block) {
	q.free.Push(b)
}

// Overflows returns how many blocks were dropped because the queue was full.
func (q *Queue) Overflows() uint64 { return q.overflows.Load() }

// Published returns how many blocks were handed to the consumer.
func (q *Queue) Published() uint64 { return q.published.Load() }
