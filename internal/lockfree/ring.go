// Package lockfree holds the wait-free primitives shared between generation
// contexts and the audio callback.
package lockfree

import (
	"math"
	"sync/atomic"
)

// Ring is a bounded single-producer/single-consumer queue with atomic
// head/tail indices. Push must only be called from one goroutine and Pop
// from one (possibly different) goroutine.
type Ring[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64 // next slot to read, owned by the consumer
	tail atomic.Uint64 // next slot to write, owned by the producer
}

// NewRing creates a ring holding at least capacity elements. The capacity is
// rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}
}

// Push appends v. It returns false without blocking when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint64(len(r.buf)) {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest element. It returns false without blocking when the
// ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	v := r.buf[head&r.mask]
	r.buf[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

// Len returns a snapshot of the number of queued elements.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

const pendingBit = uint64(1) << 32

// Latest is a single-slot coalescing cell: writers overwrite, the reader takes
// the most recent value at most once.
type Latest struct {
	v atomic.Uint64
}

// Store publishes x, replacing any value not yet taken.
func (l *Latest) Store(x float32) {
	l.v.Store(pendingBit | uint64(math.Float32bits(x)))
}

// Take returns the pending value and clears it.
func (l *Latest) Take() (float32, bool) {
	x := l.v.Swap(0)
	if x&pendingBit == 0 {
		return 0, false
	}
	return math.Float32frombits(uint32(x)), true
}
