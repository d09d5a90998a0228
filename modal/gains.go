package modal

import "sync/atomic"

// GainVector holds the current per-mode excitation amplitudes. Writers
// publish a complete new vector; readers always observe a fully written one.
type GainVector struct {
	n int
	p atomic.Pointer[[]float32]
}

// NewGainVector creates an all-zero vector of n modes.
func NewGainVector(n int) *GainVector {
	g := &GainVector{n: n}
	v := make([]float32, n)
	g.p.Store(&v)
	return g
}

// Len returns the number of modes.
func (g *GainVector) Len() int {
	return g.n
}

// Load returns the current snapshot. Callers must not modify it.
func (g *GainVector) Load() []float32 {
	return *g.p.Load()
}

// Store publishes v and takes ownership of it. Vectors of the wrong length
// are ignored.
func (g *GainVector) Store(v []float32) bool {
	if len(v) != g.n {
		return false
	}
	g.p.Store(&v)
	return true
}

// Fill publishes a vector with every mode set to x.
func (g *GainVector) Fill(x float32) {
	v := make([]float32, g.n)
	for i := range v {
		v[i] = x
	}
	g.p.Store(&v)
}
