// Package force implements excitation sources for the resonator bank:
// stochastic impacts, raised-cosine soft impacts and a wavetable friction
// oscillator. Every source accumulates into the caller's block without
// allocating; updates from other goroutines go through lock-free queues.
package force

// Force produces excitation samples.
type Force interface {
	// Produce adds n samples to out[:n]. It is called from a single
	// generation goroutine.
	Produce(out []float32, n int)
}

// Mix sums several forces into one excitation block.
type Mix struct {
	forces []Force
}

// NewMix creates a mix of forces. Nil entries are skipped.
func NewMix(forces ...Force) *Mix {
	m := &Mix{}
	for _, f := range forces {
		if f != nil {
			m.forces = append(m.forces, f)
		}
	}
	return m
}

// Add appends f. It must not be called concurrently with Produce.
func (m *Mix) Add(f Force) {
	if f != nil {
		m.forces = append(m.forces, f)
	}
}

// Len returns the number of mixed forces.
func (m *Mix) Len() int { return len(m.forces) }

// Produce clears out[:n] and accumulates every force into it.
func (m *Mix) Produce(out []float32, n int) {
	n = clampN(out, n)
	clear(out[:n])
	for _, f := range m.forces {
		f.Produce(out, n)
	}
}

func clampN(out []float32, n int) int {
	if n > len(out) {
		return len(out)
	}
	if n < 0 {
		return 0
	}
	return n
}
