// Package modal implements the modal resonator bank: per-object sets of
// damped two-pole resonators driven by an excitation signal and scaled by a
// spatially interpolated gain vector.
package modal

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoModes is returned for models without any resonant mode.
	ErrNoModes = errors.New("modal: model has no modes")
	// ErrShape is returned when array lengths disagree with the mode/vertex counts.
	ErrShape = errors.New("modal: inconsistent model shape")
)

// Model is a precomputed modal model of one object. It is immutable once
// validated and may be shared read-only between goroutines.
type Model struct {
	ID          string
	NumModes    int
	NumVertices int

	Freqs  []float32 // Hz, len NumModes
	Decays []float32 // 1/s, negative for decaying modes, len NumModes
	Gains  []float32 // len NumVertices*NumModes, indexed vertex*NumModes+mode
}

// Validate checks counts, array lengths and finiteness.
func (m *Model) Validate() error {
	if m == nil || m.NumModes <= 0 {
		return ErrNoModes
	}
	if m.NumVertices < 0 {
		return fmt.Errorf("%w: negative vertex count %d", ErrShape, m.NumVertices)
	}
	if len(m.Freqs) != m.NumModes {
		return fmt.Errorf("%w: %d freqs for %d modes", ErrShape, len(m.Freqs), m.NumModes)
	}
	if len(m.Decays) != m.NumModes {
		return fmt.Errorf("%w: %d decays for %d modes", ErrShape, len(m.Decays), m.NumModes)
	}
	if len(m.Gains) != m.NumModes*m.NumVertices {
		return fmt.Errorf("%w: %d gains for %d modes x %d vertices", ErrShape, len(m.Gains), m.NumModes, m.NumVertices)
	}
	for i, f := range m.Freqs {
		if !finite(f) || f < 0 {
			return fmt.Errorf("freqs[%d] must be finite and >= 0, got %v", i, f)
		}
	}
	for i, d := range m.Decays {
		if !finite(d) {
			return fmt.Errorf("decays[%d] must be finite, got %v", i, d)
		}
	}
	for i, a := range m.Gains {
		if !finite(a) {
			return fmt.Errorf("gains[%d] must be finite, got %v", i, a)
		}
	}
	return nil
}

// Gain returns the (vertex, mode) gain contribution.
func (m *Model) Gain(vertex, mode int) float32 {
	return m.Gains[vertex*m.NumModes+mode]
}

func (m *Model) String() string {
	return fmt.Sprintf("[%s]: modes: %d, verts: %d", m.ID, m.NumModes, m.NumVertices)
}

func finite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
