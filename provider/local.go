package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/modal"
)

// LocalOptions bound the local analysis.
type LocalOptions struct {
	MinFreq     float64 // exclusive lower bound, Hz
	MaxFreq     float64 // exclusive upper bound, Hz
	MaxModes    int     // lowest modes kept after aggregation
	MaxVertices int     // dense eigensolve limit
}

// DefaultLocalOptions returns the audible-range defaults.
func DefaultLocalOptions() LocalOptions {
	return LocalOptions{
		MinFreq:     20,
		MaxFreq:     22000,
		MaxModes:    256,
		MaxVertices: 3000,
	}
}

// ErrTooLarge is returned when a mesh exceeds LocalOptions.MaxVertices.
var ErrTooLarge = errors.New("provider: mesh too large for local analysis")

// Local computes models in-process with a lumped-mass spring network.
type Local struct {
	opts LocalOptions
	log  *zap.Logger
}

// NewLocal creates a local provider. Zero option fields take defaults.
func NewLocal(opts LocalOptions, log *zap.Logger) *Local {
	def := DefaultLocalOptions()
	if opts.MinFreq <= 0 {
		opts.MinFreq = def.MinFreq
	}
	if opts.MaxFreq <= 0 {
		opts.MaxFreq = def.MaxFreq
	}
	if opts.MaxModes <= 0 {
		opts.MaxModes = def.MaxModes
	}
	if opts.MaxVertices <= 0 {
		opts.MaxVertices = def.MaxVertices
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{opts: opts, log: log}
}

// FetchModel implements Provider. Cancellation is checked before and after
// the eigensolve; the solve itself is not interruptible.
func (l *Local) FetchModel(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := Analyze(mesh, mat, l.opts)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ID = id
	l.log.Debug("local analysis done",
		zap.String("id", id),
		zap.Int("vertices", m.NumVertices),
		zap.Int("modes", m.NumModes))
	return m, nil
}

// Analyze computes the modal model of mesh made of mat.
//
// Every triangle edge is a spring of stiffness youngs·thickness on each of
// the three displacement axes; each vertex carries a third of the area of
// its triangles times density·thickness. Because the spring couples all
// axes equally, the 3-DoF system reduces to a scalar graph Laplacian with
// stiffness 3·youngs·thickness whose mode shapes are spread evenly over
// the axes. Vertices not referenced by any triangle get zero gains.
func Analyze(mesh *contact.Mesh, mt Material, opts LocalOptions) (*modal.Model, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	if err := mt.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxModes <= 0 {
		opts = DefaultLocalOptions()
	}

	nodes, mass := lumpedMass(mesh, mt.Density*mt.Thickness)
	n := len(nodes)
	if n == 0 {
		return nil, contact.ErrEmptyMesh
	}
	if opts.MaxVertices > 0 && n > opts.MaxVertices {
		return nil, fmt.Errorf("%w: %d vertices > %d", ErrTooLarge, n, opts.MaxVertices)
	}
	compact := make(map[int]int, n)
	for i, v := range nodes {
		compact[v] = i
	}
	lap := laplacian(mesh, compact, 3*mt.Youngs*mt.Thickness)

	vals, vecs, err := generalizedEigen(lap, mass)
	if err != nil {
		return nil, err
	}

	var found []mode
	for j, lambda := range vals {
		if lambda < 0 {
			lambda = 0
		}
		delta := mt.Visco*lambda + mt.Fluid
		disc := 4*lambda - delta*delta
		if disc <= 0 {
			continue // overdamped
		}
		f := math.Sqrt(disc) / 2 / (2 * math.Pi)
		if f <= opts.MinFreq || f >= opts.MaxFreq {
			continue
		}
		shape := make([]float64, n)
		for i := range shape {
			shape[i] = vecs.At(i, j) / math.Sqrt(3)
		}
		found = append(found, mode{freq: f, decay: -delta / 2, shape: shape})
	}

	found = aggregate(found)
	if len(found) > opts.MaxModes {
		found = found[:opts.MaxModes]
	}
	if len(found) == 0 {
		return nil, modal.ErrNoModes
	}

	nf := len(found)
	m := &modal.Model{
		NumModes:    nf,
		NumVertices: len(mesh.Vertices),
		Freqs:       make([]float32, nf),
		Decays:      make([]float32, nf),
		Gains:       make([]float32, nf*len(mesh.Vertices)),
	}
	for k, md := range found {
		m.Freqs[k] = float32(md.freq)
		m.Decays[k] = float32(md.decay)
		for i, v := range nodes {
			m.Gains[v*nf+k] = float32(md.shape[i])
		}
	}
	return m, m.Validate()
}

type mode struct {
	freq  float64
	decay float64
	shape []float64 // per compact node
}

// lumpedMass returns the referenced vertices with positive mass, in vertex
// order, and their masses.
func lumpedMass(mesh *contact.Mesh, areal float64) ([]int, []float64) {
	acc := make([]float64, len(mesh.Vertices))
	for t := 0; t < mesh.NumTriangles(); t++ {
		tri := mesh.Triangle(t)
		a, b, c := mesh.Vertices[tri[0]], mesh.Vertices[tri[1]], mesh.Vertices[tri[2]]
		share := areal * triangleArea(a, b, c) / 3
		for _, v := range tri {
			acc[v] += share
		}
	}
	var nodes []int
	var mass []float64
	for v, w := range acc {
		if w > 0 {
			nodes = append(nodes, v)
			mass = append(mass, w)
		}
	}
	return nodes, mass
}

func triangleArea(a, b, c r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

// laplacian assembles the stiffness matrix over compact nodes. Edges shared
// by two triangles are counted twice.
func laplacian(mesh *contact.Mesh, compact map[int]int, k float64) *mat.SymDense {
	n := len(compact)
	lap := mat.NewSymDense(n, nil)
	for t := 0; t < mesh.NumTriangles(); t++ {
		tri := mesh.Triangle(t)
		for e := 0; e < 3; e++ {
			a, okA := compact[tri[e]]
			b, okB := compact[tri[(e+1)%3]]
			if !okA || !okB || a == b {
				continue
			}
			lap.SetSym(a, a, lap.At(a, a)+k)
			lap.SetSym(b, b, lap.At(b, b)+k)
			lap.SetSym(a, b, lap.At(a, b)-k)
		}
	}
	return lap
}

// generalizedEigen solves K v = λ M v for diagonal positive M. Eigenvalues
// are ascending; the columns of the returned matrix are M-orthonormal.
func generalizedEigen(k *mat.SymDense, mass []float64) ([]float64, *mat.Dense, error) {
	n := len(mass)
	inv := make([]float64, n)
	for i, w := range mass {
		inv[i] = 1 / math.Sqrt(w)
	}
	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a.SetSym(i, j, k.At(i, j)*inv[i]*inv[j])
		}
	}
	var es mat.EigenSym
	if !es.Factorize(a, true) {
		return nil, nil, errors.New("provider: eigendecomposition did not converge")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			vecs.Set(i, j, vecs.At(i, j)*inv[i])
		}
	}
	return vals, &vecs, nil
}

// aggregate merges modes closer than the frequency discrimination threshold
// of the leading mode of each run, rounds the result and drops modes whose
// gains vanish. Output is sorted by frequency.
func aggregate(modes []mode) []mode {
	sort.SliceStable(modes, func(i, j int) bool { return modes[i].freq < modes[j].freq })
	var out []mode
	for i := 0; i < len(modes); {
		lead := modes[i]
		shape := append([]float64(nil), lead.shape...)
		j := i + 1
		for ; j < len(modes) && modes[j].freq-lead.freq < discrimination(lead.freq); j++ {
			for v, g := range modes[j].shape {
				shape[v] += g
			}
		}
		i = j

		nonzero := false
		for v, g := range shape {
			shape[v] = math.Round(g*1e7) / 1e7
			if shape[v] != 0 {
				nonzero = true
			}
		}
		if !nonzero {
			continue
		}
		out = append(out, mode{
			freq:  math.Round(lead.freq*1e3) / 1e3,
			decay: lead.decay,
			shape: shape,
		})
	}
	return out
}

// discrimination is the piecewise-linear just-noticeable frequency
// difference: 3 Hz at 15 Hz, 45 Hz at 2 kHz, 90 Hz at 8 kHz.
func discrimination(f float64) float64 {
	const (
		slopeLow  = 42.0 / 1985.0
		slopeHigh = 45.0 / 6000.0
	)
	if f <= 2000 {
		return 3 + slopeLow*(f-15)
	}
	return 45 + slopeHigh*(f-2000)
}
