package contact

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/modal"
)

// DefaultMaxPoints is the number of contact points considered per event.
const DefaultMaxPoints = 10

// MapperOptions configure contact point intake.
type MapperOptions struct {
	MaxPoints int
	// ProjectToBounds clamps world points onto the posed mesh AABB before
	// the inverse pose transform.
	ProjectToBounds bool
}

// DefaultMapperOptions returns the collision intake defaults.
func DefaultMapperOptions() MapperOptions {
	return MapperOptions{MaxPoints: DefaultMaxPoints, ProjectToBounds: true}
}

// Mapper turns world-space contact points into gain vectors for one object.
type Mapper struct {
	index  *Index
	bounds r3.Box
	opts   MapperOptions
}

// NewMapper creates a mapper over a shared index.
func NewMapper(ix *Index, opts MapperOptions) *Mapper {
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = DefaultMaxPoints
	}
	m := &Mapper{index: ix, opts: opts}
	if ix != nil {
		m.bounds = ix.mesh.Bounds()
	}
	return m
}

// LocateAndWeight maps world-space contact points through pose into hits.
// Only the first MaxPoints points are used.
func (m *Mapper) LocateAndWeight(points []r3.Vec, pose Pose) []Hit {
	if m == nil || m.index == nil || len(points) == 0 {
		return nil
	}
	if len(points) > m.opts.MaxPoints {
		points = points[:m.opts.MaxPoints]
	}
	world := pose.WorldBounds(m.bounds)
	local := make([]r3.Vec, len(points))
	for i, p := range points {
		if m.opts.ProjectToBounds {
			p = ClosestPointOnBox(world, p)
		}
		local[i] = pose.Inverse(p)
	}
	return m.index.Locate(local)
}

// Gains computes a fresh gain vector for hits: for each mode i the sum over
// hits of Σ_j w_j·A[v_j, i], scaled by the mode amplitude R·sin(θ_i) and the
// coefficient gain scale. It returns nil when no hit can contribute.
func Gains(hits []Hit, model *modal.Model, c *modal.Coefficients) []float32 {
	if len(hits) == 0 || model == nil || c == nil {
		return nil
	}
	nf := model.NumModes
	acc := make([]float64, nf)
	used := 0
	for _, h := range hits {
		ok := true
		for _, v := range h.Vertices {
			if v < 0 || v >= model.NumVertices {
				ok = false
			}
		}
		if !ok {
			continue
		}
		used++
		for j := 0; j < 3; j++ {
			w := h.Weights[j]
			row := model.Gains[h.Vertices[j]*nf : (h.Vertices[j]+1)*nf]
			for i := range row {
				acc[i] += w * float64(row[i])
			}
		}
	}
	if used == 0 {
		return nil
	}
	scale := float64(c.Scales.Gain)
	out := make([]float32, nf)
	for i := range out {
		out[i] = float32(acc[i] * float64(c.RSin[i]) * scale)
	}
	return out
}
