package contact

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// barycenter is a k-d tree point carrying its source triangle.
type barycenter struct {
	pos r3.Vec
	tri int
}

func coord(v r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (b barycenter) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return coord(b.pos, d) - coord(c.(barycenter).pos, d)
}

func (b barycenter) Dims() int { return 3 }

// Distance is the squared Euclidean distance.
func (b barycenter) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(b.pos, c.(barycenter).pos))
}

type barycenters []barycenter

func (p barycenters) Index(i int) kdtree.Comparable { return p[i] }
func (p barycenters) Len() int                      { return len(p) }
func (p barycenters) Pivot(d kdtree.Dim) int        { return plane{barycenters: p, Dim: d}.Pivot() }
func (p barycenters) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

type plane struct {
	kdtree.Dim
	barycenters
}

func (p plane) Less(i, j int) bool {
	return coord(p.barycenters[i].pos, p.Dim) < coord(p.barycenters[j].pos, p.Dim)
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.barycenters = p.barycenters[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.barycenters[i], p.barycenters[j] = p.barycenters[j], p.barycenters[i]
}

// Index is a static nearest-triangle index over triangle barycenters. It is
// safe for concurrent queries.
type Index struct {
	mesh *Mesh
	tree *kdtree.Tree
}

// NewIndex builds the index for m.
func NewIndex(m *Mesh) (*Index, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	pts := make(barycenters, m.NumTriangles())
	for t := range pts {
		v := m.Triangle(t)
		c := r3.Add(r3.Add(m.Vertices[v[0]], m.Vertices[v[1]]), m.Vertices[v[2]])
		pts[t] = barycenter{pos: r3.Scale(1.0/3.0, c), tri: t}
	}
	return &Index{mesh: m, tree: kdtree.New(pts, false)}, nil
}

// Mesh returns the indexed mesh.
func (ix *Index) Mesh() *Mesh { return ix.mesh }

// Nearest returns the triangle whose barycenter is closest to p and the
// squared distance to it.
func (ix *Index) Nearest(p r3.Vec) (tri int, dist2 float64) {
	c, d := ix.tree.Nearest(barycenter{pos: p})
	if c == nil {
		return -1, 0
	}
	return c.(barycenter).tri, d
}

// Hit is one located contact point: the three incident vertices and their
// barycentric weights. Weights sum to one but are not clamped to [0,1].
type Hit struct {
	Triangle int
	Vertices [3]int
	Weights  [3]float64
}

// Locate maps local-space points to hits.
func (ix *Index) Locate(points []r3.Vec) []Hit {
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		if !finiteVec(p) {
			continue
		}
		t, _ := ix.Nearest(p)
		if t < 0 {
			continue
		}
		v := ix.mesh.Triangle(t)
		w := Weights(p, ix.mesh.Vertices[v[0]], ix.mesh.Vertices[v[1]], ix.mesh.Vertices[v[2]])
		hits = append(hits, Hit{Triangle: t, Vertices: v, Weights: w})
	}
	return hits
}

// Weights returns barycentric weights of query relative to the plane of the
// triangle (p, q, r). A degenerate triangle puts all weight on p.
func Weights(query, p, q, r r3.Vec) [3]float64 {
	u := r3.Sub(q, p)
	v := r3.Sub(r, p)
	w := r3.Sub(query, p)
	n := r3.Cross(u, v)
	nn := r3.Dot(n, n)
	if nn == 0 {
		return [3]float64{1, 0, 0}
	}
	wc := r3.Dot(r3.Cross(u, w), n) / nn
	wb := r3.Dot(r3.Cross(w, v), n) / nn
	return [3]float64{1 - wb - wc, wb, wc}
}
