// Package contact maps contact points on a mesh surface to per-mode gains:
// a static nearest-triangle index over barycenters, barycentric weighting
// and gain accumulation from a modal model.
package contact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyMesh is returned for meshes without triangles or vertices.
var ErrEmptyMesh = errors.New("contact: empty mesh")

// Mesh is an indexed triangle mesh in object-local space. It is treated as
// immutable once an index has been built from it.
type Mesh struct {
	ID        string
	Vertices  []r3.Vec
	Triangles []int // vertex indices, three per triangle
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int {
	return len(m.Triangles) / 3
}

// Validate checks triangle layout and index ranges.
func (m *Mesh) Validate() error {
	if m == nil || len(m.Vertices) == 0 || len(m.Triangles) == 0 {
		return ErrEmptyMesh
	}
	if len(m.Triangles)%3 != 0 {
		return fmt.Errorf("contact: triangle index count %d is not a multiple of 3", len(m.Triangles))
	}
	for i, v := range m.Triangles {
		if v < 0 || v >= len(m.Vertices) {
			return fmt.Errorf("contact: triangles[%d] = %d out of range [0,%d)", i, v, len(m.Vertices))
		}
	}
	for i, v := range m.Vertices {
		if !finiteVec(v) {
			return fmt.Errorf("contact: vertices[%d] is not finite", i)
		}
	}
	return nil
}

// Bounds returns the local axis-aligned bounding box.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Vertices) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b = extend(b, v)
	}
	return b
}

// Key returns a content identity of the geometry. Meshes with identical
// vertices and triangles share a key regardless of ID.
func (m *Mesh) Key() string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(m.Vertices)))
	h.Write(buf[:])
	for _, v := range m.Vertices {
		for _, c := range [3]float64{v.X, v.Y, v.Z} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
			h.Write(buf[:])
		}
	}
	for _, t := range m.Triangles {
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]int {
	o := 3 * t
	return [3]int{m.Triangles[o], m.Triangles[o+1], m.Triangles[o+2]}
}

func extend(b r3.Box, v r3.Vec) r3.Box {
	b.Min.X = math.Min(b.Min.X, v.X)
	b.Min.Y = math.Min(b.Min.Y, v.Y)
	b.Min.Z = math.Min(b.Min.Z, v.Z)
	b.Max.X = math.Max(b.Max.X, v.X)
	b.Max.Y = math.Max(b.Max.Y, v.Y)
	b.Max.Z = math.Max(b.Max.Z, v.Z)
	return b
}

func finiteVec(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
