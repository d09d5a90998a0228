// Package provider obtains modal models for meshes: from the remote
// analysis service over HTTP, from a local spring-mass analysis, or through
// a read-through cache keyed by mesh and material content.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/modal"
)

// ErrStatus is returned when the model service answers with a non-2xx status.
var ErrStatus = errors.New("provider: unexpected status")

// Material holds the physical parameters of the analysed object.
type Material struct {
	Youngs    float64 `json:"youngs"`    // Young's modulus, Pa
	Thickness float64 `json:"thickness"` // m
	Density   float64 `json:"density"`   // kg/m³
	Visco     float64 `json:"visco"`     // visco-elastic damping
	Fluid     float64 `json:"fluid"`     // fluid damping
}

// Validate rejects non-physical materials.
func (m Material) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"youngs", m.Youngs}, {"thickness", m.Thickness}, {"density", m.Density}} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("material %s must be > 0, got %v", f.name, f.v)
		}
	}
	if m.Visco < 0 || m.Fluid < 0 || math.IsNaN(m.Visco) || math.IsNaN(m.Fluid) {
		return fmt.Errorf("material damping must be >= 0, got visco=%v fluid=%v", m.Visco, m.Fluid)
	}
	return nil
}

// Provider fetches the modal model of a mesh made of a material. Calls may
// block; implementations honour ctx.
type Provider interface {
	FetchModel(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error)
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error)

// FetchModel implements Provider.
func (f Func) FetchModel(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error) {
	return f(ctx, id, mesh, mat)
}

// Request is the body posted to the model service.
type Request struct {
	Mesh     WireMesh `json:"mesh"`
	Material Material `json:"material"`
}

// WireMesh is the mesh as sent to the service.
type WireMesh struct {
	Triangles []int        `json:"triangles"`
	Vertices  []WireVertex `json:"vertices"`
}

// WireVertex is one mesh vertex.
type WireVertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewRequest builds the service request for mesh and mat.
func NewRequest(mesh *contact.Mesh, mat Material) Request {
	req := Request{
		Mesh: WireMesh{
			Triangles: append([]int(nil), mesh.Triangles...),
			Vertices:  make([]WireVertex, len(mesh.Vertices)),
		},
		Material: mat,
	}
	for i, v := range mesh.Vertices {
		req.Mesh.Vertices[i] = WireVertex{X: v.X, Y: v.Y, Z: v.Z}
	}
	return req
}

// ToMesh converts the request mesh back to a contact mesh.
func (r Request) ToMesh(id string) *contact.Mesh {
	m := &contact.Mesh{
		ID:        id,
		Triangles: append([]int(nil), r.Mesh.Triangles...),
		Vertices:  make([]r3.Vec, len(r.Mesh.Vertices)),
	}
	for i, v := range r.Mesh.Vertices {
		m.Vertices[i] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
	}
	return m
}
