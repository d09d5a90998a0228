package contact

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plate returns a flat rectangular plate in the XZ plane centred on the
// origin, split into nx × nz quads of two triangles each.
func Plate(width, depth float64, nx, nz int) *Mesh {
	if nx < 1 {
		nx = 1
	}
	if nz < 1 {
		nz = 1
	}
	m := &Mesh{ID: fmt.Sprintf("plate-%gx%g-%dx%d", width, depth, nx, nz)}
	for j := 0; j <= nz; j++ {
		for i := 0; i <= nx; i++ {
			m.Vertices = append(m.Vertices, r3.Vec{
				X: (float64(i)/float64(nx) - 0.5) * width,
				Z: (float64(j)/float64(nz) - 0.5) * depth,
			})
		}
	}
	row := nx + 1
	for j := 0; j < nz; j++ {
		for i := 0; i < nx; i++ {
			a := j*row + i
			b := a + 1
			c := a + row
			d := c + 1
			m.Triangles = append(m.Triangles, a, c, b, b, c, d)
		}
	}
	return m
}

// Icosphere returns a sphere of the given radius built by subdividing an
// icosahedron. Level 0 is the icosahedron itself.
func Icosphere(radius float64, level int) *Mesh {
	t := (1 + math.Sqrt(5)) / 2
	verts := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range verts {
		verts[i] = r3.Unit(verts[i])
	}
	tris := []int{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}
	for l := 0; l < level; l++ {
		mid := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			k := [2]int{a, b}
			if a > b {
				k = [2]int{b, a}
			}
			if i, ok := mid[k]; ok {
				return i
			}
			verts = append(verts, r3.Unit(r3.Add(verts[a], verts[b])))
			mid[k] = len(verts) - 1
			return len(verts) - 1
		}
		next := make([]int, 0, len(tris)*4)
		for i := 0; i < len(tris); i += 3 {
			a, b, c := tris[i], tris[i+1], tris[i+2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next, a, ab, ca, b, bc, ab, c, ca, bc, ab, bc, ca)
		}
		tris = next
	}
	for i := range verts {
		verts[i] = r3.Scale(radius, verts[i])
	}
	return &Mesh{
		ID:        fmt.Sprintf("icosphere-%g-%d", radius, level),
		Vertices:  verts,
		Triangles: tris,
	}
}

// Primitive builds a named primitive mesh of the given extent. detail is the
// plate subdivision count or the icosphere level.
func Primitive(name string, size float64, detail int) (*Mesh, error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("primitive size must be > 0, got %v", size)
	}
	switch name {
	case "plate":
		return Plate(size, size, detail, detail), nil
	case "sphere", "icosphere":
		return Icosphere(size/2, detail), nil
	default:
		return nil, fmt.Errorf("unknown primitive %q (use plate or sphere)", name)
	}
}
