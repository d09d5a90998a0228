package contact

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose places a mesh in world space: p_world = Position + Rotation(Scale ∘ p_local).
type Pose struct {
	Position r3.Vec
	Rotation quat.Number // unit quaternion; zero value means identity
	Scale    r3.Vec      // zero components mean 1
}

// Identity returns the identity pose.
func Identity() Pose {
	return Pose{Rotation: quat.Number{Real: 1}, Scale: r3.Vec{X: 1, Y: 1, Z: 1}}
}

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	n := r3.Norm(axis)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(angle/2) / n
	return quat.Number{Real: math.Cos(angle / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

func (p Pose) norm() Pose {
	if a := quat.Abs(p.Rotation); a == 0 {
		p.Rotation = quat.Number{Real: 1}
	} else if a != 1 {
		p.Rotation = quat.Scale(1/a, p.Rotation)
	}
	if p.Scale.X == 0 {
		p.Scale.X = 1
	}
	if p.Scale.Y == 0 {
		p.Scale.Y = 1
	}
	if p.Scale.Z == 0 {
		p.Scale.Z = 1
	}
	return p
}

func rotate(q quat.Number, v r3.Vec) r3.Vec {
	r := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Apply maps a local point to world space.
func (p Pose) Apply(v r3.Vec) r3.Vec {
	p = p.norm()
	s := r3.Vec{X: v.X * p.Scale.X, Y: v.Y * p.Scale.Y, Z: v.Z * p.Scale.Z}
	return r3.Add(p.Position, rotate(p.Rotation, s))
}

// Inverse maps a world point to local space.
func (p Pose) Inverse(v r3.Vec) r3.Vec {
	p = p.norm()
	l := rotate(quat.Conj(p.Rotation), r3.Sub(v, p.Position))
	return r3.Vec{X: l.X / p.Scale.X, Y: l.Y / p.Scale.Y, Z: l.Z / p.Scale.Z}
}

// WorldBounds returns the world axis-aligned box enclosing the posed local box.
func (p Pose) WorldBounds(local r3.Box) r3.Box {
	var b r3.Box
	for i := 0; i < 8; i++ {
		c := local.Min
		if i&1 != 0 {
			c.X = local.Max.X
		}
		if i&2 != 0 {
			c.Y = local.Max.Y
		}
		if i&4 != 0 {
			c.Z = local.Max.Z
		}
		w := p.Apply(c)
		if i == 0 {
			b = r3.Box{Min: w, Max: w}
			continue
		}
		b = extend(b, w)
	}
	return b
}

// ClosestPointOnBox returns v clamped into b. Points inside b are unchanged.
func ClosestPointOnBox(b r3.Box, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: math.Min(math.Max(v.X, b.Min.X), b.Max.X),
		Y: math.Min(math.Max(v.Y, b.Min.Y), b.Max.Y),
		Z: math.Min(math.Max(v.Z, b.Min.Z), b.Max.Z),
	}
}
