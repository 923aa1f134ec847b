package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned box. The zero value is not empty; use EmptyBounds
// as the start of an accumulation.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyBounds returns a box that contains nothing and grows to fit anything added to it.
func EmptyBounds() Bounds {
	inf := math32.Inf(1)
	return Bounds{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// BoundsOf builds a box from glTF accessor min/max arrays. ok is false when
// either array has fewer than three components.
func BoundsOf(min, max []float32) (b Bounds, ok bool) {
	if len(min) < 3 || len(max) < 3 {
		return EmptyBounds(), false
	}
	return Bounds{
		Min: mgl32.Vec3{min[0], min[1], min[2]},
		Max: mgl32.Vec3{max[0], max[1], max[2]},
	}, true
}

// Empty reports whether the box contains no point.
func (b Bounds) Empty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// AddPoint grows the box to contain p.
func (b Bounds) AddPoint(p mgl32.Vec3) Bounds {
	for k := 0; k < 3; k++ {
		b.Min[k] = math32.Min(b.Min[k], p[k])
		b.Max[k] = math32.Max(b.Max[k], p[k])
	}
	return b
}

// Union returns the smallest box containing both boxes.
func (b Bounds) Union(o Bounds) Bounds {
	if o.Empty() {
		return b
	}
	return b.AddPoint(o.Min).AddPoint(o.Max)
}

// Transform returns the box enclosing the eight corners of b transformed by m.
//
// Parameters:
//   - m: an affine transform
//
// Returns:
//   - Bounds: the enclosing box
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	if b.Empty() {
		return b
	}
	out := EmptyBounds()
	for i := 0; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.AddPoint(mgl32.TransformCoordinate(corner, m))
	}
	return out
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns the radius of the sphere through the box corners around Center.
func (b Bounds) Radius() float32 {
	if b.Empty() {
		return 0
	}
	return b.Max.Sub(b.Min).Len() / 2
}
