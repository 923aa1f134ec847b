package common

import "github.com/go-gl/mathgl/mgl32"

// Plane is the plane n·p + d = 0. Points with a positive distance lie on the inner side.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum holds the six planes of a view volume, oriented inward.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// Frustum plane indices.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a projection × view matrix
// whose clip depth range is [0, 1], as Perspective produces.
// Uses the Gribb/Hartmann method.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection × view matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	row := func(r int) mgl32.Vec4 { return viewProj.Row(r) }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	for i, v := range [6]mgl32.Vec4{
		FrustumLeft:   r3.Add(r0),
		FrustumRight:  r3.Sub(r0),
		FrustumBottom: r3.Add(r1),
		FrustumTop:    r3.Sub(r1),
		FrustumNear:   r2,
		FrustumFar:    r3.Sub(r2),
	} {
		p := Plane{Normal: v.Vec3(), Distance: v.W()}
		if l := p.Normal.Len(); l > 0 {
			p.Normal = p.Normal.Mul(1 / l)
			p.Distance /= l
		}
		f.Planes[i] = p
	}
	return f
}

// ContainsBounds reports whether any part of b may lie inside the frustum.
// The test is conservative: boxes near a frustum corner can pass while
// lying fully outside.
//
// Parameters:
//   - b: the world-space box
//
// Returns:
//   - bool: false only if b lies entirely outside one plane
func (f Frustum) ContainsBounds(b Bounds) bool {
	if b.Empty() {
		return false
	}
	for _, p := range f.Planes {
		// The box corner farthest along the plane normal.
		var v mgl32.Vec3
		for k := 0; k < 3; k++ {
			if p.Normal[k] >= 0 {
				v[k] = b.Max[k]
			} else {
				v[k] = b.Min[k]
			}
		}
		if p.Normal.Dot(v)+p.Distance < 0 {
			return false
		}
	}
	return true
}
