// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "github.com/go-gl/mathgl/mgl32"

// Transform is a decomposed local transform. Nodes and joints both carry one, and
// the animation evaluator writes interpolated values into it.
type Transform struct {
	// Translation is the local position offset.
	Translation mgl32.Vec3

	// Rotation is the local orientation.
	Rotation mgl32.Quat

	// Scale is the per-axis local scale.
	Scale mgl32.Vec3
}

// IdentityTransform returns the glTF default transform: no translation, identity rotation, unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Translation: mgl32.Vec3{0, 0, 0},
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes the transform into a local matrix (T·R·S).
//
// Returns:
//   - mgl32.Mat4: the local matrix
func (t Transform) Matrix() mgl32.Mat4 {
	return ComposeTRS(t.Translation, t.Rotation, t.Scale)
}
