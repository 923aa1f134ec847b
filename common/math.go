package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer and texture uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// ComposeTRS builds a local transform matrix as T·R·S.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion (need not be normalized)
//   - s: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the column-major local matrix
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	translate := mgl32.Translate3D(t.X(), t.Y(), t.Z())
	rotate := r.Normalize().Mat4()
	scale := mgl32.Scale3D(s.X(), s.Y(), s.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// DecomposeMatrix splits an affine matrix into translation, rotation and scale.
// Shear is discarded. Near-zero scale axes are treated as unit length when
// normalizing the rotation basis.
//
// Parameters:
//   - m: the column-major affine matrix
//
// Returns:
//   - Transform: the decomposed TRS
func DecomposeMatrix(m mgl32.Mat4) Transform {
	translation := mgl32.Vec3{m[12], m[13], m[14]}

	sx := mgl32.Vec3{m[0], m[1], m[2]}.Len()
	sy := mgl32.Vec3{m[4], m[5], m[6]}.Len()
	sz := mgl32.Vec3{m[8], m[9], m[10]}.Len()
	scale := mgl32.Vec3{sx, sy, sz}

	if sx < 0.0001 {
		sx = 1
	}
	if sy < 0.0001 {
		sy = 1
	}
	if sz < 0.0001 {
		sz = 1
	}

	basis := mgl32.Mat3{
		m[0] / sx, m[1] / sx, m[2] / sx,
		m[4] / sy, m[5] / sy, m[6] / sy,
		m[8] / sz, m[9] / sz, m[10] / sz,
	}

	return Transform{
		Translation: translation,
		Rotation:    mgl32.Mat4ToQuat(basis.Mat4()).Normalize(),
		Scale:       scale,
	}
}

// MatrixRows flattens a matrix in row-major order: element 4*r+c holds row r, column c.
// This is the bone texture layout, where each texel carries one row.
//
// Parameters:
//   - m: the column-major source matrix
//
// Returns:
//   - [16]float32: the row-major flattening
func MatrixRows(m mgl32.Mat4) [16]float32 {
	return [16]float32(m.Transpose())
}

// Perspective creates a perspective projection matrix for WebGPU clip space,
// where depth maps to [0, 1] instead of the OpenGL [-1, 1] range.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// Vec3Or converts a glTF number array to a Vec3, falling back to def when the
// array is absent or too short.
func Vec3Or(values []float32, def mgl32.Vec3) mgl32.Vec3 {
	if len(values) < 3 {
		return def
	}
	return mgl32.Vec3{values[0], values[1], values[2]}
}

// QuatOr converts a glTF [x, y, z, w] array to a quaternion, falling back to def
// when the array is absent or too short.
func QuatOr(values []float32, def mgl32.Quat) mgl32.Quat {
	if len(values) < 4 {
		return def
	}
	return mgl32.Quat{W: values[3], V: mgl32.Vec3{values[0], values[1], values[2]}}
}

// Mat4Or converts a 16 element column-major glTF array to a matrix, falling back
// to def when the array is absent or malformed.
func Mat4Or(values []float32, def mgl32.Mat4) mgl32.Mat4 {
	if len(values) != 16 {
		return def
	}
	return mgl32.Mat4(values)
}
