package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestComposeTRSOrder(t *testing.T) {
	tr := mgl32.Vec3{1, 2, 3}
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	scale := mgl32.Vec3{2, 2, 2}

	m := ComposeTRS(tr, rot, scale)

	// x axis is scaled, then rotated onto y, then translated
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.True(t, p.Vec3().ApproxEqualThreshold(mgl32.Vec3{1, 4, 3}, 1e-5), "got %v", p)
}

func TestDecomposeMatrixRoundTrip(t *testing.T) {
	want := Transform{
		Translation: mgl32.Vec3{-4, 0.5, 9},
		Rotation:    mgl32.QuatRotate(mgl32.DegToRad(33), mgl32.Vec3{1, 1, 0}.Normalize()),
		Scale:       mgl32.Vec3{1, 3, 0.5},
	}

	got := DecomposeMatrix(want.Matrix())

	assert.True(t, got.Translation.ApproxEqualThreshold(want.Translation, 1e-5))
	assert.True(t, got.Scale.ApproxEqualThreshold(want.Scale, 1e-5))
	assert.True(t, got.Rotation.OrientationEqualThreshold(want.Rotation, 1e-4))
}

func TestMatrixRowsIsRowMajor(t *testing.T) {
	m := mgl32.Translate3D(7, 8, 9)
	rows := MatrixRows(m)

	// translation lives in the last column, so it ends each row
	assert.Equal(t, float32(7), rows[3])
	assert.Equal(t, float32(8), rows[7])
	assert.Equal(t, float32(9), rows[11])
	assert.Equal(t, float32(1), rows[15])
}

func TestIdentityTransform(t *testing.T) {
	assert.Equal(t, mgl32.Ident4(), IdentityTransform().Matrix())
}

func TestConversionFallbacks(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, Vec3Or(nil, mgl32.Vec3{1, 1, 1}))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, Vec3Or([]float32{1, 2, 3}, mgl32.Vec3{}))
	assert.Equal(t, mgl32.QuatIdent(), QuatOr([]float32{0, 0}, mgl32.QuatIdent()))

	q := QuatOr([]float32{0.1, 0.2, 0.3, 0.9}, mgl32.QuatIdent())
	assert.Equal(t, float32(0.9), q.W)
	assert.Equal(t, mgl32.Vec3{0.1, 0.2, 0.3}, q.V)

	assert.Equal(t, mgl32.Ident4(), Mat4Or(make([]float32, 15), mgl32.Ident4()))
}

func TestSortedKeysAndCoalesce(t *testing.T) {
	keys := SortedKeys(map[string]int{"b": 1, "c": 2, "a": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	assert.Equal(t, "x", Coalesce("", "x", "y"))
	assert.Equal(t, 0, Coalesce(0, 0))
}
