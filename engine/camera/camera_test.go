package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

// assertNear compares by distance; components that should be zero carry
// float32 rounding from the trigonometry.
func assertNear(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.InDelta(t, 0, got.Sub(want).Len(), 1e-5, "want %v, got %v", want, got)
}

func TestOrbitEyePlacement(t *testing.T) {
	oc := NewOrbitController(WithRadius(5), WithElevation(0), WithPivot(mgl32.Vec3{1, 2, 3}))
	assertNear(t, mgl32.Vec3{1, 2, 8}, oc.Eye())

	oc = NewOrbitController(WithRadius(5), WithElevation(0), WithAzimuth(math32.Pi/2))
	assertNear(t, mgl32.Vec3{5, 0, 0}, oc.Eye())
}

func TestOrbitClamps(t *testing.T) {
	oc := NewOrbitController(WithRadius(2), WithRadiusBounds(1, 3), WithOrbitSpeed(1))
	for i := 0; i < 10; i++ {
		oc.OrbitUp()
	}
	assert.InDelta(t, math32.Pi/2-0.05, oc.Elevation(), 1e-6)

	oc.SetRadius(100)
	assert.Equal(t, float32(3), oc.Radius())
	oc.Zoom(100)
	assert.Equal(t, float32(1), oc.Radius())
}

func TestOrbitFitAndReset(t *testing.T) {
	oc := NewOrbitController()
	oc.Fit(mgl32.Vec3{0, 1, 0}, 2, math32.Pi/2)

	assert.Equal(t, mgl32.Vec3{0, 1, 0}, oc.Pivot())
	assert.InDelta(t, 2/math32.Sin(math32.Pi/4), oc.Radius(), 1e-5)

	fitted := oc.Radius()
	oc.OrbitLeft()
	oc.Zoom(3)
	oc.Reset()
	assert.Equal(t, fitted, oc.Radius())
	assert.Equal(t, float32(0), oc.Azimuth())
}

func TestCameraMatrices(t *testing.T) {
	oc := NewOrbitController(WithRadius(4), WithElevation(0))
	cam := NewCamera(WithController(oc), WithAspect(2))

	// The pivot maps to the view-space -Z axis at the orbit radius.
	p := cam.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assertNear(t, mgl32.Vec3{0, 0, -4}, p.Vec3())

	proj := cam.Projection()
	assert.InDelta(t, proj[5]/2, proj[0], 1e-6)

	cam.SetAspect(0)
	assert.Equal(t, float32(2), cam.Aspect())

	oc.OrbitRight()
	before := cam.View()
	cam.Update()
	assert.NotEqual(t, before, cam.View())
}

func TestOrbitDrag(t *testing.T) {
	oc := NewOrbitController(WithAzimuth(0), WithElevation(0), WithOrbitSpeed(0.5))
	oc.Orbit(0.25, 0.1)
	assert.InDelta(t, 0.25, oc.Azimuth(), 1e-6)
	assert.InDelta(t, 0.1, oc.Elevation(), 1e-6)

	oc.OrbitLeft()
	assert.InDelta(t, -0.25, oc.Azimuth(), 1e-6)

	oc.Orbit(0, 100)
	assert.InDelta(t, math32.Pi/2-0.05, oc.Elevation(), 1e-6)
}
