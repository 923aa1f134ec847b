package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// orbitState is the part of the controller Reset restores.
type orbitState struct {
	pivot     mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32
}

// orbitController is the implementation of OrbitController. The eye sits on
// a sphere around the pivot, addressed by radius, azimuth (around +Y) and
// elevation (above the horizontal plane).
type orbitController struct {
	mu *sync.Mutex

	orbitState
	home orbitState

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
}

// OrbitController moves the eye around a pivot point.
type OrbitController interface {
	// Eye returns the eye position in world space.
	Eye() mgl32.Vec3

	// Pivot returns the point the eye looks at.
	Pivot() mgl32.Vec3

	// SetPivot moves the pivot, carrying the eye along.
	SetPivot(p mgl32.Vec3)

	// OrbitLeft rotates the eye clockwise around the pivot, seen from above.
	OrbitLeft()

	// OrbitRight rotates the eye counter-clockwise around the pivot, seen from above.
	OrbitRight()

	// OrbitUp raises the eye, clamped to the maximum elevation.
	OrbitUp()

	// OrbitDown lowers the eye, clamped to the minimum elevation.
	OrbitDown()

	// Orbit moves the eye by the given angles in radians. Elevation is clamped.
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye toward (positive delta) or away from the pivot.
	//
	// Parameters:
	//   - delta: zoom steps, scaled by the zoom speed
	Zoom(delta float32)

	// Radius returns the eye-to-pivot distance.
	Radius() float32

	// SetRadius sets the eye-to-pivot distance, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around +Y in radians.
	Azimuth() float32

	// Elevation returns the angle above the horizontal plane in radians.
	Elevation() float32

	// Fit frames a bounding sphere: the pivot moves to its center and the
	// radius grows until the sphere fills a vertical field of view of fov.
	// The fitted state becomes the one Reset returns to.
	//
	// Parameters:
	//   - center: the sphere center
	//   - radius: the sphere radius
	//   - fov: the camera's vertical field of view in radians
	Fit(center mgl32.Vec3, radius, fov float32)

	// Reset returns to the state after construction or the last Fit.
	Reset()
}

var _ OrbitController = &orbitController{}

// NewOrbitController creates an orbit controller looking at the origin from
// 10 units away, 30° above the horizon.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the newly created controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitController{
		mu: &sync.Mutex{},
		orbitState: orbitState{
			radius:    10,
			elevation: math32.Pi / 6,
		},
		minRadius:    0.01,
		maxRadius:    10000,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		orbitSpeed:   0.03,
		zoomSpeed:    0.1,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	oc.home = oc.orbitState
	return oc
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (oc *orbitController) Eye() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	sinAz, cosAz := math32.Sincos(oc.azimuth)
	sinEl, cosEl := math32.Sincos(oc.elevation)
	return oc.pivot.Add(mgl32.Vec3{
		oc.radius * cosEl * sinAz,
		oc.radius * sinEl,
		oc.radius * cosEl * cosAz,
	})
}

func (oc *orbitController) Pivot() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.pivot
}

func (oc *orbitController) SetPivot(p mgl32.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.pivot = p
}

func (oc *orbitController) OrbitLeft() {
	oc.Orbit(-oc.orbitSpeed, 0)
}

func (oc *orbitController) OrbitRight() {
	oc.Orbit(oc.orbitSpeed, 0)
}

func (oc *orbitController) OrbitUp() {
	oc.Orbit(0, oc.orbitSpeed)
}

func (oc *orbitController) OrbitDown() {
	oc.Orbit(0, -oc.orbitSpeed)
}

func (oc *orbitController) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += dAzimuth
	oc.elevation = clamp(oc.elevation+dElevation, oc.minElevation, oc.maxElevation)
}

func (oc *orbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(oc.radius*(1-delta*oc.zoomSpeed), oc.minRadius, oc.maxRadius)
}

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitController) SetRadius(radius float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(radius, oc.minRadius, oc.maxRadius)
}

func (oc *orbitController) Azimuth() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.azimuth
}

func (oc *orbitController) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}

func (oc *orbitController) Fit(center mgl32.Vec3, radius, fov float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	if radius <= 0 {
		radius = 1
	}
	half := fov / 2
	if half <= 0 {
		half = math32.Pi / 8
	}
	oc.pivot = center
	oc.radius = clamp(radius/math32.Sin(half), oc.minRadius, oc.maxRadius)
	oc.home = oc.orbitState
}

func (oc *orbitController) Reset() {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.orbitState = oc.home
}
