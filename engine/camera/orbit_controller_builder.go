package camera

import "github.com/go-gl/mathgl/mgl32"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitController)

// WithRadius sets the initial eye-to-pivot distance.
//
// Parameters:
//   - radius: the distance from the pivot
//
// Returns:
//   - OrbitControllerOption: a function that applies the radius to the controller
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around +Y in radians.
func WithAzimuth(azimuth float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.azimuth = azimuth
	}
}

// WithElevation sets the initial angle above the horizontal plane in radians.
func WithElevation(elevation float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.elevation = elevation
	}
}

// WithPivot sets the look-at point.
func WithPivot(p mgl32.Vec3) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.pivot = p
	}
}

// WithRadiusBounds sets the minimum and maximum eye-to-pivot distance.
//
// Parameters:
//   - min: the closest the eye may get
//   - max: the farthest the eye may get
//
// Returns:
//   - OrbitControllerOption: a function that applies the bounds to the controller
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.minRadius = min
		oc.maxRadius = max
	}
}

// WithOrbitSpeed sets the angle, in radians, of one orbit step.
func WithOrbitSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.orbitSpeed = speed
	}
}

// WithZoomSpeed sets the fraction of the radius one zoom step covers.
func WithZoomSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.zoomSpeed = speed
	}
}
