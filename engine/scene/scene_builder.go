package scene

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active. Scenes start active.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCamera sets the scene's camera. Without one the scene creates an orbit
// camera that frames the model once it is built.
//
// Parameters:
//   - cam: the camera to use
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithAnimatorOptions passes options to the animator created at build time.
//
// Parameters:
//   - options: the animator options, e.g. animator.WithClip or animator.WithSpeed
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAnimatorOptions(options ...animator.AnimatorBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.animOpts = append(s.animOpts, options...)
	}
}

// WithParallelSkinning poses skinned instances concurrently on a worker pool.
func WithParallelSkinning(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.parallelSkinning = enabled
	}
}

// WithComputeWorkers sets the number of worker goroutines used by parallel
// skinning. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithComputePool runs parallel skinning on an existing pool instead of a new one.
func WithComputePool(pool worker.DynamicWorkerPool) SceneBuilderOption {
	return func(s *scene) {
		s.computePool = pool
	}
}

// WithCulling enables or disables frustum culling of unskinned primitives.
// Culling is enabled by default.
func WithCulling(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.culling = enabled
	}
}

// WithLogger sets the scene's logger.
func WithLogger(log *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if log != nil {
			s.log = log
		}
	}
}
