package animator

import "go.uber.org/zap"

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithSpeed is an option builder that sets the initial playback rate.
//
// Parameters:
//   - speed: the playback rate multiplier
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the speed option to an animator
func WithSpeed(speed float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.speed = speed
	}
}

// WithClip is an option builder that restricts playback to one clip. An
// unknown name is logged and ignored, leaving every clip selected.
//
// Parameters:
//   - name: the clip name
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the clip option to an animator
func WithClip(name string) AnimatorBuilderOption {
	return func(a *animator) {
		if name == "" {
			return
		}
		if _, ok := a.clips.Clip(name); !ok {
			a.log.Warn("unknown clip, playing all", zap.String("clip", name))
			return
		}
		a.clip = name
	}
}

// WithPaused is an option builder that starts the animator paused.
func WithPaused() AnimatorBuilderOption {
	return func(a *animator) {
		a.playing = false
	}
}

// WithLogger sets the animator's logger.
func WithLogger(log *zap.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if log != nil {
			a.log = log
		}
	}
}
