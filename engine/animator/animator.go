package animator

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"go.uber.org/zap"
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu sync.RWMutex

	clips *ClipStore
	log   *zap.Logger

	playing bool
	speed   float32
	time    float64
	clip    string
}

// Animator holds playback state around a ClipStore: a clock advanced by
// frame deltas, a speed multiplier, a pause flag and an optional clip
// filter. Every clip loops and Sample wraps the clock per clip. When every
// active clip shares one duration Advance wraps the clock to it, so long
// sessions keep full float32 precision.
type Animator interface {
	// Play resumes the clock.
	Play()

	// Pause freezes the clock.
	Pause()

	// Toggle flips between playing and paused.
	Toggle()

	// Playing reports whether the clock advances.
	Playing() bool

	// SetSpeed sets the playback rate multiplier. Negative speeds play backwards.
	SetSpeed(speed float32)

	// Speed returns the playback rate multiplier.
	Speed() float32

	// SelectClip restricts playback to one clip. An empty name plays every clip.
	//
	// Parameters:
	//   - name: the clip name, or ""
	//
	// Returns:
	//   - error: ErrUnknownClip if no clip has the name
	SelectClip(name string) error

	// NextClip cycles the selection through every clip and back to "all".
	//
	// Returns:
	//   - string: the new selection, "" for all clips
	NextClip() string

	// Selected returns the selected clip name, "" when every clip plays.
	Selected() string

	// Advance moves the clock by dt scaled by speed when playing.
	//
	// Parameters:
	//   - dt: the frame delta in seconds
	//
	// Returns:
	//   - float32: the clock after advancing
	Advance(dt float32) float32

	// Seek sets the clock.
	Seek(t float32)

	// Time returns the clock.
	Time() float32

	// Active returns the clips that play, in name order.
	Active() []*Clip

	// Clips returns the underlying clip store.
	Clips() *ClipStore
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator over clips with the provided options applied.
// It starts playing at speed 1 with every clip selected.
//
// Parameters:
//   - clips: the clip store to play
//   - options: variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the configured animator
func NewAnimator(clips *ClipStore, options ...AnimatorBuilderOption) Animator {
	if clips == nil {
		clips = &ClipStore{clips: make(map[string]*Clip)}
	}
	a := &animator{
		clips:   clips,
		log:     logger.Named("animator"),
		playing: true,
		speed:   1,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = true
}

func (a *animator) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = false
}

func (a *animator) Toggle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = !a.playing
	a.log.Debug("playback toggled", zap.Bool("playing", a.playing))
}

func (a *animator) Playing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.playing
}

func (a *animator) SetSpeed(speed float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speed = speed
}

func (a *animator) Speed() float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.speed
}

func (a *animator) SelectClip(name string) error {
	if name != "" {
		if _, ok := a.clips.Clip(name); !ok {
			return fmt.Errorf("%q: %w", name, ErrUnknownClip)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clip = name
	return nil
}

func (a *animator) NextClip() string {
	names := a.clips.Names()
	a.mu.Lock()
	defer a.mu.Unlock()

	next := ""
	if a.clip == "" {
		if len(names) > 0 {
			next = names[0]
		}
	} else {
		for i, n := range names {
			if n == a.clip && i+1 < len(names) {
				next = names[i+1]
			}
		}
	}
	a.clip = next
	a.log.Info("clip selected", zap.String("clip", next))
	return next
}

func (a *animator) Selected() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.clip
}

func (a *animator) Advance(dt float32) float32 {
	period := a.period()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playing {
		a.time += float64(dt) * float64(a.speed)
		if period > 0 && !math.IsNaN(a.time) && !math.IsInf(a.time, 0) {
			a.time = math.Mod(a.time, period)
			if a.time < 0 {
				a.time += period
			}
		}
	}
	return float32(a.time)
}

// period returns the duration shared by every active clip, or 0 when the
// active clips disagree.
func (a *animator) period() float64 {
	var d float32
	for _, c := range a.Active() {
		if c == nil || c.Duration <= 0 || (d != 0 && c.Duration != d) {
			return 0
		}
		d = c.Duration
	}
	return float64(d)
}

func (a *animator) Seek(t float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = float64(t)
}

func (a *animator) Time() float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float32(a.time)
}

func (a *animator) Active() []*Clip {
	selected := a.Selected()
	if selected != "" {
		c, _ := a.clips.Clip(selected)
		return []*Clip{c}
	}
	out := make([]*Clip, 0, a.clips.Len())
	for _, n := range a.clips.Names() {
		c, _ := a.clips.Clip(n)
		out = append(out, c)
	}
	return out
}

func (a *animator) Clips() *ClipStore {
	return a.clips
}
