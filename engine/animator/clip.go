// Package animator builds keyframe clips from glTF 1.0 animations and
// evaluates them onto joint instances.
package animator

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	ErrUnknownClip    = errors.New("unknown animation clip")
	errUnknownSampler = errors.New("channel references unknown sampler")
	errUnknownParam   = errors.New("sampler references unknown parameter")
	errKeyframeCount  = errors.New("output keyframe count does not match input times")
	errUnsortedTimes  = errors.New("keyframe times are not ascending")
	errUnknownPath    = errors.New("unsupported channel path")
)

// AccessorReader decodes accessors into floats. loader.AccessorResolver satisfies it.
type AccessorReader interface {
	Vectors(id string, arity int) ([]float32, error)
}

// Track is the keyframe data of one target node within a timeline. Each
// present array is indexed in lock-step with the timeline's times.
type Track struct {
	// Target is the id of the animated node.
	Target string

	Translation []mgl32.Vec3
	Rotation    []mgl32.Quat
	Scale       []mgl32.Vec3
}

// Timeline is a set of tracks sharing one input (time) accessor.
type Timeline struct {
	// Input is the accessor id of the times.
	Input string

	// Times are the ascending keyframe times in seconds.
	Times []float32

	// Tracks are ordered by target id.
	Tracks []*Track

	byTarget map[string]*Track
}

// Clip is one glTF animation.
type Clip struct {
	// Name is the animation id.
	Name string

	// Duration is the largest end time over all timelines.
	Duration float32

	// Timelines are ordered by input accessor id.
	Timelines []*Timeline
}

// Targets returns the node ids the clip animates, sorted.
func (c *Clip) Targets() []string {
	set := make(map[string]struct{})
	for _, tl := range c.Timelines {
		for _, tr := range tl.Tracks {
			set[tr.Target] = struct{}{}
		}
	}
	return common.SortedKeys(set)
}

// ClipStore holds every clip of a document by name.
type ClipStore struct {
	clips map[string]*Clip
	names []string
}

// Clip returns the clip with the given name.
func (s *ClipStore) Clip(name string) (*Clip, bool) {
	c, ok := s.clips[name]
	return c, ok
}

// Names returns the clip names in sorted order.
func (s *ClipStore) Names() []string { return append([]string(nil), s.names...) }

// Len returns the number of clips.
func (s *ClipStore) Len() int { return len(s.names) }

// BuildClips decodes every animation into a clip. Channels are grouped into
// timelines by input accessor, and channels that share a timeline and a
// target fill one track. A broken channel is logged and skipped; the rest of
// its clip survives.
//
// Parameters:
//   - animations: the document's animation table
//   - reader: decodes sampler accessors
//   - log: logger for skipped channels, or nil
//
// Returns:
//   - *ClipStore: the clips
//   - error: loader.ErrNotReady (wrapped) if accessor data has not loaded
func BuildClips(animations map[string]loader.GLTFAnimation, reader AccessorReader, log *zap.Logger) (*ClipStore, error) {
	if log == nil {
		log = logger.Named("animator")
	}

	store := &ClipStore{clips: make(map[string]*Clip)}
	for _, id := range common.SortedKeys(animations) {
		clip, err := buildClip(id, animations[id], reader, log)
		if err != nil {
			return nil, err
		}
		store.clips[id] = clip
		store.names = append(store.names, id)
		log.Debug("built clip", zap.String("clip", id),
			zap.Float32("duration", clip.Duration), zap.Int("timelines", len(clip.Timelines)))
	}
	return store, nil
}

func buildClip(id string, anim loader.GLTFAnimation, reader AccessorReader, log *zap.Logger) (*Clip, error) {
	clip := &Clip{Name: id}
	timelines := make(map[string]*Timeline)

	for i, ch := range anim.Channels {
		err := addChannel(timelines, anim, ch, reader)
		if errors.Is(err, loader.ErrNotReady) {
			return nil, fmt.Errorf("clip %q: %w", id, err)
		}
		if err != nil {
			log.Warn("skipping animation channel",
				zap.String("clip", id), zap.Int("channel", i),
				zap.String("target", ch.Target.ID), zap.String("path", ch.Target.Path),
				zap.Error(err))
		}
	}

	for _, input := range common.SortedKeys(timelines) {
		tl := timelines[input]
		if len(tl.Tracks) == 0 {
			continue
		}
		sortTracks(tl)
		clip.Timelines = append(clip.Timelines, tl)
		if n := len(tl.Times); n > 0 && tl.Times[n-1] > clip.Duration {
			clip.Duration = tl.Times[n-1]
		}
	}
	return clip, nil
}

func sortTracks(tl *Timeline) {
	tl.Tracks = tl.Tracks[:0]
	for _, target := range common.SortedKeys(tl.byTarget) {
		tl.Tracks = append(tl.Tracks, tl.byTarget[target])
	}
}

func addChannel(timelines map[string]*Timeline, anim loader.GLTFAnimation, ch loader.GLTFAnimationChannel, reader AccessorReader) error {
	sampler, ok := anim.Samplers[ch.Sampler]
	if !ok {
		return fmt.Errorf("%q: %w", ch.Sampler, errUnknownSampler)
	}
	inputID, ok := anim.Parameters[sampler.Input]
	if !ok {
		return fmt.Errorf("input %q: %w", sampler.Input, errUnknownParam)
	}
	outputID, ok := anim.Parameters[sampler.Output]
	if !ok {
		return fmt.Errorf("output %q: %w", sampler.Output, errUnknownParam)
	}

	arity := 3
	switch ch.Target.Path {
	case loader.GLTFAnimationPathTranslation, loader.GLTFAnimationPathScale:
	case loader.GLTFAnimationPathRotation:
		arity = 4
	default:
		return fmt.Errorf("%q: %w", ch.Target.Path, errUnknownPath)
	}

	tl, ok := timelines[inputID]
	if !ok {
		times, err := reader.Vectors(inputID, 1)
		if err != nil {
			return err
		}
		for i := 1; i < len(times); i++ {
			if times[i] < times[i-1] {
				return fmt.Errorf("input %q: %w", inputID, errUnsortedTimes)
			}
		}
		tl = &Timeline{Input: inputID, Times: times, byTarget: make(map[string]*Track)}
		timelines[inputID] = tl
	}

	values, err := reader.Vectors(outputID, arity)
	if err != nil {
		return err
	}
	if len(values)/arity != len(tl.Times) {
		return fmt.Errorf("%d outputs for %d times: %w", len(values)/arity, len(tl.Times), errKeyframeCount)
	}

	track, ok := tl.byTarget[ch.Target.ID]
	if !ok {
		track = &Track{Target: ch.Target.ID}
		tl.byTarget[ch.Target.ID] = track
		tl.Tracks = append(tl.Tracks, track)
	}

	switch ch.Target.Path {
	case loader.GLTFAnimationPathTranslation:
		track.Translation = toVec3s(values)
	case loader.GLTFAnimationPathScale:
		track.Scale = toVec3s(values)
	case loader.GLTFAnimationPathRotation:
		track.Rotation = toQuats(values)
	}
	return nil
}

func toVec3s(values []float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(values)/3)
	for i := range out {
		out[i] = mgl32.Vec3{values[i*3], values[i*3+1], values[i*3+2]}
	}
	return out
}

// toQuats reads glTF [x, y, z, w] quaternions.
func toQuats(values []float32) []mgl32.Quat {
	out := make([]mgl32.Quat, len(values)/4)
	for i := range out {
		out[i] = common.QuatOr(values[i*4:i*4+4], mgl32.QuatIdent())
	}
	return out
}
