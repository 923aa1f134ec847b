package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Target is a joint set a clip can pose. *skeleton.Instance satisfies it.
type Target interface {
	Index(id string) (int, bool)
	BindPose(i int) common.Transform
	SetPose(i int, pose common.Transform)
}

// LoopTime wraps a query time into [0, duration). Negative times wrap from
// the end; a zero or invalid duration yields 0.
//
// Parameters:
//   - queryTime: the unwrapped time in seconds
//   - duration: the clip duration
//
// Returns:
//   - float32: the wrapped time
func LoopTime(queryTime, duration float32) float32 {
	if duration <= 0 || math32.IsNaN(duration) || math32.IsInf(duration, 0) ||
		math32.IsNaN(queryTime) || math32.IsInf(queryTime, 0) {
		return 0
	}
	t := math32.Mod(queryTime, duration)
	if t < 0 {
		t += duration
	}
	if t >= duration {
		t = 0
	}
	return t
}

// Interval locates the keyframes around t: times[lo] <= t < times[hi],
// clamped to the first and last keyframe. ratio is 0 whenever lo == hi or
// the span between them is empty.
//
// Parameters:
//   - times: ascending keyframe times
//   - t: the sample time
//
// Returns:
//   - lo, hi: keyframe indices
//   - ratio: interpolation factor in [0, 1)
func Interval(times []float32, t float32) (lo, hi int, ratio float32) {
	n := len(times)
	if n == 0 {
		return 0, 0, 0
	}
	hi = sort.Search(n, func(i int) bool { return times[i] > t })
	switch {
	case hi == 0:
		return 0, 0, 0
	case hi == n:
		return n - 1, n - 1, 0
	}
	lo = hi - 1
	span := times[hi] - times[lo]
	if span <= 0 {
		return lo, hi, 0
	}
	return lo, hi, (t - times[lo]) / span
}

// Sample poses every target joint the clip animates at queryTime (looped
// over the clip duration). Channels a track lacks keep the joint's bind
// TRS. World matrices are left stale.
//
// Parameters:
//   - clip: the clip to sample
//   - queryTime: the unwrapped time in seconds
//   - target: the joints to pose
//
// Returns:
//   - int: the number of joints posed
func Sample(clip *Clip, queryTime float32, target Target) int {
	t := LoopTime(queryTime, clip.Duration)
	posed := 0
	for _, tl := range clip.Timelines {
		lo, hi, ratio := Interval(tl.Times, t)
		for _, tr := range tl.Tracks {
			idx, ok := target.Index(tr.Target)
			if !ok {
				continue
			}
			pose := target.BindPose(idx)
			if tr.Translation != nil {
				pose.Translation = lerpVec3(tr.Translation[lo], tr.Translation[hi], ratio)
			}
			if tr.Rotation != nil {
				pose.Rotation = slerp(tr.Rotation[lo], tr.Rotation[hi], ratio)
			}
			if tr.Scale != nil {
				pose.Scale = lerpVec3(tr.Scale[lo], tr.Scale[hi], ratio)
			}
			target.SetPose(idx, pose)
			posed++
		}
	}
	return posed
}

// Evaluate samples clip onto inst, re-propagates the instance's world
// matrices and refreshes every skin reading from it.
//
// Parameters:
//   - clip: the clip to evaluate
//   - queryTime: the unwrapped time in seconds
//   - inst: the joint instance
//   - skins: skins bound to inst
//
// Returns:
//   - error: the first bone texture upload failure
func Evaluate(clip *Clip, queryTime float32, inst *skeleton.Instance, skins []*skeleton.Skin) error {
	return EvaluateClips([]*Clip{clip}, queryTime, inst, skins)
}

// EvaluateClips is Evaluate over several clips at once. Every joint starts
// from its bind pose, so joints no clip animates hold still; where clips
// overlap the later one wins.
func EvaluateClips(clips []*Clip, queryTime float32, inst *skeleton.Instance, skins []*skeleton.Skin) error {
	inst.ResetAll()
	for _, c := range clips {
		Sample(c, queryTime, inst)
	}
	inst.PropagateAll()
	for _, s := range skins {
		if err := s.Refresh(); err != nil {
			return err
		}
	}
	return nil
}

func lerpVec3(a, b mgl32.Vec3, ratio float32) mgl32.Vec3 {
	if ratio == 0 {
		return a
	}
	return a.Add(b.Sub(a).Mul(ratio))
}

// slerp takes the short way round: q2 is negated when the pair spans more
// than half a turn.
func slerp(q1, q2 mgl32.Quat, ratio float32) mgl32.Quat {
	if ratio == 0 {
		return q1
	}
	if q1.Dot(q2) < 0 {
		q2 = q2.Scale(-1)
	}
	return mgl32.QuatSlerp(q1, q2, ratio)
}
