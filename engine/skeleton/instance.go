package skeleton

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceJoint is a duplicated joint with its own animation state.
type InstanceJoint struct {
	Joint

	// Pose is the current local TRS, the bind TRS until animated.
	Pose common.Transform

	// AnimatedLocal is the current local matrix composed from Pose.
	AnimatedLocal mgl32.Mat4
}

// Instance is the private joint arena of one skinned node. It shares the
// Arena's layout but owns its records, so posing it never touches the
// canonical hierarchy or any other instance.
type Instance struct {
	// Owner is the id of the node this instance animates.
	Owner string

	joints []InstanceJoint
	byID   map[string]int
	roots  []int
}

// NewInstance creates an empty instance owned by the given node id.
func NewInstance(owner string) *Instance {
	return &Instance{
		Owner: owner,
		byID:  make(map[string]int),
	}
}

// Len returns the number of joints in the instance.
func (in *Instance) Len() int { return len(in.joints) }

// Joint returns a copy of the joint at index i.
func (in *Instance) Joint(i int) InstanceJoint { return in.joints[i] }

// Index returns the instance index of the joint duplicated from node id.
func (in *Instance) Index(id string) (int, bool) {
	i, ok := in.byID[id]
	return i, ok
}

// Roots returns the indices of the instance's root joints in copy order.
func (in *Instance) Roots() []int {
	return append([]int(nil), in.roots...)
}

// World returns the current world matrix of joint i.
func (in *Instance) World(i int) mgl32.Mat4 { return in.joints[i].World }

// FindByJointName searches the subtree of root in pre-order for a joint
// with the exact jointName.
//
// Parameters:
//   - root: index of the subtree root
//   - name: the jointName to match
//
// Returns:
//   - int: index of the first match
//   - bool: false if no joint in the subtree carries the name
func (in *Instance) FindByJointName(root int, name string) (int, bool) {
	if root < 0 || root >= len(in.joints) {
		return NoParent, false
	}
	end := root + in.joints[root].Size
	for i := root; i < end; i++ {
		if in.joints[i].JointName == name {
			return i, true
		}
	}
	return NoParent, false
}

// BindPose returns the bind-pose local TRS of joint i.
func (in *Instance) BindPose(i int) common.Transform { return in.joints[i].Bind }

// SetPose sets joint i's local TRS and recomposes its animated local matrix.
// World matrices are stale until Propagate runs.
func (in *Instance) SetPose(i int, pose common.Transform) {
	j := &in.joints[i]
	j.Pose = pose
	j.AnimatedLocal = pose.Matrix()
}

// ResetPose restores joint i to its bind pose.
func (in *Instance) ResetPose(i int) {
	j := &in.joints[i]
	j.Pose = j.Bind
	j.AnimatedLocal = j.Local
}

// ResetAll restores every joint to its bind pose.
func (in *Instance) ResetAll() {
	for i := range in.joints {
		in.ResetPose(i)
	}
}

// Propagate recomputes world matrices for the subtree of root in pre-order
// from the animated local matrices. A root without a parent takes its
// animated local matrix as world.
//
// Parameters:
//   - root: index of the subtree root
func (in *Instance) Propagate(root int) {
	if root < 0 || root >= len(in.joints) {
		return
	}
	end := root + in.joints[root].Size
	for i := root; i < end; i++ {
		j := &in.joints[i]
		if j.Parent == NoParent {
			j.World = j.AnimatedLocal
			continue
		}
		j.World = in.joints[j.Parent].World.Mul4(j.AnimatedLocal)
	}
}

// PropagateAll recomputes every world matrix of the instance.
func (in *Instance) PropagateAll() {
	for _, r := range in.roots {
		in.Propagate(r)
	}
}
