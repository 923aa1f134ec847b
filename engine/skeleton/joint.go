// Package skeleton holds joint hierarchies and the skins bound to them.
//
// Joints are stored in flat pre-order arenas addressed by index. Every record
// carries its parent index and the extent of its subtree, so a subtree is
// always the contiguous range [i, i+Size). The canonical Arena built from a
// document is read-only; each skinned instance works on its own Instance,
// filled by bulk range copies out of the arena.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// NoParent marks a joint without a parent in its arena.
const NoParent = -1

var (
	ErrJointOutOfRange = errors.New("joint index out of range")
	ErrInvalidParent   = errors.New("parent must be NoParent or a joint whose subtree ends the arena")
	ErrJointCycle      = errors.New("joint hierarchy contains a cycle")
)

// Joint is one record of a joint arena.
type Joint struct {
	// ID is the glTF node id the joint was built from.
	ID string

	// Name is the node's display name.
	Name string

	// JointName is the name skins refer to the joint by.
	JointName string

	// Parent is the arena index of the parent joint, or NoParent.
	Parent int

	// Size is the number of joints in this joint's subtree, itself included.
	Size int

	// Bind is the bind-pose local TRS.
	Bind common.Transform

	// Local is the bind-pose local matrix.
	Local mgl32.Mat4

	// World is the accumulated world matrix.
	World mgl32.Mat4
}

// Arena is the canonical, read-only joint hierarchy of a document.
type Arena struct {
	joints []Joint
	byID   map[string]int
	roots  []int
}

// BuildArena collects every node carrying a jointName into a pre-order arena.
// Nodes are scanned in sorted id order. A joint reached again through a
// second parent keeps its first parent. Roots (joints without a joint
// parent) are ordered by id.
//
// Parameters:
//   - nodes: the document's node table
//   - log: logger for skipped references, or nil
//
// Returns:
//   - *Arena: the arena
//   - error: ErrJointCycle if some joints are unreachable from any root
func BuildArena(nodes map[string]loader.GLTFNode, log *zap.Logger) (*Arena, error) {
	if log == nil {
		log = logger.Named("skeleton")
	}

	ids := common.SortedKeys(nodes)
	parent := make(map[string]string)
	children := make(map[string][]string)
	isJoint := func(id string) bool {
		n, ok := nodes[id]
		return ok && n.JointName != ""
	}

	for _, id := range ids {
		if !isJoint(id) {
			continue
		}
		for _, child := range nodes[id].Children {
			if _, ok := nodes[child]; !ok {
				log.Warn("joint references unknown child", zap.String("joint", id), zap.String("child", child))
				continue
			}
			if !isJoint(child) {
				continue
			}
			if _, linked := parent[child]; linked {
				continue
			}
			parent[child] = id
			children[id] = append(children[id], child)
		}
	}

	a := &Arena{byID: make(map[string]int)}
	total := 0
	for _, id := range ids {
		if !isJoint(id) {
			continue
		}
		total++
		if _, hasParent := parent[id]; !hasParent {
			a.flatten(id, NoParent, nodes, children)
		}
	}

	if len(a.joints) != total {
		return a, fmt.Errorf("%d of %d joints unreachable: %w", total-len(a.joints), total, ErrJointCycle)
	}
	return a, nil
}

func (a *Arena) flatten(id string, parentIdx int, nodes map[string]loader.GLTFNode, children map[string][]string) {
	if _, seen := a.byID[id]; seen {
		return
	}
	node := nodes[id]
	bind := node.Transform()
	local := bind.Matrix()
	world := local
	if parentIdx != NoParent {
		world = a.joints[parentIdx].World.Mul4(local)
	} else {
		a.roots = append(a.roots, len(a.joints))
	}

	idx := len(a.joints)
	a.byID[id] = idx
	a.joints = append(a.joints, Joint{
		ID:        id,
		Name:      node.Name,
		JointName: node.JointName,
		Parent:    parentIdx,
		Bind:      bind,
		Local:     local,
		World:     world,
	})
	for _, child := range children[id] {
		a.flatten(child, idx, nodes, children)
	}
	a.joints[idx].Size = len(a.joints) - idx
}

// Len returns the number of joints in the arena.
func (a *Arena) Len() int { return len(a.joints) }

// Joint returns a copy of the joint at index i.
func (a *Arena) Joint(i int) Joint { return a.joints[i] }

// Index returns the arena index of the joint built from node id.
func (a *Arena) Index(id string) (int, bool) {
	i, ok := a.byID[id]
	return i, ok
}

// Roots returns the indices of root joints in id order.
func (a *Arena) Roots() []int {
	return append([]int(nil), a.roots...)
}

// Duplicate copies the subtree rooted at root into dst, attached under
// parent. parent must be NoParent or a dst joint whose subtree currently
// ends dst, so the copy extends that subtree contiguously.
//
// Parameters:
//   - root: arena index of the subtree to copy
//   - dst: the instance receiving the copy
//   - parent: dst index to attach under, or NoParent
//
// Returns:
//   - int: the dst index of the copied root
//   - error: ErrJointOutOfRange or ErrInvalidParent
func (a *Arena) Duplicate(root int, dst *Instance, parent int) (int, error) {
	if root < 0 || root >= len(a.joints) {
		return NoParent, fmt.Errorf("root %d of %d: %w", root, len(a.joints), ErrJointOutOfRange)
	}
	base := len(dst.joints)
	if parent != NoParent {
		if parent < 0 || parent >= base || parent+dst.joints[parent].Size != base {
			return NoParent, fmt.Errorf("parent %d: %w", parent, ErrInvalidParent)
		}
	}

	src := a.joints[root : root+a.joints[root].Size]
	for k, j := range src {
		if k == 0 {
			j.Parent = parent
		} else {
			j.Parent = j.Parent - root + base
		}
		dst.joints = append(dst.joints, InstanceJoint{Joint: j, Pose: j.Bind, AnimatedLocal: j.Local})
		if _, exists := dst.byID[j.ID]; !exists {
			dst.byID[j.ID] = base + k
		}
	}

	for p := parent; p != NoParent; p = dst.joints[p].Parent {
		dst.joints[p].Size += len(src)
	}
	if parent == NoParent {
		dst.roots = append(dst.roots, base)
	}
	return base, nil
}
