package scene

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
	ErrNodeCycle   = errors.New("node hierarchy contains a cycle")
	ErrUnknownNode = errors.New("unknown node")
)

// Node is one node of the visual hierarchy. A Node owns its children; Parent
// is a back-reference and nil for scene roots.
type Node struct {
	ID   string
	Name string

	Parent   *Node
	Children []*Node

	// Transform is the local TRS.
	Transform common.Transform

	// Local is the local matrix composed from Transform.
	Local mgl32.Mat4

	// World is Parent.World × Local, or Local for roots.
	World mgl32.Mat4

	Meshes []string

	// Skin is the skin id of a skinned instance, with the ids of the joint
	// nodes its joint names resolve against.
	Skin      string
	Skeletons []string

	// Animations lists the clips this node is the animation root of.
	Animations []string
}

// BuildNodes builds the node trees under rootIDs. Children are built in the
// order the document lists them and world matrices are finalised parent
// first. Unknown ids are logged and skipped, and so is a node already placed
// under another parent.
//
// Parameters:
//   - nodes: the document's node table
//   - rootIDs: ids of the scene root nodes
//   - log: logger for skipped references, or nil
//
// Returns:
//   - []*Node: the root nodes
//   - error: ErrNodeCycle if a node is its own ancestor
func BuildNodes(nodes map[string]loader.GLTFNode, rootIDs []string, log *zap.Logger) ([]*Node, error) {
	if log == nil {
		log = logger.Named("scene")
	}
	b := &nodeBuilder{
		nodes:   nodes,
		placed:  make(map[string]bool),
		onStack: make(map[string]bool),
		log:     log,
	}

	roots := make([]*Node, 0, len(rootIDs))
	for _, id := range rootIDs {
		n, err := b.build(id, nil)
		if err != nil {
			return nil, err
		}
		if n != nil {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

type nodeBuilder struct {
	nodes   map[string]loader.GLTFNode
	placed  map[string]bool
	onStack map[string]bool
	log     *zap.Logger
}

func (b *nodeBuilder) build(id string, parent *Node) (*Node, error) {
	if b.onStack[id] {
		return nil, fmt.Errorf("node %q: %w", id, ErrNodeCycle)
	}
	src, ok := b.nodes[id]
	if !ok {
		b.log.Warn("skipping unknown node", zap.String("node", id))
		return nil, nil
	}
	if b.placed[id] {
		b.log.Warn("skipping node with a second parent", zap.String("node", id))
		return nil, nil
	}
	b.placed[id] = true
	b.onStack[id] = true
	defer delete(b.onStack, id)

	n := &Node{
		ID:         id,
		Name:       src.Name,
		Parent:     parent,
		Transform:  src.Transform(),
		Meshes:     src.Meshes,
		Skin:       src.Skin,
		Skeletons:  src.Skeletons,
		Animations: src.AnimationIDs(),
	}
	n.Local = n.Transform.Matrix()
	n.World = n.Local
	if parent != nil {
		n.World = parent.World.Mul4(n.Local)
	}

	for _, childID := range src.Children {
		child, err := b.build(childID, n)
		if err != nil {
			return nil, err
		}
		if child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n, nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of that node.
//
// Parameters:
//   - fn: called once per node
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// SetTransform replaces the local TRS and recomputes the world matrices of
// the subtree.
func (n *Node) SetTransform(t common.Transform) {
	n.Transform = t
	n.Local = t.Matrix()
	n.UpdateWorld()
}

// UpdateWorld recomputes the world matrices of n and its descendants.
func (n *Node) UpdateWorld() {
	n.Walk(func(c *Node) bool {
		if c.Parent == nil {
			c.World = c.Local
		} else {
			c.World = c.Parent.World.Mul4(c.Local)
		}
		return true
	})
}

// IsDescendantOf reports whether n is a, or lies under a.
func (n *Node) IsDescendantOf(a *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}
