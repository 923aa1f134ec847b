package skeleton

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// TextureAllocator creates bone textures. renderer.Renderer satisfies it.
type TextureAllocator interface {
	AllocateTexture(cfg renderer.TextureConfig) (renderer.TextureHandle, error)
}

// SkinSpec is the decoded form of a glTF skin.
type SkinSpec struct {
	ID                  string
	JointNames          []string
	InverseBindMatrices []mgl32.Mat4
	BindShapeMatrix     mgl32.Mat4
}

// Skin binds a joint-name list to the joints of one instance and owns the
// bone texture the skinned draw samples.
type Skin struct {
	ID string

	instance  *Instance
	bones     []int // instance index per joint name, NoParent if unresolved
	ibm       []mgl32.Mat4
	bindShape mgl32.Mat4

	texture renderer.TextureHandle
	size    int
	pixels  []float32
}

// Bind resolves each joint name of spec against the subtrees of roots, in
// the order given; the first root holding the name wins. Unresolved names
// are logged and leave their bone slot zero. Missing inverse bind matrices
// default to identity.
//
// Parameters:
//   - spec: the skin to bind
//   - inst: the instance owning the joints
//   - roots: instance indices of the skeleton roots, in priority order
//   - alloc: allocator for the bone texture
//   - log: logger for skipped joints, or nil
//
// Returns:
//   - *Skin: the bound skin with a refreshed bone texture
//   - error: ErrBoneCapacity or a texture allocation error
func Bind(spec SkinSpec, inst *Instance, roots []int, alloc TextureAllocator, log *zap.Logger) (*Skin, error) {
	if log == nil {
		log = logger.Named("skeleton")
	}

	boneCount := len(spec.JointNames)
	size, err := BoneTextureSize(boneCount)
	if err != nil {
		return nil, fmt.Errorf("skin %q: %w", spec.ID, err)
	}

	s := &Skin{
		ID:        spec.ID,
		instance:  inst,
		bones:     make([]int, boneCount),
		ibm:       make([]mgl32.Mat4, boneCount),
		bindShape: spec.BindShapeMatrix,
		size:      size,
		pixels:    make([]float32, size*size*4),
	}
	if s.bindShape == (mgl32.Mat4{}) {
		s.bindShape = mgl32.Ident4()
	}
	if len(spec.InverseBindMatrices) < boneCount {
		log.Warn("skin has fewer inverse bind matrices than joints, padding with identity",
			zap.String("skin", spec.ID),
			zap.Int("joints", boneCount),
			zap.Int("matrices", len(spec.InverseBindMatrices)))
	}

	for i, name := range spec.JointNames {
		s.ibm[i] = mgl32.Ident4()
		if i < len(spec.InverseBindMatrices) {
			s.ibm[i] = spec.InverseBindMatrices[i]
		}

		s.bones[i] = NoParent
		for _, root := range roots {
			if idx, ok := inst.FindByJointName(root, name); ok {
				s.bones[i] = idx
				break
			}
		}
		if s.bones[i] == NoParent {
			log.Warn("unresolved joint name", zap.String("skin", spec.ID), zap.String("joint", name))
		}
	}

	s.texture, err = alloc.AllocateTexture(renderer.TextureConfig{
		Label:  "bones:" + inst.Owner + ":" + spec.ID,
		Width:  size,
		Height: size,
		Format: renderer.TextureFormatRGBA32Float,
	})
	if err != nil {
		return nil, fmt.Errorf("skin %q bone texture: %w", spec.ID, err)
	}

	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh writes world × inverseBind of every resolved bone into the bone
// texture. Bone i fills texels 4i..4i+3, one matrix row per texel.
func (s *Skin) Refresh() error {
	for i, b := range s.bones {
		if b == NoParent {
			continue
		}
		rows := common.MatrixRows(s.instance.World(b).Mul4(s.ibm[i]))
		copy(s.pixels[i*16:i*16+16], rows[:])
	}
	if err := s.texture.Update(common.SliceToBytes(s.pixels)); err != nil {
		return fmt.Errorf("skin %q: %w", s.ID, err)
	}
	return nil
}

// BoneMatrix returns the current skinning matrix of bone i, or the zero
// matrix for an unresolved bone.
func (s *Skin) BoneMatrix(i int) mgl32.Mat4 {
	if s.bones[i] == NoParent {
		return mgl32.Mat4{}
	}
	return s.instance.World(s.bones[i]).Mul4(s.ibm[i])
}

// Bones returns the instance joint index of each bone, NoParent where unresolved.
func (s *Skin) Bones() []int { return append([]int(nil), s.bones...) }

// BoneCount returns the number of bone slots, resolved or not.
func (s *Skin) BoneCount() int { return len(s.bones) }

// Resolved returns the number of bones bound to a joint.
func (s *Skin) Resolved() int {
	n := 0
	for _, b := range s.bones {
		if b != NoParent {
			n++
		}
	}
	return n
}

// Instance returns the joint instance the skin reads from.
func (s *Skin) Instance() *Instance { return s.instance }

// Texture returns the bone texture.
func (s *Skin) Texture() renderer.TextureHandle { return s.texture }

// TextureSize returns the side length of the bone texture.
func (s *Skin) TextureSize() int { return s.size }

// BindShapeMatrix returns the skin's bind shape matrix.
func (s *Skin) BindShapeMatrix() mgl32.Mat4 { return s.bindShape }

// Pixels returns the current bone texture contents as floats.
func (s *Skin) Pixels() []float32 { return s.pixels }
