package renderer

import "github.com/go-gl/mathgl/mgl32"

// Topology is the primitive assembly mode of a draw, numbered as glTF primitive modes.
type Topology int

const (
	TopologyPoints Topology = iota
	TopologyLines
	TopologyLineLoop
	TopologyLineStrip
	TopologyTriangles
	TopologyTriangleStrip
	TopologyTriangleFan
)

// AttributeBinding wires one program attribute to an accessor-backed vertex buffer range.
type AttributeBinding struct {
	// Name is the program attribute name (e.g. "a_position").
	Name string

	// Semantic is the technique parameter semantic (e.g. "POSITION", "JOINT").
	Semantic string

	Buffer        BufferHandle
	ByteOffset    int
	ByteStride    int
	ComponentType int
	Arity         int
	Count         int
}

// UniformBinding wires one program uniform to a value or a texture.
// Exactly one of Value or Texture is set.
type UniformBinding struct {
	// Name is the program uniform name (e.g. "u_diffuse").
	Name string

	// Semantic is the technique parameter semantic, empty for material values.
	Semantic string

	// Type is the GL type enum of the parameter (e.g. 35676 for FLOAT_MAT4).
	Type int

	Value   []float32
	Texture TextureHandle
}

// ElementBinding is the index buffer range of an indexed draw.
type ElementBinding struct {
	Buffer        BufferHandle
	ByteOffset    int
	ComponentType int
	Count         int
}

// DrawInfo is the per-primitive render request for one frame. Attribute and
// uniform slices are sorted by name.
type DrawInfo struct {
	// Technique names the technique variant ("diffuse" or "diffuse_skinned").
	Technique string

	// Program is the glTF program id the technique binds.
	Program string

	// Node is the id of the scene node that owns the primitive.
	Node string

	Topology   Topology
	Attributes []AttributeBinding
	Uniforms   []UniformBinding
	Elements   *ElementBinding

	Count  int
	Offset int

	// Model is the owning node's world matrix.
	Model mgl32.Mat4

	// BoneTexture is set for skinned draws only.
	BoneTexture     TextureHandle
	BoneTextureSize int
}

// Skinned reports whether the draw samples a bone texture.
func (d *DrawInfo) Skinned() bool {
	return d.BoneTexture != nil
}

// Uniform returns the binding for a uniform name.
func (d *DrawInfo) Uniform(name string) (UniformBinding, bool) {
	for _, u := range d.Uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return UniformBinding{}, false
}

// Attribute returns the binding for an attribute name.
func (d *DrawInfo) Attribute(name string) (AttributeBinding, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeBinding{}, false
}
