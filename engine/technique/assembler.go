package technique

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	ErrUnknownMaterial  = errors.New("primitive references unknown material")
	ErrUnknownTechnique = errors.New("material references unknown technique")
)

// Uniform semantics with live per-frame values.
const (
	SemanticModel                     = "MODEL"
	SemanticView                      = "VIEW"
	SemanticProjection                = "PROJECTION"
	SemanticModelView                 = "MODELVIEW"
	SemanticModelViewProjection       = "MODELVIEWPROJECTION"
	SemanticModelInverseTranspose     = "MODELINVERSETRANSPOSE"
	SemanticModelViewInverseTranspose = "MODELVIEWINVERSETRANSPOSE"
	SemanticJointMatrix               = "JOINTMATRIX"
	SemanticBindShapeMatrix           = "BINDSHAPEMATRIX"
)

// AccessorSource resolves accessor ids. *loader.AccessorResolver satisfies it.
type AccessorSource interface {
	Accessor(id string) (loader.AccessorBinding, error)
}

// PrimitiveRef identifies one primitive of a mesh drawn by a node.
type PrimitiveRef struct {
	Node      string
	Mesh      string
	Index     int
	Primitive loader.GLTFPrimitive
}

// Frame carries the matrices semantic uniforms are computed from.
type Frame struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// Skinning is the bone texture side channel of a skinned primitive.
type Skinning struct {
	Texture         renderer.TextureHandle
	Size            int
	BindShapeMatrix mgl32.Mat4
}

// Assembler builds DrawInfos. It reads the document tables and never
// touches the GPU, so two assemblies over unchanged state are identical.
type Assembler struct {
	doc       *loader.GLTFDocument
	accessors AccessorSource
	textures  map[string]renderer.TextureHandle
	log       *zap.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTextures supplies the texture handles sampler parameters resolve to, keyed by glTF texture id.
func WithTextures(textures map[string]renderer.TextureHandle) AssemblerOption {
	return func(a *Assembler) {
		a.textures = textures
	}
}

// WithLogger sets the assembler's logger.
func WithLogger(log *zap.Logger) AssemblerOption {
	return func(a *Assembler) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAssembler creates an assembler over a document and its accessors.
func NewAssembler(doc *loader.GLTFDocument, accessors AccessorSource, options ...AssemblerOption) *Assembler {
	a := &Assembler{
		doc:       doc,
		accessors: accessors,
		textures:  map[string]renderer.TextureHandle{},
		log:       logger.Named("technique"),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Assemble builds the draw request of one primitive.
//
// Attributes resolve program attribute → technique parameter → semantic →
// primitive accessor. Uniforms resolve, in order, from a live semantic
// value, the material's values, the parameter default, and for samplers the
// texture the value names. Unresolvable attributes and uniforms are logged
// and left out.
//
// Parameters:
//   - prim: the primitive to draw
//   - frame: model, view and projection matrices
//   - skin: the bone texture side channel, nil for unskinned primitives
//
// Returns:
//   - *renderer.DrawInfo: the draw request
//   - error: ErrUnknownMaterial, ErrUnknownTechnique, or an accessor error
func (a *Assembler) Assemble(prim PrimitiveRef, frame Frame, skin *Skinning) (*renderer.DrawInfo, error) {
	mat, ok := a.doc.Materials[prim.Primitive.Material]
	if !ok {
		return nil, fmt.Errorf("%s/%s[%d] material %q: %w", prim.Node, prim.Mesh, prim.Index, prim.Primitive.Material, ErrUnknownMaterial)
	}
	tech, ok := a.doc.Techniques[mat.Technique]
	if !ok {
		return nil, fmt.Errorf("material %q technique %q: %w", prim.Primitive.Material, mat.Technique, ErrUnknownTechnique)
	}

	skinned := skin != nil && skin.Texture != nil
	info := &renderer.DrawInfo{
		Technique: Select(skinned).String(),
		Program:   tech.Program,
		Node:      prim.Node,
		Topology:  renderer.TopologyTriangles,
		Model:     frame.Model,
	}
	if prim.Primitive.Mode != nil {
		info.Topology = renderer.Topology(*prim.Primitive.Mode)
	}
	if skinned {
		info.BoneTexture = skin.Texture
		info.BoneTextureSize = skin.Size
	}

	log := a.log.With(zap.String("node", prim.Node), zap.String("mesh", prim.Mesh), zap.Int("primitive", prim.Index))

	for _, name := range common.SortedKeys(tech.Attributes) {
		binding, ok, err := a.attribute(name, tech, prim.Primitive, log)
		if err != nil {
			return nil, err
		}
		if ok {
			info.Attributes = append(info.Attributes, binding)
		}
	}

	for _, name := range common.SortedKeys(tech.Uniforms) {
		if binding, ok := a.uniform(name, tech, mat, frame, skin, log); ok {
			info.Uniforms = append(info.Uniforms, binding)
		}
	}

	if prim.Primitive.Indices != "" {
		idx, err := a.accessors.Accessor(prim.Primitive.Indices)
		if err != nil {
			return nil, err
		}
		info.Elements = &renderer.ElementBinding{
			Buffer:        idx.Buffer,
			ByteOffset:    idx.ByteOffset,
			ComponentType: idx.ComponentType,
			Count:         idx.Count,
		}
		info.Count = idx.Count
	} else {
		info.Count = vertexCount(info.Attributes)
	}

	return info, nil
}

func (a *Assembler) attribute(name string, tech loader.GLTFTechnique, prim loader.GLTFPrimitive, log *zap.Logger) (renderer.AttributeBinding, bool, error) {
	paramName := tech.Attributes[name]
	param, ok := tech.Parameters[paramName]
	if !ok {
		log.Warn("attribute references unknown parameter", zap.String("attribute", name), zap.String("parameter", paramName))
		return renderer.AttributeBinding{}, false, nil
	}
	accessorID, ok := prim.Attributes[param.Semantic]
	if !ok {
		log.Warn("primitive lacks attribute semantic", zap.String("attribute", name), zap.String("semantic", param.Semantic))
		return renderer.AttributeBinding{}, false, nil
	}
	acc, err := a.accessors.Accessor(accessorID)
	if err != nil {
		return renderer.AttributeBinding{}, false, fmt.Errorf("attribute %q: %w", name, err)
	}
	return renderer.AttributeBinding{
		Name:          name,
		Semantic:      param.Semantic,
		Buffer:        acc.Buffer,
		ByteOffset:    acc.ByteOffset,
		ByteStride:    acc.ByteStride,
		ComponentType: acc.ComponentType,
		Arity:         acc.Arity,
		Count:         acc.Count,
	}, true, nil
}

func (a *Assembler) uniform(name string, tech loader.GLTFTechnique, mat loader.GLTFMaterial, frame Frame, skin *Skinning, log *zap.Logger) (renderer.UniformBinding, bool) {
	paramName := tech.Uniforms[name]
	param, ok := tech.Parameters[paramName]
	if !ok {
		log.Warn("uniform references unknown parameter", zap.String("uniform", name), zap.String("parameter", paramName))
		return renderer.UniformBinding{}, false
	}
	binding := renderer.UniformBinding{Name: name, Semantic: param.Semantic, Type: param.Type}

	if param.Semantic != "" && semanticValue(&binding, frame, skin) {
		return binding, true
	}

	var value *loader.GLTFValue
	if v, ok := mat.Values[paramName]; ok {
		value = &v
	} else if param.Value != nil {
		value = param.Value
	}
	if value == nil {
		log.Warn("uniform has no value", zap.String("uniform", name),
			zap.String("parameter", paramName), zap.String("semantic", param.Semantic))
		return renderer.UniformBinding{}, false
	}

	if param.Type == loader.GLTFParameterTypeSampler2D {
		tex, ok := a.textures[value.String]
		if !ok {
			log.Warn("sampler references unknown texture", zap.String("uniform", name), zap.String("texture", value.String))
			return renderer.UniformBinding{}, false
		}
		binding.Texture = tex
		return binding, true
	}

	binding.Value = append([]float32(nil), value.Numbers...)
	return binding, true
}

// semanticValue fills b from the frame or skin. It reports false when the
// semantic has no live value, such as JOINTMATRIX on an unskinned primitive.
func semanticValue(b *renderer.UniformBinding, frame Frame, skin *Skinning) bool {
	modelView := frame.View.Mul4(frame.Model)
	switch b.Semantic {
	case SemanticModel:
		b.Value = mat4Values(frame.Model)
	case SemanticView:
		b.Value = mat4Values(frame.View)
	case SemanticProjection:
		b.Value = mat4Values(frame.Projection)
	case SemanticModelView:
		b.Value = mat4Values(modelView)
	case SemanticModelViewProjection:
		b.Value = mat4Values(frame.Projection.Mul4(modelView))
	case SemanticModelInverseTranspose:
		b.Value = inverseTranspose(frame.Model)
	case SemanticModelViewInverseTranspose:
		b.Value = inverseTranspose(modelView)
	case SemanticJointMatrix:
		if skin == nil || skin.Texture == nil {
			return false
		}
		b.Texture = skin.Texture
	case SemanticBindShapeMatrix:
		if skin == nil {
			return false
		}
		b.Value = mat4Values(skin.BindShapeMatrix)
	default:
		return false
	}
	return true
}

func mat4Values(m mgl32.Mat4) []float32 {
	out := make([]float32, 16)
	copy(out, m[:])
	return out
}

// inverseTranspose returns the column-major 3×3 normal matrix of m.
func inverseTranspose(m mgl32.Mat4) []float32 {
	n := m.Mat3().Inv().Transpose()
	out := make([]float32, 9)
	copy(out, n[:])
	return out
}

// vertexCount takes the POSITION accessor's count, or the first attribute's.
func vertexCount(attrs []renderer.AttributeBinding) int {
	for _, a := range attrs {
		if a.Semantic == "POSITION" {
			return a.Count
		}
	}
	if len(attrs) > 0 {
		return attrs[0].Count
	}
	return 0
}
