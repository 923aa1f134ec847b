package technique

import (
	"fmt"
	"sort"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccessors map[string]loader.AccessorBinding

func (f fakeAccessors) Accessor(id string) (loader.AccessorBinding, error) {
	if id == "pending" {
		return loader.AccessorBinding{}, loader.ErrNotReady
	}
	b, ok := f[id]
	if !ok {
		return loader.AccessorBinding{}, fmt.Errorf("%q: %w", id, loader.ErrUnknownAccessor)
	}
	return b, nil
}

func value(numbers ...float32) *loader.GLTFValue {
	return &loader.GLTFValue{Numbers: numbers}
}

func techniqueDocument() *loader.GLTFDocument {
	return &loader.GLTFDocument{
		Techniques: map[string]loader.GLTFTechnique{
			"tech": {
				Program: "program_0",
				Parameters: map[string]loader.GLTFTechniqueParameter{
					"position":     {Type: loader.GLTFParameterTypeFloatVec3, Semantic: "POSITION"},
					"normal":       {Type: loader.GLTFParameterTypeFloatVec3, Semantic: "NORMAL"},
					"joint":        {Type: loader.GLTFParameterTypeFloatVec4, Semantic: "JOINT"},
					"modelView":    {Type: loader.GLTFParameterTypeFloatMat4, Semantic: SemanticModelView},
					"projection":   {Type: loader.GLTFParameterTypeFloatMat4, Semantic: SemanticProjection},
					"normalMatrix": {Type: loader.GLTFParameterTypeFloatMat3, Semantic: SemanticModelViewInverseTranspose},
					"jointMat":     {Type: loader.GLTFParameterTypeFloatMat4, Semantic: SemanticJointMatrix, Count: 10},
					"bindShape":    {Type: loader.GLTFParameterTypeFloatMat4, Semantic: SemanticBindShapeMatrix},
					"diffuse":      {Type: loader.GLTFParameterTypeFloatVec4, Value: value(0.8, 0.8, 0.8, 1)},
					"shininess":    {Type: loader.GLTFParameterTypeFloat, Value: value(50)},
					"emission":     {Type: loader.GLTFParameterTypeFloatVec4},
					"tex":          {Type: loader.GLTFParameterTypeSampler2D},
				},
				Attributes: map[string]string{
					"a_position": "position",
					"a_normal":   "normal",
					"a_joint":    "joint",
				},
				Uniforms: map[string]string{
					"u_modelViewMatrix":  "modelView",
					"u_projectionMatrix": "projection",
					"u_normalMatrix":     "normalMatrix",
					"u_jointMat":         "jointMat",
					"u_bindShapeMatrix":  "bindShape",
					"u_diffuse":          "diffuse",
					"u_shininess":        "shininess",
					"u_emission":         "emission",
					"u_tex":              "tex",
				},
			},
		},
		Materials: map[string]loader.GLTFMaterial{
			"skinMat": {
				Technique: "tech",
				Values: map[string]loader.GLTFValue{
					"diffuse": {Numbers: []float32{1, 0, 0, 1}},
					"tex":     {String: "texture_0"},
				},
			},
			"broken": {Technique: "nope"},
		},
	}
}

func accessors() fakeAccessors {
	return fakeAccessors{
		"pos": {ID: "pos", BufferView: "vb", ByteOffset: 0, ByteStride: 12, ComponentType: loader.GLTFComponentTypeFloat, Arity: 3, Count: 24},
		"nrm": {ID: "nrm", BufferView: "vb", ByteOffset: 288, ByteStride: 12, ComponentType: loader.GLTFComponentTypeFloat, Arity: 3, Count: 24},
		"jnt": {ID: "jnt", BufferView: "vb", ByteOffset: 576, ComponentType: loader.GLTFComponentTypeFloat, Arity: 4, Count: 24},
		"idx": {ID: "idx", BufferView: "ib", ComponentType: loader.GLTFComponentTypeUnsignedShort, Arity: 1, Count: 36},
	}
}

func primitive(attrs map[string]string) PrimitiveRef {
	return PrimitiveRef{
		Node: "body",
		Mesh: "mesh_0",
		Primitive: loader.GLTFPrimitive{
			Attributes: attrs,
			Indices:    "idx",
			Material:   "skinMat",
		},
	}
}

func testTextures(t *testing.T) (renderer.Renderer, map[string]renderer.TextureHandle) {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording, renderer.WithBackend(renderer.NewRecordingBackend()))
	require.NoError(t, err)
	tex, err := r.AllocateTexture(renderer.TextureConfig{Label: "texture_0", Width: 1, Height: 1, Format: renderer.TextureFormatRGBA8})
	require.NoError(t, err)
	return r, map[string]renderer.TextureHandle{"texture_0": tex}
}

func testFrame() Frame {
	return Frame{
		Model:      mgl32.Scale3D(2, 2, 2),
		View:       mgl32.Translate3D(0, 0, -5),
		Projection: mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100),
	}
}

func TestAssembleUnskinned(t *testing.T) {
	_, textures := testTextures(t)
	a := NewAssembler(techniqueDocument(), accessors(), WithTextures(textures))

	info, err := a.Assemble(primitive(map[string]string{"POSITION": "pos", "NORMAL": "nrm"}), testFrame(), nil)
	require.NoError(t, err)

	assert.Equal(t, Diffuse.String(), info.Technique)
	assert.Equal(t, "program_0", info.Program)
	assert.Equal(t, "body", info.Node)
	assert.Equal(t, renderer.TopologyTriangles, info.Topology)
	assert.False(t, info.Skinned())
	assert.Equal(t, testFrame().Model, info.Model)

	require.Len(t, info.Attributes, 2, "a_joint has no JOINT accessor and is skipped")
	assert.Equal(t, "a_normal", info.Attributes[0].Name)
	assert.Equal(t, "a_position", info.Attributes[1].Name)
	assert.Equal(t, 12, info.Attributes[1].ByteStride)

	require.NotNil(t, info.Elements)
	assert.Equal(t, 36, info.Elements.Count)
	assert.Equal(t, 36, info.Count)

	_, ok := info.Uniform("u_jointMat")
	assert.False(t, ok, "no bone texture, no default")
	_, ok = info.Uniform("u_emission")
	assert.False(t, ok, "no material value and no default")

	diffuse, ok := info.Uniform("u_diffuse")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0, 0, 1}, diffuse.Value, "material value overrides the default")

	shininess, _ := info.Uniform("u_shininess")
	assert.Equal(t, []float32{50}, shininess.Value, "technique default applies")

	tex, ok := info.Uniform("u_tex")
	require.True(t, ok)
	assert.Equal(t, textures["texture_0"], tex.Texture)

	mv, _ := info.Uniform("u_modelViewMatrix")
	want := testFrame().View.Mul4(testFrame().Model)
	assert.Equal(t, want[:], mv.Value)

	normal, _ := info.Uniform("u_normalMatrix")
	require.Len(t, normal.Value, 9)
	assert.InDelta(t, 0.5, normal.Value[0], 1e-6)
	assert.InDelta(t, 0.5, normal.Value[4], 1e-6)

	names := make([]string, len(info.Uniforms))
	for i, u := range info.Uniforms {
		names[i] = u.Name
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestAssembleSkinned(t *testing.T) {
	r, textures := testTextures(t)
	bones, err := r.AllocateTexture(renderer.TextureConfig{Width: 8, Height: 8, Format: renderer.TextureFormatRGBA32Float})
	require.NoError(t, err)

	a := NewAssembler(techniqueDocument(), accessors(), WithTextures(textures))
	skin := &Skinning{Texture: bones, Size: 8, BindShapeMatrix: mgl32.Translate3D(1, 0, 0)}

	info, err := a.Assemble(primitive(map[string]string{"POSITION": "pos", "NORMAL": "nrm", "JOINT": "jnt"}), testFrame(), skin)
	require.NoError(t, err)

	assert.Equal(t, DiffuseSkinned.String(), info.Technique)
	assert.True(t, info.Skinned())
	assert.Equal(t, 8, info.BoneTextureSize)
	assert.Len(t, info.Attributes, 3)

	jointMat, ok := info.Uniform("u_jointMat")
	require.True(t, ok)
	assert.Equal(t, bones, jointMat.Texture)

	bindShape, ok := info.Uniform("u_bindShapeMatrix")
	require.True(t, ok)
	assert.Equal(t, float32(1), bindShape.Value[12])
}

func TestAssembleIsIdempotent(t *testing.T) {
	_, textures := testTextures(t)
	a := NewAssembler(techniqueDocument(), accessors(), WithTextures(textures))
	prim := primitive(map[string]string{"POSITION": "pos", "NORMAL": "nrm"})

	first, err := a.Assemble(prim, testFrame(), nil)
	require.NoError(t, err)
	second, err := a.Assemble(prim, testFrame(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssembleWithoutIndices(t *testing.T) {
	a := NewAssembler(techniqueDocument(), accessors())
	lines := 1
	prim := primitive(map[string]string{"POSITION": "pos"})
	prim.Primitive.Indices = ""
	prim.Primitive.Mode = &lines

	info, err := a.Assemble(prim, testFrame(), nil)
	require.NoError(t, err)
	assert.Nil(t, info.Elements)
	assert.Equal(t, 24, info.Count)
	assert.Equal(t, renderer.TopologyLines, info.Topology)

	_, ok := info.Uniform("u_tex")
	assert.False(t, ok, "texture id not supplied to the assembler")
}

func TestAssembleErrors(t *testing.T) {
	a := NewAssembler(techniqueDocument(), accessors())

	prim := primitive(map[string]string{"POSITION": "pos"})
	prim.Primitive.Material = "ghost"
	_, err := a.Assemble(prim, testFrame(), nil)
	assert.ErrorIs(t, err, ErrUnknownMaterial)

	prim.Primitive.Material = "broken"
	_, err = a.Assemble(prim, testFrame(), nil)
	assert.ErrorIs(t, err, ErrUnknownTechnique)

	_, err = a.Assemble(primitive(map[string]string{"POSITION": "pending"}), testFrame(), nil)
	assert.ErrorIs(t, err, loader.ErrNotReady)
}

func TestSelect(t *testing.T) {
	assert.Equal(t, DiffuseSkinned, Select(true))
	assert.Equal(t, Diffuse, Select(false))
	assert.Equal(t, "diffuse_skinned", DiffuseSkinned.String())
}
