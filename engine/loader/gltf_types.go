// gltf_types.go contains glTF 1.0 data structures for JSON deserialization.
// Every top-level table in glTF 1.0 is a JSON object keyed by string id, and
// cross references between tables are those ids.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/specification/1.0
package loader

import (
	"encoding/json"
	"fmt"
)

// Component type enums (WebGL).
const (
	GLTFComponentTypeByte          = 5120
	GLTFComponentTypeUnsignedByte  = 5121
	GLTFComponentTypeShort         = 5122
	GLTFComponentTypeUnsignedShort = 5123
	GLTFComponentTypeUnsignedInt   = 5125
	GLTFComponentTypeFloat         = 5126
)

// Accessor element types.
const (
	GLTFAccessorTypeScalar = "SCALAR"
	GLTFAccessorTypeVec2   = "VEC2"
	GLTFAccessorTypeVec3   = "VEC3"
	GLTFAccessorTypeVec4   = "VEC4"
	GLTFAccessorTypeMat2   = "MAT2"
	GLTFAccessorTypeMat3   = "MAT3"
	GLTFAccessorTypeMat4   = "MAT4"
)

// Buffer view targets.
const (
	GLTFTargetArrayBuffer        = 34962
	GLTFTargetElementArrayBuffer = 34963
)

// Technique parameter types used by the draw assembler.
const (
	GLTFParameterTypeFloat     = 5126
	GLTFParameterTypeFloatVec2 = 35664
	GLTFParameterTypeFloatVec3 = 35665
	GLTFParameterTypeFloatVec4 = 35666
	GLTFParameterTypeFloatMat3 = 35675
	GLTFParameterTypeFloatMat4 = 35676
	GLTFParameterTypeSampler2D = 35678
)

// Animation channel target paths.
const (
	GLTFAnimationPathTranslation = "translation"
	GLTFAnimationPathRotation    = "rotation"
	GLTFAnimationPathScale       = "scale"
)

// GLTFDocument is the root of a glTF 1.0 JSON document.
type GLTFDocument struct {
	Asset GLTFAsset `json:"asset"`

	// Scene is the id of the default scene.
	Scene string `json:"scene,omitempty"`

	Scenes      map[string]GLTFScene      `json:"scenes,omitempty"`
	Nodes       map[string]GLTFNode       `json:"nodes,omitempty"`
	Meshes      map[string]GLTFMesh       `json:"meshes,omitempty"`
	Materials   map[string]GLTFMaterial   `json:"materials,omitempty"`
	Techniques  map[string]GLTFTechnique  `json:"techniques,omitempty"`
	Programs    map[string]GLTFProgram    `json:"programs,omitempty"`
	Shaders     map[string]GLTFShader     `json:"shaders,omitempty"`
	Accessors   map[string]GLTFAccessor   `json:"accessors,omitempty"`
	BufferViews map[string]GLTFBufferView `json:"bufferViews,omitempty"`
	Buffers     map[string]GLTFBuffer     `json:"buffers,omitempty"`
	Skins       map[string]GLTFSkin       `json:"skins,omitempty"`
	Animations  map[string]GLTFAnimation  `json:"animations,omitempty"`
	Textures    map[string]GLTFTexture    `json:"textures,omitempty"`
	Images      map[string]GLTFImage      `json:"images,omitempty"`
	Samplers    map[string]GLTFSampler    `json:"samplers,omitempty"`
}

// GLTFAsset contains metadata about the glTF asset.
type GLTFAsset struct {
	Version            string `json:"version"`
	Generator          string `json:"generator,omitempty"`
	Copyright          string `json:"copyright,omitempty"`
	PremultipliedAlpha bool   `json:"premultipliedAlpha,omitempty"`
}

// GLTFScene lists the root node ids of a scene.
type GLTFScene struct {
	Name  string   `json:"name,omitempty"`
	Nodes []string `json:"nodes,omitempty"`
}

// GLTFNode is one entry of the node table. A node carrying JointName is a
// skeleton joint; a node carrying Skin and Skeletons is a skinned instance.
type GLTFNode struct {
	Name     string   `json:"name,omitempty"`
	Children []string `json:"children,omitempty"`

	// Matrix is a column-major local transform, used when no TRS is given.
	Matrix []float32 `json:"matrix,omitempty"`

	Translation []float32 `json:"translation,omitempty"`
	Rotation    []float32 `json:"rotation,omitempty"` // [x, y, z, w]
	Scale       []float32 `json:"scale,omitempty"`

	Meshes    []string `json:"meshes,omitempty"`
	Skin      string   `json:"skin,omitempty"`
	Skeletons []string `json:"skeletons,omitempty"`
	JointName string   `json:"jointName,omitempty"`
	Camera    string   `json:"camera,omitempty"`

	Extras map[string]json.RawMessage `json:"extras,omitempty"`
}

// AnimationIDs returns the clip ids listed under extras.animations, marking
// the node as the animation root of those clips.
func (n GLTFNode) AnimationIDs() []string {
	raw, ok := n.Extras["animations"]
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		var single string
		if json.Unmarshal(raw, &single) == nil && single != "" {
			return []string{single}
		}
		return nil
	}
	return ids
}

// GLTFMesh is a set of primitives drawn together.
type GLTFMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []GLTFPrimitive `json:"primitives"`
}

// GLTFPrimitive maps attribute semantics to accessor ids.
type GLTFPrimitive struct {
	Attributes map[string]string `json:"attributes"`
	Indices    string            `json:"indices,omitempty"`
	Material   string            `json:"material"`

	// Mode is the topology; nil means TRIANGLES.
	Mode *int `json:"mode,omitempty"`
}

// GLTFMaterial instantiates a technique with parameter overrides.
type GLTFMaterial struct {
	Name      string               `json:"name,omitempty"`
	Technique string               `json:"technique,omitempty"`
	Values    map[string]GLTFValue `json:"values,omitempty"`
}

// GLTFTechnique binds program attributes and uniforms to parameters.
type GLTFTechnique struct {
	Name       string                            `json:"name,omitempty"`
	Parameters map[string]GLTFTechniqueParameter `json:"parameters,omitempty"`

	// Attributes maps program attribute names to parameter names.
	Attributes map[string]string `json:"attributes,omitempty"`

	Program string `json:"program"`

	// Uniforms maps program uniform names to parameter names.
	Uniforms map[string]string `json:"uniforms,omitempty"`

	States json.RawMessage `json:"states,omitempty"`
}

// GLTFTechniqueParameter declares one technique input.
type GLTFTechniqueParameter struct {
	Count    int        `json:"count,omitempty"`
	Node     string     `json:"node,omitempty"`
	Type     int        `json:"type"`
	Semantic string     `json:"semantic,omitempty"`
	Value    *GLTFValue `json:"value,omitempty"`
}

// GLTFProgram names the shaders and attributes of a GPU program.
type GLTFProgram struct {
	Name           string   `json:"name,omitempty"`
	Attributes     []string `json:"attributes,omitempty"`
	VertexShader   string   `json:"vertexShader"`
	FragmentShader string   `json:"fragmentShader"`
}

// GLTFShader references GLSL source.
type GLTFShader struct {
	Name string `json:"name,omitempty"`
	URI  string `json:"uri"`
	Type int    `json:"type"`
}

// GLTFAccessor describes a typed view into a buffer view.
type GLTFAccessor struct {
	BufferView    string    `json:"bufferView"`
	ByteOffset    int       `json:"byteOffset"`
	ByteStride    int       `json:"byteStride,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float32 `json:"max,omitempty"`
	Min           []float32 `json:"min,omitempty"`
}

// GLTFBufferView is a byte range of a buffer, optionally destined for the GPU.
type GLTFBufferView struct {
	Buffer     string `json:"buffer"`
	ByteOffset int    `json:"byteOffset"`
	ByteLength int    `json:"byteLength,omitempty"`

	// Target is GLTFTargetArrayBuffer, GLTFTargetElementArrayBuffer or 0.
	Target int `json:"target,omitempty"`
}

// GLTFBuffer points to binary data by URI.
type GLTFBuffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength,omitempty"`
	Type       string `json:"type,omitempty"`
}

// GLTFSkin binds a mesh to joints by joint name.
type GLTFSkin struct {
	Name                string    `json:"name,omitempty"`
	BindShapeMatrix     []float32 `json:"bindShapeMatrix,omitempty"`
	InverseBindMatrices string    `json:"inverseBindMatrices"`
	JointNames          []string  `json:"jointNames"`
}

// GLTFAnimation is a set of channels whose samplers reference accessors
// indirectly through the parameters table.
type GLTFAnimation struct {
	Name       string                         `json:"name,omitempty"`
	Channels   []GLTFAnimationChannel         `json:"channels,omitempty"`
	Parameters map[string]string              `json:"parameters,omitempty"`
	Samplers   map[string]GLTFAnimationSample `json:"samplers,omitempty"`
}

// GLTFAnimationChannel connects a sampler to a node property.
type GLTFAnimationChannel struct {
	Sampler string                     `json:"sampler"`
	Target  GLTFAnimationChannelTarget `json:"target"`
}

// GLTFAnimationChannelTarget is the node id and TRS path a channel drives.
type GLTFAnimationChannelTarget struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// GLTFAnimationSample names the input (time) and output parameters of a sampler.
type GLTFAnimationSample struct {
	Input         string `json:"input"`
	Interpolation string `json:"interpolation,omitempty"`
	Output        string `json:"output"`
}

// GLTFTexture references an image and a sampler.
type GLTFTexture struct {
	Name           string `json:"name,omitempty"`
	Sampler        string `json:"sampler,omitempty"`
	Source         string `json:"source"`
	Format         int    `json:"format,omitempty"`
	InternalFormat int    `json:"internalFormat,omitempty"`
	Target         int    `json:"target,omitempty"`
	Type           int    `json:"type,omitempty"`
}

// GLTFImage references image data by URI.
type GLTFImage struct {
	Name string `json:"name,omitempty"`
	URI  string `json:"uri"`
}

// GLTFSampler holds texture filtering and wrapping modes.
type GLTFSampler struct {
	MagFilter int `json:"magFilter,omitempty"`
	MinFilter int `json:"minFilter,omitempty"`
	WrapS     int `json:"wrapS,omitempty"`
	WrapT     int `json:"wrapT,omitempty"`
}

// GLTFValue is a material or technique parameter value. glTF 1.0 allows a
// number, a boolean, an array of numbers, or a string naming a texture.
type GLTFValue struct {
	Numbers []float32
	String  string
}

// IsString reports whether the value names a texture (or other id).
func (v GLTFValue) IsString() bool {
	return v.String != ""
}

func (v *GLTFValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.String = s
		return nil
	}
	var f float32
	if err := json.Unmarshal(data, &f); err == nil {
		v.Numbers = []float32{f}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			v.Numbers = []float32{1}
		} else {
			v.Numbers = []float32{0}
		}
		return nil
	}
	var arr []float32
	if err := json.Unmarshal(data, &arr); err == nil {
		v.Numbers = arr
		return nil
	}
	var strs []string
	if err := json.Unmarshal(data, &strs); err == nil && len(strs) > 0 {
		v.String = strs[0]
		return nil
	}
	return fmt.Errorf("unsupported parameter value %s", string(data))
}

func (v GLTFValue) MarshalJSON() ([]byte, error) {
	if v.String != "" {
		return json.Marshal(v.String)
	}
	if len(v.Numbers) == 1 {
		return json.Marshal(v.Numbers[0])
	}
	return json.Marshal(v.Numbers)
}
