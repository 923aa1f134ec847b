package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDocument = `{
  "asset": {"version": "1.0"},
  "scene": "defaultScene",
  "scenes": {"defaultScene": {"nodes": ["root"]}},
  "nodes": {
    "root": {"children": ["child"], "translation": [1, 2, 3]},
    "child": {"matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 4,5,6,1], "extras": {"animations": ["walk"]}}
  },
  "buffers": {"geometry": {"uri": "geometry.bin", "byteLength": 8}},
  "images": {"skin": {"uri": "data:image/png;base64,AAAA"}}
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(minimalDocument))
	require.NoError(t, err)

	roots, err := doc.DefaultSceneRoots()
	require.NoError(t, err)
	assert.Equal(t, []string{"root"}, roots)
	assert.Equal(t, []string{"walk"}, doc.Nodes["child"].AnimationIDs())
	assert.Nil(t, doc.Nodes["root"].AnimationIDs())
}

func TestParseDocumentRejectsVersion2(t *testing.T) {
	_, err := ParseDocument([]byte(`{"asset": {"version": "2.0"}}`))
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	_, err = ParseDocument([]byte(`{"asset": {}}`))
	assert.NoError(t, err, "missing version is treated as 1.0")

	_, err = ParseDocument([]byte(`{`))
	assert.Error(t, err)
}

func TestDefaultSceneFallsBackToFirstScene(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"scenes": {"b": {"nodes": ["y"]}, "a": {"nodes": ["x"]}}}`))
	require.NoError(t, err)

	roots, err := doc.DefaultSceneRoots()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, roots)

	_, err = (&GLTFDocument{}).DefaultSceneRoots()
	assert.ErrorIs(t, err, errMissingScene)
}

func TestNodeTransform(t *testing.T) {
	doc, err := ParseDocument([]byte(minimalDocument))
	require.NoError(t, err)

	root := doc.Nodes["root"].Transform()
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, root.Translation)
	assert.Equal(t, mgl32.QuatIdent(), root.Rotation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, root.Scale)

	child := doc.Nodes["child"].Transform()
	assert.True(t, child.Translation.ApproxEqual(mgl32.Vec3{4, 5, 6}))
	assert.True(t, child.Scale.ApproxEqual(mgl32.Vec3{1, 1, 1}))
}

func TestValueUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		numbers []float32
		str     string
	}{
		{"number", `0.5`, []float32{0.5}, ""},
		{"array", `[1, 0, 0, 1]`, []float32{1, 0, 0, 1}, ""},
		{"bool", `true`, []float32{1}, ""},
		{"texture", `"texture_file"`, nil, "texture_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v GLTFValue
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.numbers, v.Numbers)
			assert.Equal(t, tt.str, v.String)
			assert.Equal(t, tt.str != "", v.IsString())
		})
	}

	var v GLTFValue
	assert.Error(t, json.Unmarshal([]byte(`{"a": 1}`), &v))
}

func TestManifest(t *testing.T) {
	doc, err := ParseDocument([]byte(minimalDocument))
	require.NoError(t, err)

	manifest := doc.Manifest("/models/duck")
	require.Len(t, manifest, 2)

	assert.Equal(t, AssetDescriptor{
		Name:   "buffer:geometry",
		Kind:   AssetKindBinary,
		Source: filepath.Join("/models/duck", "geometry.bin"),
	}, manifest[0])
	assert.Equal(t, "image:skin", manifest[1].Name)
	assert.Equal(t, AssetKindImage, manifest[1].Kind)
	assert.Equal(t, "data:image/png;base64,AAAA", manifest[1].Source, "data URIs are not joined")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte(minimalDocument), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.gltf"))
	assert.Error(t, err)
}

func TestDecodeDataURI(t *testing.T) {
	data, err := decodeDataURI("data:application/octet-stream;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = decodeDataURI("data:text/plain,hello")
	assert.ErrorIs(t, err, errInvalidDataURI)

	_, err = decodeDataURI("data:nocomma")
	assert.ErrorIs(t, err, errInvalidDataURI)
}

func TestManifestIncludesOptionalShaders(t *testing.T) {
	doc := &GLTFDocument{
		Shaders: map[string]GLTFShader{
			"fs": {URI: "skin.frag", Type: 35632},
			"vs": {URI: "skin.vert", Type: 35633},
		},
	}
	manifest := doc.Manifest("/models")
	require.Len(t, manifest, 2)
	assert.Equal(t, "shader:fs", manifest[0].Name)
	assert.Equal(t, filepath.Join("/models", "skin.vert"), manifest[1].Source)
	assert.True(t, manifest[1].Optional)
	assert.Equal(t, AssetKindBinary, manifest[1].Kind)
}
