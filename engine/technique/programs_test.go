package technique

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const programVertex = `
attribute vec3 a_position;
attribute vec3 a_normal;
attribute vec4 a_joint;
uniform mat4 u_modelViewMatrix;
uniform mat4 u_projectionMatrix;
uniform mat3 u_normalMatrix;
uniform mat4 u_jointMat[10];
uniform mat4 u_bindShapeMatrix;
void main() {}
`

const programFragment = `
precision mediump float;
uniform vec4 u_diffuse;
uniform float u_shininess;
uniform vec4 u_emission;
uniform sampler2D u_tex;
void main() {}
`

func programDocument() *loader.GLTFDocument {
	doc := techniqueDocument()
	doc.Programs = map[string]loader.GLTFProgram{
		"program_0": {
			Attributes:     []string{"a_position", "a_normal", "a_joint"},
			VertexShader:   "vs",
			FragmentShader: "fs",
		},
	}
	doc.Shaders = map[string]loader.GLTFShader{
		"vs": {URI: "skin.vert", Type: int(shader.ShaderTypeVertex)},
		"fs": {URI: "skin.frag", Type: int(shader.ShaderTypeFragment)},
	}
	return doc
}

func TestCheckProgramsMatching(t *testing.T) {
	doc := programDocument()
	sources := map[string][]byte{"vs": []byte(programVertex), "fs": []byte(programFragment)}
	assert.NoError(t, CheckPrograms(doc, sources, nil))

	programs := Programs(doc, sources)
	require.Contains(t, programs, "program_0")
	d, ok := programs["program_0"].Uniform("u_jointMat")
	require.True(t, ok)
	assert.Equal(t, 10, d.Count)
}

func TestCheckProgramsReportsMismatches(t *testing.T) {
	doc := programDocument()
	tech := doc.Techniques["tech"]
	tech.Uniforms["u_extra"] = "diffuse"
	tech.Parameters["shininess"] = loader.GLTFTechniqueParameter{Type: loader.GLTFParameterTypeFloatVec4}
	doc.Techniques["tech"] = tech
	doc.Techniques["orphan"] = loader.GLTFTechnique{Program: "nope"}

	core, logs := observer.New(zap.WarnLevel)
	err := CheckPrograms(doc, map[string][]byte{"vs": []byte(programVertex), "fs": []byte(programFragment)}, zap.New(core))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProgram)
	assert.ErrorIs(t, err, shader.ErrUndeclared)
	assert.ErrorIs(t, err, shader.ErrTypeMismatch)
	assert.Equal(t, 2, logs.Len())
}

func TestCheckProgramsWithoutSources(t *testing.T) {
	// Only the program's attribute list can be checked.
	assert.NoError(t, CheckPrograms(programDocument(), nil, nil))

	doc := programDocument()
	p := doc.Programs["program_0"]
	p.Attributes = []string{"a_position"}
	doc.Programs["program_0"] = p
	assert.ErrorIs(t, CheckPrograms(doc, nil, zap.NewNop()), shader.ErrUndeclared)
}
