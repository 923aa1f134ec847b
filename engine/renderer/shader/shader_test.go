package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const skinnedVertex = `
precision highp float;
attribute vec3 a_position;
attribute vec4 a_joint, a_weight;
uniform mat4 u_modelViewMatrix; // model-view
/* uniform mat4 u_unused; */
uniform highp mat4 u_projectionMatrix;
uniform sampler2D u_boneTexture;
uniform float u_boneTextureSize;
varying vec3 v_normal;
vec4 bone(in float i) {
	return vec4(i);
}
void main() {
	gl_Position = u_projectionMatrix * u_modelViewMatrix * vec4(a_position, 1.0);
}
`

const diffuseFragment = `#version 300 es
precision mediump float;
in vec3 v_normal;
uniform vec4 u_diffuse;
uniform vec3 u_lights[4];
out vec4 fragColor;
void main() { fragColor = u_diffuse; }
`

func TestParseVertexDeclarations(t *testing.T) {
	s := NewShader("vs", ShaderTypeVertex, skinnedVertex)
	assert.Equal(t, "vertex", s.Type().String())

	assert.Equal(t, []string{"a_joint", "a_position", "a_weight"}, Names(s, QualifierAttribute))
	assert.Equal(t, []string{"u_boneTexture", "u_boneTextureSize", "u_modelViewMatrix", "u_projectionMatrix"}, Names(s, QualifierUniform))
	assert.Equal(t, []string{"v_normal"}, Names(s, QualifierVarying))

	d, ok := s.Lookup(QualifierUniform, "u_boneTexture")
	require.True(t, ok)
	assert.Equal(t, 35678, d.Type)

	d, ok = s.Lookup(QualifierAttribute, "a_weight")
	require.True(t, ok)
	assert.Equal(t, Declaration{Qualifier: QualifierAttribute, Name: "a_weight", TypeName: "vec4", Type: 35666, Count: 1}, d)

	_, ok = s.Lookup(QualifierUniform, "u_unused")
	assert.False(t, ok, "commented out")
}

func TestParseFragmentDeclarations(t *testing.T) {
	s := NewShader("fs", ShaderTypeFragment, diffuseFragment)

	assert.Equal(t, []string{"v_normal"}, Names(s, QualifierVarying), "in is a varying in a fragment shader")
	assert.Empty(t, Names(s, QualifierAttribute))

	d, ok := s.Lookup(QualifierUniform, "u_lights")
	require.True(t, ok)
	assert.Equal(t, 4, d.Count)
	assert.Equal(t, 35665, d.Type)
}

func TestProgramCheck(t *testing.T) {
	vs := NewShader("vs", ShaderTypeVertex, skinnedVertex)
	fs := NewShader("fs", ShaderTypeFragment, diffuseFragment)
	p := NewProgram("skinning", vs, fs, []string{"a_position", "a_joint", "a_weight"})

	err := p.Check(
		map[string]int{"a_position": 35665, "a_joint": 35666},
		map[string]int{"u_modelViewMatrix": 35676, "u_boneTexture": 35678, "u_diffuse": 35666},
	)
	assert.NoError(t, err)

	err = p.Check(
		map[string]int{"a_normal": 35665, "a_position": 35666},
		map[string]int{"u_missing": 35676},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndeclared)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), `attribute "a_normal"`)
	assert.Contains(t, err.Error(), `uniform "u_missing"`)
}

func TestProgramCheckWithoutSources(t *testing.T) {
	p := NewProgram("p", nil, nil, []string{"a_position"})
	assert.NoError(t, p.Check(map[string]int{"a_position": 35665}, map[string]int{"u_anything": 35676}))
	assert.ErrorIs(t, p.Check(map[string]int{"a_texcoord": 35664}, nil), ErrUndeclared)

	// With one stage missing a uniform may live in the other.
	vs := NewShader("vs", ShaderTypeVertex, skinnedVertex)
	p = NewProgram("p", vs, nil, nil)
	assert.NoError(t, p.Check(nil, map[string]int{"u_diffuse": 35666}))
	assert.ErrorIs(t, p.Check(nil, map[string]int{"u_boneTexture": 35676}), ErrTypeMismatch)
}
