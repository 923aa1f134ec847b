package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDrawUniforms(t *testing.T) {
	info := &DrawInfo{Model: mgl32.Translate3D(1, 2, 3), BoneTextureSize: 8}
	out := encodeDrawUniforms(info)
	require.Len(t, out, drawUniformSize)

	read := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:])) }
	assert.Equal(t, float32(1), read(0))
	assert.Equal(t, float32(1), read(12), "column-major translation")
	assert.Equal(t, float32(2), read(13))
	assert.Equal(t, float32(3), read(14))
	assert.Equal(t, float32(8), read(16))
	assert.Equal(t, float32(0), read(19))
}

func TestBindingKey(t *testing.T) {
	r, _ := newRecordingRenderer(t)
	vb, err := r.AllocateVertexBuffer(16)
	require.NoError(t, err)
	ib, err := r.AllocateIndexBuffer(6)
	require.NoError(t, err)

	plain := &DrawInfo{Node: "body", Program: "p", Attributes: []AttributeBinding{{Buffer: vb}}}
	indexed := &DrawInfo{Node: "body", Program: "p", Attributes: []AttributeBinding{{Buffer: vb}}, Elements: &ElementBinding{Buffer: ib}}
	shifted := &DrawInfo{Node: "body", Program: "p", Attributes: []AttributeBinding{{Buffer: vb}}, Offset: 3}

	assert.Equal(t, bindingKey(plain), bindingKey(&DrawInfo{Node: "body", Program: "p", Attributes: []AttributeBinding{{Buffer: vb}}}), "stable across frames")
	assert.NotEqual(t, bindingKey(plain), bindingKey(indexed))
	assert.NotEqual(t, bindingKey(plain), bindingKey(shifted))
	assert.Equal(t, "x//0/0", bindingKey(&DrawInfo{Node: "x"}))
}
