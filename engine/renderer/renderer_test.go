package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordingRenderer(t *testing.T) (Renderer, *RecordingBackend) {
	t.Helper()
	rec := NewRecordingBackend()
	r, err := NewRenderer(BackendTypeRecording, WithBackend(rec))
	require.NoError(t, err)
	return r, rec
}

func TestAllocateTextureZeroFilled(t *testing.T) {
	r, rec := newRecordingRenderer(t)

	tex, err := r.AllocateTexture(TextureConfig{Label: "bones", Width: 8, Height: 8, Format: TextureFormatRGBA32Float})
	require.NoError(t, err)

	data, ok := rec.TextureData(tex.ID())
	require.True(t, ok)
	assert.Len(t, data, 8*8*16)
	for _, b := range data {
		require.Zero(t, b)
	}
}

func TestAllocateTextureRejectsEmpty(t *testing.T) {
	r, _ := newRecordingRenderer(t)

	_, err := r.AllocateTexture(TextureConfig{Width: 0, Height: 8})
	assert.ErrorIs(t, err, ErrInvalidTextureSize)
}

func TestTextureUpdateSizeCheck(t *testing.T) {
	r, rec := newRecordingRenderer(t)

	tex, err := r.AllocateTexture(TextureConfig{Width: 2, Height: 2, Format: TextureFormatRGBA8})
	require.NoError(t, err)

	assert.ErrorIs(t, tex.Update(make([]byte, 15)), ErrPixelSizeMismatch)

	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, tex.Update(pixels))

	data, _ := rec.TextureData(tex.ID())
	assert.Equal(t, pixels, data)
	assert.Equal(t, 1, rec.TextureUploads(tex.ID()))
}

func TestBufferAllocationAndWrite(t *testing.T) {
	r, rec := newRecordingRenderer(t)

	vb, err := r.AllocateVertexBuffer(8)
	require.NoError(t, err)
	ib, err := r.AllocateIndexBuffer(6)
	require.NoError(t, err)

	assert.Equal(t, BufferKindVertex, vb.Kind())
	assert.Equal(t, BufferKindIndex, ib.Kind())
	assert.NotEqual(t, vb.ID(), ib.ID())

	require.NoError(t, vb.Write(4, []byte{9, 9, 9, 9}))
	assert.ErrorIs(t, vb.Write(6, []byte{1, 2, 3}), ErrBufferOverflow)

	data, _ := rec.BufferData(vb.ID())
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9, 9, 9}, data)

	_, err = r.AllocateVertexBuffer(0)
	assert.ErrorIs(t, err, ErrInvalidBufferSize)
	assert.Equal(t, 2, rec.BufferCount())
}

func TestFrameLifecycle(t *testing.T) {
	r, rec := newRecordingRenderer(t)
	bones, err := r.AllocateTexture(TextureConfig{Width: 8, Height: 8, Format: TextureFormatRGBA32Float})
	require.NoError(t, err)

	assert.Error(t, r.SubmitDraw(&DrawInfo{Node: "early"}), "draw outside a frame")

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.SubmitDraw(&DrawInfo{Node: "a", Technique: "diffuse"}))
	require.NoError(t, r.SubmitDraw(&DrawInfo{Node: "b", Technique: "diffuse_skinned", BoneTexture: bones, BoneTextureSize: 8}))
	require.NoError(t, r.EndFrame())
	r.Present()

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 2, stats.Draws)
	assert.Equal(t, 1, stats.Skinned)

	frames := rec.Frames()
	require.Len(t, frames, 1)
	require.Len(t, frames[0], 2)
	assert.Equal(t, "a", frames[0][0].Node)
	assert.True(t, frames[0][1].Skinned())
	assert.Equal(t, 1, rec.Presented())

	assert.Error(t, r.EndFrame(), "second EndFrame without BeginFrame")
}

func TestDrawInfoLookups(t *testing.T) {
	d := &DrawInfo{
		Attributes: []AttributeBinding{{Name: "a_position", Semantic: "POSITION"}},
		Uniforms:   []UniformBinding{{Name: "u_diffuse", Value: []float32{1, 0, 0, 1}}},
	}

	a, ok := d.Attribute("a_position")
	assert.True(t, ok)
	assert.Equal(t, "POSITION", a.Semantic)

	_, ok = d.Attribute("a_normal")
	assert.False(t, ok)

	u, ok := d.Uniform("u_diffuse")
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 0, 0, 1}, u.Value)
	assert.False(t, d.Skinned())
}
