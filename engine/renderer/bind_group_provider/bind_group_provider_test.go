package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestProviderBookkeeping(t *testing.T) {
	p := NewBindGroupProvider("body/skinProgram/3/0")
	assert.Equal(t, "body/skinProgram/3/0", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
	assert.Nil(t, p.Buffer(0))

	view := &wgpu.TextureView{}
	p.SetTextureView(1, view)
	assert.Same(t, view, p.TextureView(1))
	assert.False(t, p.Bound(1, view), "no bind group yet")

	p.SetTextureView(1, nil)
	assert.Nil(t, p.TextureView(1))

	p.SetTextureView(1, view)
	p.Release()
	assert.Nil(t, p.TextureView(1), "borrowed views are forgotten, not released")
}
