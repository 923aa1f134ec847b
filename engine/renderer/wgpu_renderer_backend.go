package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

var errSurfaceUnconfigured = errors.New("surface not configured")

// wgpuRendererBackend uploads bone textures and vertex/index data to a real
// WebGPU device and keeps one bind group per draw holding its uniform block
// and bone texture. With a surface it clears and presents one render pass per
// frame; without one it runs headless and only submits uploads.
type wgpuRendererBackend struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	clearColor    wgpu.Color

	nextID   uint32
	textures []*wgpuTexture
	buffers  []*wgpuBuffer

	// Draw bindings, keyed by bindingKey. Layouts are shared per draw kind.
	bindings      map[string]bind_group_provider.BindGroupProvider
	drawLayout    *wgpu.BindGroupLayout
	skinnedLayout *wgpu.BindGroupLayout

	// Frame state for the per-frame render pass
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameDraws   int
}

var _ RendererBackend = &wgpuRendererBackend{}

// newWGPURendererBackend requests an adapter and device. A nil surface
// descriptor yields a headless backend.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, clear [4]float64) (*wgpuRendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		clearColor:  wgpu.Color{R: clear[0], G: clear[1], B: clear[2], A: clear[3]},
		bindings:    make(map[string]bind_group_provider.BindGroupProvider),
	}
	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return b, nil
}

func (b *wgpuRendererBackend) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackend) AllocateTexture(cfg TextureConfig) (TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	format := wgpu.TextureFormatRGBA8Unorm
	if cfg.Format == TextureFormatRGBA32Float {
		format = wgpu.TextureFormatRGBA32Float
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     cfg.Label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(cfg.Width),
			Height:             uint32(cfg.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	b.nextID++
	t := &wgpuTexture{
		id:      b.nextID,
		cfg:     cfg,
		texture: tex,
		view:    view,
		backend: b,
	}
	b.textures = append(b.textures, t)
	return t, nil
}

func (b *wgpuRendererBackend) AllocateBuffer(kind BufferKind, label string, byteLength int) (BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if kind == BufferKindIndex {
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}

	// queue writes must be 4-byte aligned, so the allocation is padded
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(alignCopy(byteLength)),
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}

	b.nextID++
	h := &wgpuBuffer{
		id:      b.nextID,
		kind:    kind,
		size:    byteLength,
		buffer:  buf,
		backend: b,
	}
	b.buffers = append(b.buffers, h)
	return h, nil
}

func (b *wgpuRendererBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("previous frame not yet ended")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	b.frameDraws = 0

	if b.surface == nil {
		return nil
	}
	if b.surfaceFormat == nil {
		encoder.Release()
		b.frameEncoder = nil
		return errSurfaceUnconfigured
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		encoder.Release()
		b.frameEncoder = nil
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		encoder.Release()
		b.frameEncoder = nil
		return err
	}

	b.framePass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
	})
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

// Draw refreshes the draw's bindings and counts it against the open frame.
// Technique programs are GLSL sources, so no pipeline is bound here.
func (b *wgpuRendererBackend) Draw(info *DrawInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errNoOpenFrame
	}
	provider, err := b.drawBinding(info)
	if err != nil {
		return fmt.Errorf("binding draw of node %q: %w", info.Node, err)
	}
	b.queue.WriteBuffer(provider.Buffer(drawUniformBinding), 0, encodeDrawUniforms(info))
	b.frameDraws++
	return nil
}

// drawBinding returns the bindings of a draw, creating the uniform buffer on
// first use and rebuilding the bind group when the bone texture changed.
// Must be called with b.mu held.
func (b *wgpuRendererBackend) drawBinding(info *DrawInfo) (bind_group_provider.BindGroupProvider, error) {
	var view *wgpu.TextureView
	if info.Skinned() {
		tex, ok := info.BoneTexture.(*wgpuTexture)
		if !ok {
			return nil, fmt.Errorf("bone texture %d was not allocated by this backend", info.BoneTexture.ID())
		}
		view = tex.view
	}

	key := bindingKey(info)
	provider, ok := b.bindings[key]
	if ok && provider.Bound(boneTextureBinding, view) {
		return provider, nil
	}

	if !ok {
		layout, err := b.bindingLayout(view != nil)
		if err != nil {
			return nil, err
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: key + " Uniforms",
			Size:  drawUniformSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		provider = bind_group_provider.NewBindGroupProvider(key,
			bind_group_provider.WithBindGroupLayout(layout),
			bind_group_provider.WithBuffer(drawUniformBinding, buf),
		)
		b.bindings[key] = provider
	}

	entries := []wgpu.BindGroupEntry{{
		Binding: drawUniformBinding,
		Buffer:  provider.Buffer(drawUniformBinding),
		Offset:  0,
		Size:    wgpu.WholeSize,
	}}
	if view != nil {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     boneTextureBinding,
			TextureView: view,
		})
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  provider.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	provider.SetTextureView(boneTextureBinding, view)
	provider.SetBindGroup(bindGroup)
	return provider, nil
}

// bindingLayout lazily creates the shared layout for plain or skinned draws.
// Bone textures are rgba32float, which is read with textureLoad and is
// therefore bound unfilterable without a sampler.
func (b *wgpuRendererBackend) bindingLayout(skinned bool) (*wgpu.BindGroupLayout, error) {
	if !skinned && b.drawLayout != nil {
		return b.drawLayout, nil
	}
	if skinned && b.skinnedLayout != nil {
		return b.skinnedLayout, nil
	}

	entries := []wgpu.BindGroupLayoutEntry{{
		Binding:    drawUniformBinding,
		Visibility: wgpu.ShaderStageVertex,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: drawUniformSize,
		},
	}}
	label := "Draw Layout"
	if skinned {
		label = "Skinned Draw Layout"
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    boneTextureBinding,
			Visibility: wgpu.ShaderStageVertex,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	if skinned {
		b.skinnedLayout = layout
	} else {
		b.drawLayout = layout
	}
	return layout, nil
}

func (b *wgpuRendererBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errNoOpenFrame
	}

	if b.framePass != nil {
		b.framePass.End()
		b.framePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameSurface()
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.releaseFrameSurface()
}

func (b *wgpuRendererBackend) releaseFrameSurface() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrameSurface()
	for key, p := range b.bindings {
		p.Release()
		delete(b.bindings, key)
	}
	for _, layout := range []*wgpu.BindGroupLayout{b.drawLayout, b.skinnedLayout} {
		if layout != nil {
			layout.Release()
		}
	}
	b.drawLayout, b.skinnedLayout = nil, nil
	for _, t := range b.textures {
		t.view.Release()
		t.texture.Release()
	}
	for _, buf := range b.buffers {
		buf.buffer.Release()
	}
	b.textures, b.buffers = nil, nil

	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

type wgpuTexture struct {
	id      uint32
	cfg     TextureConfig
	texture *wgpu.Texture
	view    *wgpu.TextureView
	backend *wgpuRendererBackend
}

func (t *wgpuTexture) ID() uint32            { return t.id }
func (t *wgpuTexture) Config() TextureConfig { return t.cfg }

// View returns the texture view for bind group creation.
func (t *wgpuTexture) View() *wgpu.TextureView { return t.view }

func (t *wgpuTexture) Update(data []byte) error {
	if len(data) != t.cfg.ByteSize() {
		return ErrPixelSizeMismatch
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	width, height := uint32(t.cfg.Width), uint32(t.cfg.Height)
	t.backend.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * uint32(t.cfg.Format.BytesPerTexel()),
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

type wgpuBuffer struct {
	id      uint32
	kind    BufferKind
	size    int
	buffer  *wgpu.Buffer
	backend *wgpuRendererBackend
}

func (b *wgpuBuffer) ID() uint32       { return b.id }
func (b *wgpuBuffer) Kind() BufferKind { return b.kind }
func (b *wgpuBuffer) Size() int        { return b.size }

// Buffer returns the underlying GPU buffer.
func (b *wgpuBuffer) Buffer() *wgpu.Buffer { return b.buffer }

func (b *wgpuBuffer) Write(offset int, data []byte) error {
	if err := checkBufferWrite(b.size, offset, data); err != nil {
		return err
	}
	if offset%4 != 0 {
		return fmt.Errorf("offset %d is not 4-byte aligned", offset)
	}
	if len(data)%4 != 0 {
		padded := make([]byte, alignCopy(len(data)))
		copy(padded, data)
		data = padded
	}

	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()
	b.backend.queue.WriteBuffer(b.buffer, uint64(offset), data)
	return nil
}

func alignCopy(n int) int {
	return (n + 3) &^ 3
}
