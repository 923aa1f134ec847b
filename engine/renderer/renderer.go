package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// SurfaceSource is anything that can hand the renderer a presentable surface,
// typically a window.Window.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// FrameStats counts the work submitted in the last completed frame.
type FrameStats struct {
	Frame   uint64
	Draws   int
	Skinned int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	log         *zap.Logger

	inFrame bool
	stats   FrameStats
	current FrameStats

	// Pre-creation config collected from builder options
	surface              SurfaceSource
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	clearColor           [4]float64
}

// Renderer is the capability the scene runtime draws through. It owns every
// GPU resource the runtime allocates and accepts one DrawInfo per primitive
// per frame.
type Renderer interface {
	// SubmitDraw queues one draw into the open frame.
	//
	// Parameters:
	//   - info: the per-primitive draw request; it must not be mutated until EndFrame
	//
	// Returns:
	//   - error: error if no frame is open or the backend rejects the draw
	SubmitDraw(info *DrawInfo) error

	// AllocateTexture creates a 2D texture resource.
	//
	// Parameters:
	//   - cfg: size, format and label of the texture
	//
	// Returns:
	//   - TextureHandle: the texture, zero-filled
	//   - error: error if the configuration is invalid or allocation fails
	AllocateTexture(cfg TextureConfig) (TextureHandle, error)

	// AllocateVertexBuffer creates a vertex buffer of the given size.
	//
	// Parameters:
	//   - byteLength: the buffer size in bytes
	//
	// Returns:
	//   - BufferHandle: the buffer, zero-filled
	//   - error: error if allocation fails
	AllocateVertexBuffer(byteLength int) (BufferHandle, error)

	// AllocateIndexBuffer creates an index buffer of the given size.
	//
	// Parameters:
	//   - byteLength: the buffer size in bytes
	//
	// Returns:
	//   - BufferHandle: the buffer, zero-filled
	//   - error: error if allocation fails
	AllocateIndexBuffer(byteLength int) (BufferHandle, error)

	// BeginFrame opens a frame for SubmitDraw calls.
	BeginFrame() error

	// EndFrame submits the open frame.
	EndFrame() error

	// Present displays the last submitted frame.
	Present()

	// Resize reconfigures the presentation surface.
	Resize(width, height int)

	// SetPresentMode sets the surface present mode.
	SetPresentMode(mode PresentMode)

	// Stats returns the counters of the last completed frame.
	Stats() FrameStats

	// Backend returns the backend the renderer drives.
	Backend() RendererBackend

	// Release frees every resource the renderer owns.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer backed by the requested backend.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: error if the backend cannot acquire a device
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		log:         logger.Named("renderer"),
		clearColor:  [4]float64{0.1, 0.1, 0.1, 1.0},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeRecording:
			r.backend = NewRecordingBackend()
		default:
			var desc *wgpu.SurfaceDescriptor
			if r.surface != nil {
				desc = r.surface.SurfaceDescriptor()
			}
			b, err := newWGPURendererBackend(desc, r.forceFallbackAdapter, r.clearColor)
			if err != nil {
				return nil, fmt.Errorf("creating wgpu backend: %w", err)
			}
			r.backend = b
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.surface != nil {
		r.backend.Resize(r.surface.Width(), r.surface.Height())
	}

	r.log.Debug("renderer ready", zap.Int("backend", int(backendType)), zap.Bool("surface", r.surface != nil))
	return r, nil
}

func (r *renderer) SubmitDraw(info *DrawInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return errNoOpenFrame
	}
	if err := r.backend.Draw(info); err != nil {
		return fmt.Errorf("draw %s/%s: %w", info.Node, info.Technique, err)
	}
	r.current.Draws++
	if info.Skinned() {
		r.current.Skinned++
	}
	return nil
}

func (r *renderer) AllocateTexture(cfg TextureConfig) (TextureHandle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t, err := r.backend.AllocateTexture(cfg)
	if err != nil {
		return nil, fmt.Errorf("allocating texture %q: %w", cfg.Label, err)
	}
	r.log.Debug("texture allocated",
		zap.String("label", cfg.Label),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Stringer("format", cfg.Format))
	return t, nil
}

func (r *renderer) AllocateVertexBuffer(byteLength int) (BufferHandle, error) {
	return r.allocateBuffer(BufferKindVertex, byteLength)
}

func (r *renderer) AllocateIndexBuffer(byteLength int) (BufferHandle, error) {
	return r.allocateBuffer(BufferKindIndex, byteLength)
}

func (r *renderer) allocateBuffer(kind BufferKind, byteLength int) (BufferHandle, error) {
	if byteLength <= 0 {
		return nil, fmt.Errorf("%s buffer of %d bytes: %w", kind, byteLength, ErrInvalidBufferSize)
	}
	label := fmt.Sprintf("%s buffer (%d bytes)", kind, byteLength)
	b, err := r.backend.AllocateBuffer(kind, label, byteLength)
	if err != nil {
		return nil, fmt.Errorf("allocating %s: %w", label, err)
	}
	return b, nil
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.inFrame = true
	r.current = FrameStats{Frame: r.stats.Frame + 1}
	return nil
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return errNoOpenFrame
	}
	r.inFrame = false
	if err := r.backend.EndFrame(); err != nil {
		return err
	}
	r.stats = r.current
	return nil
}

func (r *renderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Present()
}

// Resize is called from the window goroutine, so it serialises with the
// frame bracketing on the render goroutine.
func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Resize(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Release() {
	r.backend.Release()
}
