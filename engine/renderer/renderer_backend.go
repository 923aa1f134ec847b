package renderer

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeRecording selects the in-memory backend that records every
	// allocation, upload and draw. Used for headless runs and tests.
	BackendTypeRecording
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// RendererBackend is the GPU API specific half of the Renderer. The Renderer
// front adds validation, frame bookkeeping and logging on top of it.
type RendererBackend interface {
	// AllocateTexture creates a 2D texture of the configured size and format.
	AllocateTexture(cfg TextureConfig) (TextureHandle, error)

	// AllocateBuffer creates a vertex or index buffer of byteLength bytes.
	AllocateBuffer(kind BufferKind, label string, byteLength int) (BufferHandle, error)

	// BeginFrame opens a frame. Draws are only accepted between BeginFrame and EndFrame.
	BeginFrame() error

	// Draw records one draw into the open frame.
	Draw(info *DrawInfo) error

	// EndFrame closes the open frame and submits it.
	EndFrame() error

	// Present shows the last submitted frame, if the backend has a surface.
	Present()

	// Resize reconfigures the surface, if the backend has one.
	Resize(width, height int)

	// SetPresentMode changes how frames are delivered to the surface.
	SetPresentMode(mode PresentMode)

	// Release frees every GPU object the backend owns.
	Release()
}
