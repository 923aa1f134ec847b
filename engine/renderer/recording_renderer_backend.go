package renderer

import (
	"errors"
	"sync"
)

var errNoOpenFrame = errors.New("no open frame")

// RecordingBackend is an in-memory RendererBackend. Textures and buffers are
// plain byte slices, and every submitted draw is kept per frame.
type RecordingBackend struct {
	mu sync.Mutex

	nextID   uint32
	textures map[uint32]*recordingTexture
	buffers  map[uint32]*recordingBuffer

	open    bool
	current []DrawInfo
	frames  [][]DrawInfo

	presented int
	width     int
	height    int
	mode      PresentMode
}

var _ RendererBackend = &RecordingBackend{}

// NewRecordingBackend creates an empty recording backend.
//
// Returns:
//   - *RecordingBackend: the backend
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		textures: make(map[uint32]*recordingTexture),
		buffers:  make(map[uint32]*recordingBuffer),
	}
}

func (b *RecordingBackend) AllocateTexture(cfg TextureConfig) (TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	t := &recordingTexture{
		id:   b.nextID,
		cfg:  cfg,
		data: make([]byte, cfg.ByteSize()),
	}
	b.textures[t.id] = t
	return t, nil
}

func (b *RecordingBackend) AllocateBuffer(kind BufferKind, label string, byteLength int) (BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	buf := &recordingBuffer{
		id:    b.nextID,
		kind:  kind,
		label: label,
		data:  make([]byte, byteLength),
	}
	b.buffers[buf.id] = buf
	return buf, nil
}

func (b *RecordingBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = true
	b.current = b.current[:0]
	return nil
}

func (b *RecordingBackend) Draw(info *DrawInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return errNoOpenFrame
	}
	b.current = append(b.current, *info)
	return nil
}

func (b *RecordingBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return errNoOpenFrame
	}
	frame := make([]DrawInfo, len(b.current))
	copy(frame, b.current)
	b.frames = append(b.frames, frame)
	b.open = false
	return nil
}

func (b *RecordingBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presented++
}

func (b *RecordingBackend) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
}

func (b *RecordingBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
}

func (b *RecordingBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures = make(map[uint32]*recordingTexture)
	b.buffers = make(map[uint32]*recordingBuffer)
}

// Frames returns every submitted frame in order.
func (b *RecordingBackend) Frames() [][]DrawInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]DrawInfo, len(b.frames))
	copy(out, b.frames)
	return out
}

// Presented returns how many times Present was called.
func (b *RecordingBackend) Presented() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presented
}

// TextureData returns a copy of the current contents of a texture.
func (b *RecordingBackend) TextureData(id uint32) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.textures[id]
	if !ok {
		return nil, false
	}
	return t.snapshot(), true
}

// TextureUploads returns how many times a texture has been updated.
func (b *RecordingBackend) TextureUploads(id uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.textures[id]
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploads
}

// BufferData returns a copy of the current contents of a buffer.
func (b *RecordingBackend) BufferData(id uint32) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[id]
	if !ok {
		return nil, false
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return append([]byte(nil), buf.data...), true
}

// TextureCount returns the number of live textures.
func (b *RecordingBackend) TextureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.textures)
}

// BufferCount returns the number of live buffers.
func (b *RecordingBackend) BufferCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers)
}

type recordingTexture struct {
	mu      sync.Mutex
	id      uint32
	cfg     TextureConfig
	data    []byte
	uploads int
}

func (t *recordingTexture) ID() uint32            { return t.id }
func (t *recordingTexture) Config() TextureConfig { return t.cfg }

func (t *recordingTexture) Update(data []byte) error {
	if len(data) != t.cfg.ByteSize() {
		return ErrPixelSizeMismatch
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	copy(t.data, data)
	t.uploads++
	return nil
}

func (t *recordingTexture) snapshot() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.data...)
}

type recordingBuffer struct {
	mu    sync.Mutex
	id    uint32
	kind  BufferKind
	label string
	data  []byte
}

func (b *recordingBuffer) ID() uint32       { return b.id }
func (b *recordingBuffer) Kind() BufferKind { return b.kind }
func (b *recordingBuffer) Size() int        { return len(b.data) }

func (b *recordingBuffer) Write(offset int, data []byte) error {
	if err := checkBufferWrite(len(b.data), offset, data); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.data[offset:], data)
	return nil
}
