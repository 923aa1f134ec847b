package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	ErrNotReady          = errors.New("buffer view not loaded yet")
	ErrUnknownAccessor   = errors.New("unknown accessor")
	ErrUnknownBufferView = errors.New("unknown buffer view")
	ErrUnknownBuffer     = errors.New("unknown buffer")
	ErrOutOfRange        = errors.New("range exceeds underlying data")
	ErrUnsupportedLayout = errors.New("unsupported accessor layout")
)

// BufferAllocator creates GPU buffers for buffer views that declare a target.
// renderer.Renderer satisfies it.
type BufferAllocator interface {
	AllocateVertexBuffer(byteLength int) (renderer.BufferHandle, error)
	AllocateIndexBuffer(byteLength int) (renderer.BufferHandle, error)
}

// AccessorBinding is a resolved accessor: where its bytes live and how to read them.
type AccessorBinding struct {
	ID            string
	BufferView    string
	Buffer        renderer.BufferHandle // nil when the view has no GPU target
	ByteOffset    int                   // relative to the start of the view
	ByteStride    int
	ComponentType int
	Arity         int
	Count         int
}

type resolvedView struct {
	data []byte
	gpu  renderer.BufferHandle
}

// AccessorResolver turns loaded buffers into buffer views and typed
// accessors. Views with a target become GPU buffers; views without one stay
// host-side byte ranges that animation and skin data are decoded from.
type AccessorResolver struct {
	mu sync.RWMutex

	doc   *GLTFDocument
	alloc BufferAllocator
	log   *zap.Logger

	blobs map[string][]byte
	views map[string]*resolvedView
}

// NewAccessorResolver creates a resolver for doc. alloc may be nil, in which
// case targeted views are kept host-side only.
func NewAccessorResolver(doc *GLTFDocument, alloc BufferAllocator, log *zap.Logger) *AccessorResolver {
	if log == nil {
		log = logger.Named("accessors")
	}
	return &AccessorResolver{
		doc:   doc,
		alloc: alloc,
		log:   log,
		blobs: make(map[string][]byte),
		views: make(map[string]*resolvedView),
	}
}

// LoadAssets feeds every loaded buffer of the asset set to the resolver.
//
// Parameters:
//   - assets: the resources produced by an AssetLoader
//
// Returns:
//   - error: the joined failures of every buffer that could not be resolved
func (r *AccessorResolver) LoadAssets(assets *Assets) error {
	var errs []error
	for _, id := range common.SortedKeys(r.doc.Buffers) {
		data, ok := assets.Binary(BufferAssetName(id))
		if !ok {
			errs = append(errs, fmt.Errorf("buffer %q: %w", id, ErrNotReady))
			continue
		}
		if err := r.SetBuffer(id, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetBuffer supplies the bytes of one buffer and resolves every view over it.
//
// Parameters:
//   - id: the buffer id
//   - data: the buffer contents
//
// Returns:
//   - error: error if the buffer is unknown or a view does not fit
func (r *AccessorResolver) SetBuffer(id string, data []byte) error {
	buf, ok := r.doc.Buffers[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, ErrUnknownBuffer)
	}
	if buf.ByteLength > 0 && len(data) < buf.ByteLength {
		return fmt.Errorf("buffer %q has %d bytes, declared %d: %w", id, len(data), buf.ByteLength, ErrOutOfRange)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[id] = data

	var errs []error
	for _, viewID := range common.SortedKeys(r.doc.BufferViews) {
		view := r.doc.BufferViews[viewID]
		if view.Buffer != id {
			continue
		}
		rv, err := r.resolveView(viewID, view, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.views[viewID] = rv
	}
	return errors.Join(errs...)
}

func (r *AccessorResolver) resolveView(id string, view GLTFBufferView, data []byte) (*resolvedView, error) {
	length := view.ByteLength
	if length == 0 {
		length = len(data) - view.ByteOffset
	}
	end := view.ByteOffset + length
	if view.ByteOffset < 0 || length < 0 || end > len(data) {
		return nil, fmt.Errorf("view %q [%d:%d] of %d bytes: %w", id, view.ByteOffset, end, len(data), ErrOutOfRange)
	}
	rv := &resolvedView{data: data[view.ByteOffset:end]}

	if r.alloc == nil || view.Target == 0 || length == 0 {
		return rv, nil
	}

	var (
		gpu renderer.BufferHandle
		err error
	)
	switch view.Target {
	case GLTFTargetElementArrayBuffer:
		gpu, err = r.alloc.AllocateIndexBuffer(length)
	default:
		gpu, err = r.alloc.AllocateVertexBuffer(length)
	}
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", id, err)
	}
	if err := gpu.Write(0, rv.data); err != nil {
		return nil, fmt.Errorf("view %q: %w", id, err)
	}
	rv.gpu = gpu
	r.log.Debug("uploaded buffer view", zap.String("view", id), zap.Int("bytes", length), zap.Stringer("kind", gpu.Kind()))
	return rv, nil
}

// Ready reports whether every buffer view has been resolved.
func (r *AccessorResolver) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views) == len(r.doc.BufferViews)
}

// ViewReady reports whether one buffer view has been resolved.
func (r *AccessorResolver) ViewReady(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.views[id]
	return ok
}

// Accessor resolves an accessor id into a binding.
//
// Parameters:
//   - id: the accessor id
//
// Returns:
//   - AccessorBinding: the binding
//   - error: ErrUnknownAccessor, ErrNotReady, or a layout error
func (r *AccessorResolver) Accessor(id string) (AccessorBinding, error) {
	acc, ok := r.doc.Accessors[id]
	if !ok {
		return AccessorBinding{}, fmt.Errorf("%q: %w", id, ErrUnknownAccessor)
	}
	if _, ok := r.doc.BufferViews[acc.BufferView]; !ok {
		return AccessorBinding{}, fmt.Errorf("accessor %q view %q: %w", id, acc.BufferView, ErrUnknownBufferView)
	}

	r.mu.RLock()
	rv, ok := r.views[acc.BufferView]
	r.mu.RUnlock()
	if !ok {
		return AccessorBinding{}, fmt.Errorf("accessor %q view %q: %w", id, acc.BufferView, ErrNotReady)
	}

	b := AccessorBinding{
		ID:            id,
		BufferView:    acc.BufferView,
		Buffer:        rv.gpu,
		ByteOffset:    acc.ByteOffset,
		ByteStride:    acc.ByteStride,
		ComponentType: acc.ComponentType,
		Arity:         TypeArity(acc.Type),
		Count:         acc.Count,
	}
	if err := checkAccessorRange(b, len(rv.data)); err != nil {
		return AccessorBinding{}, fmt.Errorf("accessor %q: %w", id, err)
	}
	return b, nil
}

// Floats decodes an accessor into a flat float32 slice, honoring byte
// stride. Integer components are converted by value.
//
// Parameters:
//   - id: the accessor id
//
// Returns:
//   - []float32: count*arity values
//   - int: the arity (components per element)
//   - error: error if the accessor cannot be resolved
func (r *AccessorResolver) Floats(id string) ([]float32, int, error) {
	b, err := r.Accessor(id)
	if err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	data := r.views[b.BufferView].data
	r.mu.RUnlock()

	size := ComponentSize(b.ComponentType)
	stride := elementStride(b)
	out := make([]float32, 0, b.Count*b.Arity)
	for i := 0; i < b.Count; i++ {
		base := b.ByteOffset + i*stride
		for c := 0; c < b.Arity; c++ {
			out = append(out, readComponent(data[base+c*size:], b.ComponentType))
		}
	}
	return out, b.Arity, nil
}

// Matrices decodes a MAT4 accessor. glTF stores matrices column-major, the
// same order as mgl32.Mat4.
//
// Parameters:
//   - id: the accessor id
//
// Returns:
//   - []mgl32.Mat4: one matrix per element
//   - error: error if the accessor is not a MAT4 or cannot be resolved
func (r *AccessorResolver) Matrices(id string) ([]mgl32.Mat4, error) {
	values, arity, err := r.Floats(id)
	if err != nil {
		return nil, err
	}
	if arity != 16 {
		return nil, fmt.Errorf("accessor %q has arity %d, want 16: %w", id, arity, ErrUnsupportedLayout)
	}
	out := make([]mgl32.Mat4, len(values)/16)
	for i := range out {
		copy(out[i][:], values[i*16:(i+1)*16])
	}
	return out, nil
}

// Vectors decodes an accessor of the given arity.
func (r *AccessorResolver) Vectors(id string, want int) ([]float32, error) {
	values, arity, err := r.Floats(id)
	if err != nil {
		return nil, err
	}
	if arity != want {
		return nil, fmt.Errorf("accessor %q has arity %d, want %d: %w", id, arity, want, ErrUnsupportedLayout)
	}
	return values, nil
}

// ComponentSize returns the byte size of a component type, or 0 if unknown.
func ComponentSize(componentType int) int {
	switch componentType {
	case GLTFComponentTypeByte, GLTFComponentTypeUnsignedByte:
		return 1
	case GLTFComponentTypeShort, GLTFComponentTypeUnsignedShort:
		return 2
	case GLTFComponentTypeUnsignedInt, GLTFComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// TypeArity returns the component count of an accessor type, or 0 if unknown.
func TypeArity(accessorType string) int {
	switch accessorType {
	case GLTFAccessorTypeScalar:
		return 1
	case GLTFAccessorTypeVec2:
		return 2
	case GLTFAccessorTypeVec3:
		return 3
	case GLTFAccessorTypeVec4, GLTFAccessorTypeMat2:
		return 4
	case GLTFAccessorTypeMat3:
		return 9
	case GLTFAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}

func elementStride(b AccessorBinding) int {
	if b.ByteStride > 0 {
		return b.ByteStride
	}
	return b.Arity * ComponentSize(b.ComponentType)
}

func checkAccessorRange(b AccessorBinding, viewLen int) error {
	size := ComponentSize(b.ComponentType)
	if size == 0 || b.Arity == 0 {
		return fmt.Errorf("component type %d, arity %d: %w", b.ComponentType, b.Arity, ErrUnsupportedLayout)
	}
	if b.Count < 0 || b.ByteStride < 0 {
		return fmt.Errorf("count %d, stride %d: %w", b.Count, b.ByteStride, ErrUnsupportedLayout)
	}
	if b.Count == 0 {
		return nil
	}
	end := b.ByteOffset + (b.Count-1)*elementStride(b) + b.Arity*size
	if b.ByteOffset < 0 || end > viewLen {
		return fmt.Errorf("needs %d bytes, view has %d: %w", end, viewLen, ErrOutOfRange)
	}
	return nil
}

func readComponent(p []byte, componentType int) float32 {
	switch componentType {
	case GLTFComponentTypeByte:
		return float32(int8(p[0]))
	case GLTFComponentTypeUnsignedByte:
		return float32(p[0])
	case GLTFComponentTypeShort:
		return float32(int16(binary.LittleEndian.Uint16(p)))
	case GLTFComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(p))
	case GLTFComponentTypeUnsignedInt:
		return float32(binary.LittleEndian.Uint32(p))
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(p))
	}
}
