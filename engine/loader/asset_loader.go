package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrAlreadyLoading is returned when Load is called twice on one loader.
	ErrAlreadyLoading = errors.New("asset loader already started")

	// ErrDuplicateAsset is returned when a manifest names the same resource twice.
	ErrDuplicateAsset = errors.New("duplicate asset name in manifest")

	// ErrNotImage is returned when an image resource does not hold image data.
	ErrNotImage = errors.New("resource is not a recognized image")
)

// AssetKind identifies how a resource's bytes are resolved.
type AssetKind int

const (
	// AssetKindBinary resolves to raw bytes.
	AssetKindBinary AssetKind = iota

	// AssetKindImage resolves to a decoded image.
	AssetKindImage
)

// AssetDescriptor is one named entry of a load manifest.
type AssetDescriptor struct {
	Name   string
	Kind   AssetKind
	Source string // file path or data URI

	// Optional resources are marked Failed when they cannot be loaded but do
	// not fail the manifest.
	Optional bool
}

// AssetState is the per-resource load state.
type AssetState int

const (
	AssetStateUnknown AssetState = iota
	AssetStatePending
	AssetStateLoaded
	AssetStateFailed
)

func (s AssetState) String() string {
	switch s {
	case AssetStatePending:
		return "pending"
	case AssetStateLoaded:
		return "loaded"
	case AssetStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Assets holds the resolved resources of a manifest.
type Assets struct {
	mu       sync.RWMutex
	binaries map[string][]byte
	images   map[string]image.Image
}

func newAssets() *Assets {
	return &Assets{
		binaries: make(map[string][]byte),
		images:   make(map[string]image.Image),
	}
}

// Binary returns the bytes of a loaded binary resource.
func (a *Assets) Binary(name string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.binaries[name]
	return b, ok
}

// Image returns a loaded, decoded image resource.
func (a *Assets) Image(name string) (image.Image, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	img, ok := a.images[name]
	return img, ok
}

// Buffers returns the loaded binaries keyed by glTF buffer id.
func (a *Assets) Buffers(doc *GLTFDocument) map[string][]byte {
	out := make(map[string][]byte, len(doc.Buffers))
	for id := range doc.Buffers {
		if b, ok := a.Binary(BufferAssetName(id)); ok {
			out[id] = b
		}
	}
	return out
}

// assetLoader is the implementation of the AssetLoader interface.
type assetLoader struct {
	mu sync.Mutex

	pool    worker.DynamicWorkerPool
	workers int
	log     *zap.Logger

	started   bool
	states    map[string]AssetState
	optional  map[string]bool
	errs      []error
	remaining int
	assets    *Assets
	onDone    func(*Assets, error)
	done      chan struct{}
	err       error
}

// AssetLoader resolves a manifest of named resources asynchronously. Each
// resource settles exactly once; the loader becomes ready only when every
// resource loaded, and reports an explicit error state otherwise.
type AssetLoader interface {
	// Load starts resolving every manifest entry on the worker pool and
	// returns immediately. onDone, if non-nil, is called once after every
	// resource has settled, with the joined failures if any failed.
	//
	// Parameters:
	//   - manifest: the resources to resolve
	//   - onDone: completion callback
	//
	// Returns:
	//   - error: ErrAlreadyLoading or ErrDuplicateAsset
	Load(manifest []AssetDescriptor, onDone func(*Assets, error)) error

	// Ready reports whether every resource has loaded successfully.
	Ready() bool

	// Done is closed once every resource has settled and the completion
	// callback has returned.
	Done() <-chan struct{}

	// Err returns the joined load failures, or nil.
	Err() error

	// State returns the state of one resource.
	State(name string) AssetState

	// Pending returns the number of resources not yet settled.
	Pending() int

	// Wait blocks until every resource settles or ctx ends.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - *Assets: the resolved resources
	//   - error: the load error, or ctx.Err()
	Wait(ctx context.Context) (*Assets, error)
}

var _ AssetLoader = &assetLoader{}

// NewAssetLoader creates an AssetLoader with the provided options.
//
// Parameters:
//   - options: a variadic list of AssetLoaderBuilderOption functions
//
// Returns:
//   - AssetLoader: the loader, idle until Load is called
func NewAssetLoader(options ...AssetLoaderBuilderOption) AssetLoader {
	l := &assetLoader{
		workers:  4,
		log:      logger.Named("assets"),
		states:   make(map[string]AssetState),
		optional: make(map[string]bool),
		assets:   newAssets(),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *assetLoader) Load(manifest []AssetDescriptor, onDone func(*Assets, error)) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyLoading
	}
	for _, desc := range manifest {
		if _, dup := l.states[desc.Name]; dup {
			l.states = make(map[string]AssetState)
			l.optional = make(map[string]bool)
			l.mu.Unlock()
			return fmt.Errorf("%q: %w", desc.Name, ErrDuplicateAsset)
		}
		l.states[desc.Name] = AssetStatePending
		if desc.Optional {
			l.optional[desc.Name] = true
		}
	}
	l.started = true
	l.onDone = onDone
	l.remaining = len(manifest)
	if l.remaining == 0 {
		l.mu.Unlock()
		l.finish()
		return nil
	}
	if l.pool == nil {
		l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	}
	l.mu.Unlock()

	l.log.Debug("loading manifest", zap.Int("resources", len(manifest)))
	for i, desc := range manifest {
		d := desc
		l.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				err := l.resolve(d)
				l.settle(d.Name, err)
				return nil, err
			},
		})
	}
	return nil
}

// resolve loads one resource into the asset set.
func (l *assetLoader) resolve(desc AssetDescriptor) error {
	data, err := readSource(desc.Source)
	if err != nil {
		return err
	}

	switch desc.Kind {
	case AssetKindImage:
		img, err := decodeImage(data)
		if err != nil {
			return err
		}
		l.assets.mu.Lock()
		l.assets.images[desc.Name] = img
		l.assets.mu.Unlock()
	default:
		l.assets.mu.Lock()
		l.assets.binaries[desc.Name] = data
		l.assets.mu.Unlock()
	}
	return nil
}

// settle records the outcome of one resource. Later calls for the same name are ignored.
func (l *assetLoader) settle(name string, err error) {
	l.mu.Lock()
	if l.states[name] != AssetStatePending {
		l.mu.Unlock()
		return
	}
	switch {
	case err != nil && l.optional[name]:
		l.states[name] = AssetStateFailed
		l.log.Warn("optional asset failed", zap.String("asset", name), zap.Error(err))
	case err != nil:
		l.states[name] = AssetStateFailed
		l.errs = append(l.errs, fmt.Errorf("%s: %w", name, err))
		l.log.Warn("asset failed", zap.String("asset", name), zap.Error(err))
	default:
		l.states[name] = AssetStateLoaded
		l.log.Debug("asset loaded", zap.String("asset", name))
	}
	l.remaining--
	last := l.remaining == 0
	l.mu.Unlock()

	if last {
		l.finish()
	}
}

func (l *assetLoader) finish() {
	l.mu.Lock()
	l.err = errors.Join(l.errs...)
	onDone := l.onDone
	err := l.err
	l.mu.Unlock()

	if err != nil {
		l.log.Error("manifest failed", zap.Error(err))
	}
	if onDone != nil {
		onDone(l.assets, err)
	}
	close(l.done)
}

func (l *assetLoader) Ready() bool {
	select {
	case <-l.done:
		return l.Err() == nil
	default:
		return false
	}
}

func (l *assetLoader) Done() <-chan struct{} {
	return l.done
}

func (l *assetLoader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *assetLoader) State(name string) AssetState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[name]
}

func (l *assetLoader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

func (l *assetLoader) Wait(ctx context.Context) (*Assets, error) {
	select {
	case <-l.done:
		return l.assets, l.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeImage sniffs the payload before decoding so a mislabeled binary is
// reported as such rather than as a decoder failure.
func decodeImage(data []byte) (image.Image, error) {
	if !filetype.IsImage(data) {
		return nil, ErrNotImage
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", kind.MIME.Value, err)
	}
	return img, nil
}
