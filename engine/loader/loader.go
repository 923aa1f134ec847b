package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"go.uber.org/zap"
)

// LoaderBackendType identifies the document format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF 1.0 JSON backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// ErrUnsupportedFormat is returned when the backend cannot open a file.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// parseFunc returns the document parser and file extension for a backend.
func (b LoaderBackendType) parseFunc() (func(string) (*GLTFDocument, error), string, error) {
	switch b {
	case BackendTypeGLTF:
		return ParseFile, ".gltf", nil
	default:
		return nil, "", fmt.Errorf("backend %d: %w", int(b), ErrUnsupportedFormat)
	}
}

// Model is a parsed document together with its asynchronously loaded
// resources. It is usable for scene construction as soon as it is returned;
// geometry and animation data become available once Ready reports true.
type Model struct {
	Name      string
	BaseDir   string
	Document  *GLTFDocument
	Assets    AssetLoader
	Accessors *AccessorResolver

	resolved chan struct{}
	mu       sync.Mutex
	err      error
}

// Ready reports whether every resource loaded and every buffer view resolved.
func (m *Model) Ready() bool {
	select {
	case <-m.resolved:
	default:
		return false
	}
	return m.Err() == nil && m.Accessors.Ready()
}

// Err returns the load or resolution failure, if any.
func (m *Model) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Wait blocks until resources are loaded and resolved, or ctx ends.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - error: the load error, or ctx.Err()
func (m *Model) Wait(ctx context.Context) error {
	select {
	case <-m.resolved:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolved is closed once the model has settled, successfully or not.
func (m *Model) Resolved() <-chan struct{} {
	return m.resolved
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	backendType LoaderBackendType
	renderer    renderer.Renderer
	pool        worker.DynamicWorkerPool
	workers     int
	log         *zap.Logger

	modelCache map[string]*Model
}

// Loader opens glTF documents and manages a cache of previously opened models.
// Opening parses the JSON synchronously and resolves external resources on a
// worker pool in the background.
type Loader interface {
	// Open parses the document at path and starts loading its resources.
	// A cached model is returned if path was opened before.
	//
	// Parameters:
	//   - path: the file path to the .gltf document
	//
	// Returns:
	//   - *Model: the model, not necessarily ready
	//   - error: error if the file cannot be parsed or the format is unsupported
	Open(path string) (*Model, error)

	// OpenDocument starts loading the resources of an already parsed document
	// and caches it by name. Relative URIs resolve against baseDir.
	//
	// Parameters:
	//   - name: the cache key
	//   - doc: the parsed document
	//   - baseDir: directory relative URIs resolve against
	//
	// Returns:
	//   - *Model: the model, not necessarily ready
	//   - error: error if the manifest is invalid
	OpenDocument(name string, doc *GLTFDocument, baseDir string) (*Model, error)

	// Load opens path and waits for its resources.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//   - path: the file path to the .gltf document
	//
	// Returns:
	//   - *Model: the ready model
	//   - error: error if parsing, loading, or resolution fails
	Load(ctx context.Context, path string) (*Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	Get(name string) *Model

	// Models returns a copy of the model cache.
	Models() map[string]*Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		backendType: backendType,
		workers:     4,
		log:         logger.Named("loader"),
		modelCache:  make(map[string]*Model),
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Open(path string) (*Model, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}

	parse, want, err := l.backendType.parseFunc()
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != want {
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}

	doc, err := parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.OpenDocument(path, doc, filepath.Dir(path))
}

func (l *loader) OpenDocument(name string, doc *GLTFDocument, baseDir string) (*Model, error) {
	if m := l.Get(name); m != nil {
		return m, nil
	}

	var alloc BufferAllocator
	if l.renderer != nil {
		alloc = l.renderer
	}

	m := &Model{
		Name:      name,
		BaseDir:   baseDir,
		Document:  doc,
		Accessors: NewAccessorResolver(doc, alloc, l.log.Named("accessors")),
		resolved:  make(chan struct{}),
	}

	opts := []AssetLoaderBuilderOption{WithWorkers(l.workers), WithAssetLogger(l.log.Named("assets"))}
	if l.pool != nil {
		opts = append(opts, WithWorkerPool(l.pool))
	}
	m.Assets = NewAssetLoader(opts...)

	onDone := func(assets *Assets, err error) {
		if err == nil {
			err = m.Accessors.LoadAssets(assets)
		}
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		close(m.resolved)

		if err != nil {
			l.log.Error("model failed to load", zap.String("model", name), zap.Error(err))
			return
		}
		l.log.Info("model ready", zap.String("model", name),
			zap.Int("buffers", len(doc.Buffers)), zap.Int("images", len(doc.Images)))
	}

	if err := m.Assets.Load(doc.Manifest(baseDir), onDone); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) Load(ctx context.Context, path string) (*Model, error) {
	m, err := l.Open(path)
	if err != nil {
		return nil, err
	}
	if err := m.Wait(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (l *loader) Get(name string) *Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}
