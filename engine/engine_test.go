package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyDocument() *loader.GLTFDocument {
	return &loader.GLTFDocument{
		Asset:  loader.GLTFAsset{Version: "1.0"},
		Scene:  "main",
		Scenes: map[string]loader.GLTFScene{"main": {Nodes: []string{"root"}}},
		Nodes:  map[string]loader.GLTFNode{"root": {Name: "root"}},
	}
}

func newScene(t *testing.T, name string, doc *loader.GLTFDocument) (scene.Scene, *renderer.RecordingBackend) {
	t.Helper()
	rec := renderer.NewRecordingBackend()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording, renderer.WithBackend(rec))
	require.NoError(t, err)

	m, err := loader.NewLoader(loader.BackendTypeGLTF, loader.WithRenderer(r)).OpenDocument(name, doc, t.TempDir())
	require.NoError(t, err)
	<-m.Resolved()

	s, err := scene.NewScene(name, m, r)
	require.NoError(t, err)
	return s, rec
}

func TestEngineRunStopsAtMaxFrames(t *testing.T) {
	s, rec := newScene(t, "empty", emptyDocument())

	var mu sync.Mutex
	rendered := 0
	e := NewEngine(WithScene(0, s), WithMaxFrames(3), WithProfiling(true))
	e.SetRenderCallback(func(float32) {
		mu.Lock()
		rendered++
		mu.Unlock()
	})

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.Frames())
	assert.Equal(t, 3, rec.Presented())
	assert.Equal(t, 3, rendered)
	assert.True(t, s.Ready())

	select {
	case <-e.Done():
	default:
		t.Fatal("Done not closed after Run")
	}
}

func TestEngineQuitsWhenEverySceneFails(t *testing.T) {
	doc := emptyDocument()
	doc.Buffers = map[string]loader.GLTFBuffer{"buf": {URI: "missing.bin"}}
	s, rec := newScene(t, "broken", doc)

	e := NewEngine(WithScene(0, s))
	err := e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scene "broken"`)
	assert.False(t, s.Active())
	assert.Zero(t, rec.Presented())
}

func TestEngineFrameOrdersScenesAndSkipsInactive(t *testing.T) {
	a, recA := newScene(t, "a", emptyDocument())
	b, recB := newScene(t, "b", emptyDocument())
	c, _ := newScene(t, "c", emptyDocument())
	c.SetActive(false)

	e := NewEngine(WithScene(2, a), WithScene(1, b), WithScene(0, c))
	require.NoError(t, e.Frame(0.016))

	// The frame is bracketed on the first active scene's renderer.
	assert.Equal(t, 1, recB.Presented())
	assert.Zero(t, recA.Presented())
	assert.True(t, a.Ready())
	assert.True(t, b.Ready())
	assert.False(t, c.Ready())

	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
	assert.Len(t, e.Scenes(), 2)
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, 1, recA.Presented())
}

func TestEngineFrameWithExplicitRenderer(t *testing.T) {
	s, rec := newScene(t, "s", emptyDocument())
	other := renderer.NewRecordingBackend()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording, renderer.WithBackend(other))
	require.NoError(t, err)

	e := NewEngine(WithScene(0, s), WithRenderer(r))
	require.NoError(t, e.Frame(0))
	assert.Equal(t, 1, other.Presented())
	assert.Zero(t, rec.Presented())
}

func TestEngineTickCallbackAndQuit(t *testing.T) {
	e := NewEngine(WithTickRate(500), WithRenderFrameLimit(200))

	var once sync.Once
	ticked := make(chan float32, 1)
	e.SetTickCallback(func(dt float32) {
		once.Do(func() {
			ticked <- dt
			e.Quit()
		})
	})

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("engine did not stop")
	}
	assert.Greater(t, <-ticked, float32(0))

	e.Quit()
}

func TestEngineUncappedLoopIdlesWithoutReadyScene(t *testing.T) {
	e := NewEngine()
	assert.True(t, e.(*engine).idle())

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	time.Sleep(50 * time.Millisecond)
	e.Quit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Less(t, e.Frames(), uint64(1000), "an idle uncapped loop sleeps between frames")

	s, _ := newScene(t, "ready", emptyDocument())
	busy := NewEngine(WithScene(0, s))
	require.NoError(t, busy.Frame(0))
	assert.False(t, busy.(*engine).idle())
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, time.Second/60, tickInterval(0))
	assert.Equal(t, 10*time.Millisecond, tickInterval(100))
	assert.Equal(t, time.Duration(0), frameInterval(-1))
	assert.Equal(t, 20*time.Millisecond, frameInterval(50))
}
