// Package engine runs the viewer's frame loop: a fixed-rate tick goroutine
// for input and logic, and a render goroutine that updates, draws and
// presents every active scene.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Coordinates the tick, render and window goroutines.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	renderer renderer.Renderer
	log      *zap.Logger

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // 0 = run until quit
	frames           atomic.Uint64

	errs []error
}

// idleFrameDelay paces an uncapped render loop while no scene is ready.
const idleFrameDelay = time.Millisecond

// Engine is the main entry point of the viewer.
// It orchestrates the tick loop, the render loop and the window message loop.
type Engine interface {
	// Window returns the window, or nil when running headless.
	Window() window.Window

	// EnableProfiler enables frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// SetTickRate sets the tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick.
	// Use this for input processing and other logic that should not run at
	// the render rate.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are updated and drawn in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Frame runs one frame: every active scene is updated by dt, then all of
	// them are drawn inside a single BeginFrame/EndFrame bracket on the
	// first active scene's renderer, which is then presented. A scene whose
	// update fails is deactivated.
	//
	// Parameters:
	//   - dt: the frame delta in seconds
	//
	// Returns:
	//   - error: the joined scene and renderer errors of this frame
	Frame(dt float32) error

	// Frames returns the number of frames rendered by Run.
	Frames() uint64

	// Run starts the tick and render goroutines and blocks until Quit, the
	// window closes, the frame limit is reached, or every scene failed. With
	// a window, Run must be called from the goroutine that created it.
	//
	// Returns:
	//   - error: the joined errors of the scenes that failed
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Done is closed once Quit has been signalled.
	Done() <-chan struct{}
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, scenes, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		log:             logger.Named("engine"),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(time.Second, e.log.Named("profiler"))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

// resize reconfigures every scene's renderer surface and camera aspect.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	resized := make(map[renderer.Renderer]bool)
	for _, s := range e.Scenes() {
		if r := s.Renderer(); r != nil && !resized[r] {
			r.Resize(width, height)
			resized[r] = true
		}
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
			c.Update()
		}
	}
	e.log.Debug("resized", zap.Int("width", width), zap.Int("height", height))
}

func (e *engine) Run() error {
	e.running.Store(true)
	defer e.running.Store(false)

	e.handle()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.RequestClose()
			default:
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
	}

	e.wg.Wait()
	e.log.Info("engine stopped", zap.Uint64("frames", e.frames.Load()))
	return e.err()
}

func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

// signalQuit closes the quit channel exactly once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop. It listens for rate changes
// on tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if cb := e.tick(); cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the render loop until quit, the frame limit, or a panic.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("render goroutine recovered from panic", zap.Any("panic", r))
			e.fail(fmt.Errorf("render panic: %v", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.Frame(dt); err != nil {
			e.log.Warn("frame failed", zap.Error(err))
		}
		n := e.frames.Add(1)

		if cb := e.render(); cb != nil {
			cb(dt)
		}

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if e.maxFrames > 0 && n >= e.maxFrames {
			e.log.Info("frame limit reached", zap.Uint64("frames", n))
			e.signalQuit()
			return
		}
		if e.hasScenes() && len(e.activeScenes()) == 0 {
			e.log.Error("no active scene left")
			e.signalQuit()
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		} else if e.idle() {
			time.Sleep(idleFrameDelay)
		}
	}
}

func (e *engine) Frame(dt float32) error {
	active := e.activeScenes()
	if len(active) == 0 {
		return nil
	}

	var errs []error
	drawable := active[:0:0]
	for _, s := range active {
		if err := s.Update(dt); err != nil {
			e.log.Error("scene update failed, deactivating", zap.String("scene", s.Name()), zap.Error(err))
			s.SetActive(false)
			err = fmt.Errorf("scene %q: %w", s.Name(), err)
			e.fail(err)
			errs = append(errs, err)
			continue
		}
		drawable = append(drawable, s)
	}
	if len(drawable) == 0 {
		return errors.Join(errs...)
	}

	r := e.renderer
	if r == nil {
		r = drawable[0].Renderer()
	}
	if err := r.BeginFrame(); err != nil {
		return errors.Join(append(errs, fmt.Errorf("begin frame: %w", err))...)
	}
	for _, s := range drawable {
		if err := s.Draw(); err != nil {
			errs = append(errs, fmt.Errorf("scene %q: %w", s.Name(), err))
		}
	}
	if err := r.EndFrame(); err != nil {
		return errors.Join(append(errs, fmt.Errorf("end frame: %w", err))...)
	}
	r.Present()
	return errors.Join(errs...)
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// idle reports whether the last frame had nothing to draw.
func (e *engine) idle() bool {
	for _, s := range e.activeScenes() {
		if s.Ready() {
			return false
		}
	}
	return true
}

func (e *engine) hasScenes() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.scenes) > 0
}

func (e *engine) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

func (e *engine) err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return errors.Join(e.errs...)
}

func (e *engine) tick() func(float32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCallback
}

func (e *engine) render() func(float32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.renderCallback
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate takes effect immediately when the engine is running.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}

	// Replace any pending update that the loop has not picked up yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
