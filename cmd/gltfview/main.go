// Command gltfview loads a glTF 1.0 document and plays its skeletal
// animation, either in a window or headless on the recording backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
	"go.uber.org/zap"
)

var errNoDocument = errors.New("no document given; pass -gltf <file.gltf> or set asset.document")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	err = run(cfg)
	if err != nil {
		logger.Log.Error("viewer failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires config into a window, renderer, loader, scene and engine and
// blocks until the engine stops.
func run(cfg *config.Config) error {
	log := logger.Named("gltfview")
	if cfg.Asset.Document == "" {
		return errNoDocument
	}

	var win window.Window
	if cfg.Window.Enabled {
		w, err := window.NewWindow(
			window.WithTitle(fmt.Sprintf("%s - %s", cfg.Window.Title, filepath.Base(cfg.Asset.Document))),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		if err != nil {
			return err
		}
		defer w.Close()
		win = w
	}

	r, err := newRenderer(cfg, win)
	if err != nil {
		return err
	}
	defer r.Release()

	ldr := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithRenderer(r),
		loader.WithLoadWorkers(cfg.Asset.Workers),
	)
	model, err := ldr.Open(cfg.Asset.Document)
	if err != nil {
		return err
	}

	animOpts := []animator.AnimatorBuilderOption{animator.WithSpeed(cfg.Animation.Speed)}
	if cfg.Animation.Clip != "" {
		animOpts = append(animOpts, animator.WithClip(cfg.Animation.Clip))
	}
	s, err := scene.NewScene(filepath.Base(cfg.Asset.Document), model, r,
		scene.WithAnimatorOptions(animOpts...),
		scene.WithParallelSkinning(cfg.Animation.ParallelSkinning),
		scene.WithComputeWorkers(cfg.Animation.Workers),
	)
	if err != nil {
		return err
	}
	width, height := cfg.Window.Width, cfg.Window.Height
	if win != nil {
		width, height = win.Width(), win.Height()
	}
	s.Camera().SetAspect(float32(width) / float32(height))

	opts := []engine.EngineBuilderOption{
		engine.WithScene(0, s),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithRenderFrameLimit(cfg.Engine.FrameLimit),
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithMaxFrames(cfg.Engine.MaxFrames),
	}
	if win != nil {
		opts = append(opts, engine.WithWindow(win))
	}
	eng := engine.NewEngine(opts...)

	if win != nil {
		c := newControls(s, eng.Quit, log)
		win.SetKeyDownCallback(c.keyDown)
		win.SetScrollCallback(c.scroll)
		win.SetDragCallback(c.drag)
	}

	go awaitModel(eng, model, s, cfg, log)

	return eng.Run()
}

// newRenderer creates the backend selected by cfg, presenting to win if given.
func newRenderer(cfg *config.Config, win window.Window) (renderer.Renderer, error) {
	backend := renderer.BackendTypeWGPU
	if cfg.Renderer.Backend == config.BackendRecording {
		backend = renderer.BackendTypeRecording
	}

	mode := renderer.PresentModeVSync
	if !cfg.Renderer.VSync {
		mode = renderer.PresentModeUncapped
	}
	opts := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceSoftware),
	}
	if win != nil {
		opts = append(opts, renderer.WithSurface(win))
	}
	return renderer.NewRenderer(backend, opts...)
}

// awaitModel reports when the model settles and stops the engine if it does
// not within the configured timeout.
func awaitModel(eng engine.Engine, model *loader.Model, s scene.Scene, cfg *config.Config, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Asset.Timeout)
	defer cancel()

	go func() {
		select {
		case <-eng.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := model.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("model did not load in time", zap.Duration("timeout", cfg.Asset.Timeout))
			eng.Quit()
		}
		return
	}

	if err := s.Build(); err != nil {
		return
	}
	clips := s.Clips()
	log.Info("viewing",
		zap.String("document", cfg.Asset.Document),
		zap.Int("skins", len(s.Skins())),
		zap.String("clips", strings.Join(clips, ", ")))
	log.Info(controlsHelp)
}
