// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	errInvalidSize     = errors.New("window size must be positive")
	errInvalidSpeed    = errors.New("animation speed must be positive")
	errInvalidBackend  = errors.New("unknown renderer backend")
	errInvalidWorkers  = errors.New("worker count must be at least 1")
	errInvalidTickRate = errors.New("tick rate must be positive")
)

// Renderer backend names accepted in RendererConfig.Backend.
const (
	BackendWGPU      = "wgpu"
	BackendRecording = "recording"
)

// Config holds all viewer settings.
type Config struct {
	Asset     AssetConfig     `yaml:"asset"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Window    WindowConfig    `yaml:"window"`
	Animation AnimationConfig `yaml:"animation"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AssetConfig holds the document to load and the loader pool size.
type AssetConfig struct {
	Document string        `yaml:"document"` // path to a .gltf document
	Workers  int           `yaml:"workers"`  // concurrent asset loads
	Timeout  time.Duration `yaml:"timeout"`  // max wait for all assets
}

// RendererConfig selects and tunes the renderer backend.
type RendererConfig struct {
	Backend       string `yaml:"backend"`
	ForceSoftware bool   `yaml:"force_software"`
	VSync         bool   `yaml:"vsync"`
}

// WindowConfig holds host window settings.
type WindowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// AnimationConfig holds playback settings.
type AnimationConfig struct {
	Clip             string  `yaml:"clip"` // empty plays every clip
	Speed            float32 `yaml:"speed"`
	ParallelSkinning bool    `yaml:"parallel_skinning"`
	Workers          int     `yaml:"workers"`
}

// EngineConfig holds frame loop settings.
type EngineConfig struct {
	TickRate   float64 `yaml:"tick_rate"`
	FrameLimit float64 `yaml:"frame_limit"` // 0 = uncapped
	Profiling  bool    `yaml:"profiling"`
	MaxFrames  int     `yaml:"max_frames"` // 0 = run until closed
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Asset: AssetConfig{
			Workers: 4,
			Timeout: 30 * time.Second,
		},
		Renderer: RendererConfig{
			Backend: BackendWGPU,
			VSync:   true,
		},
		Window: WindowConfig{
			Enabled: true,
			Title:   "oxy-gltf",
			Width:   1280,
			Height:  720,
		},
		Animation: AnimationConfig{
			Speed:   1.0,
			Workers: 4,
		},
		Engine: EngineConfig{
			TickRate: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window %dx%d: %w", c.Window.Width, c.Window.Height, errInvalidSize)
	}
	if c.Animation.Speed <= 0 {
		return fmt.Errorf("speed %v: %w", c.Animation.Speed, errInvalidSpeed)
	}
	switch c.Renderer.Backend {
	case BackendWGPU, BackendRecording:
	default:
		return fmt.Errorf("%q: %w", c.Renderer.Backend, errInvalidBackend)
	}
	if c.Asset.Workers < 1 || c.Animation.Workers < 1 {
		return errInvalidWorkers
	}
	if c.Engine.TickRate <= 0 {
		return errInvalidTickRate
	}
	return nil
}
