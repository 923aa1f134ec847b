package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging and profiling")
	flagDocument  = flag.String("gltf", "", "Path to the glTF 1.0 document to view")
	flagHeadless  = flag.Bool("headless", false, "Run without a window on the recording backend")
	flagClip      = flag.String("clip", "", "Play only the named animation clip")
	flagSpeed     = flag.Float64("speed", 0, "Animation playback speed multiplier")
	flagFrames    = flag.Int("frames", 0, "Exit after rendering this many frames")
	flagParallel  = flag.Bool("parallel-skinning", false, "Refresh bone textures on the worker pool")
	flagLogFile   = flag.String("log-file", "", "Write logs to this file as well")
	flagWidth     = flag.Int("width", 0, "Window width")
	flagHeight    = flag.Int("height", 0, "Window height")
	flagSoftware  = flag.Bool("software", false, "Force the software fallback adapter")
	flagNoVSync   = flag.Bool("no-vsync", false, "Present frames without waiting for vblank")
	flagFrameRate = flag.Float64("fps", 0, "Cap the render loop at this many frames per second")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Engine.Profiling = true
	}
	if *flagDocument != "" {
		cfg.Asset.Document = *flagDocument
	}
	if *flagHeadless {
		cfg.Window.Enabled = false
		cfg.Renderer.Backend = BackendRecording
	}
	if *flagClip != "" {
		cfg.Animation.Clip = *flagClip
	}
	if *flagSpeed > 0 {
		cfg.Animation.Speed = float32(*flagSpeed)
	}
	if *flagFrames > 0 {
		cfg.Engine.MaxFrames = *flagFrames
	}
	if *flagParallel {
		cfg.Animation.ParallelSkinning = true
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagSoftware {
		cfg.Renderer.ForceSoftware = true
	}
	if *flagNoVSync {
		cfg.Renderer.VSync = false
	}
	if *flagFrameRate > 0 {
		cfg.Engine.FrameLimit = *flagFrameRate
	}
}
