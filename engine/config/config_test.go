package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BackendWGPU, cfg.Renderer.Backend)
	assert.True(t, cfg.Window.Enabled)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, float32(1.0), cfg.Animation.Speed)
	assert.False(t, cfg.Animation.ParallelSkinning)
	assert.Equal(t, 4, cfg.Asset.Workers)
	assert.Equal(t, 30*time.Second, cfg.Asset.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
asset:
  document: models/rigged.gltf
renderer:
  backend: recording
animation:
  clip: walk
  parallel_skinning: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))

	assert.Equal(t, "models/rigged.gltf", cfg.Asset.Document)
	assert.Equal(t, BackendRecording, cfg.Renderer.Backend)
	assert.Equal(t, "walk", cfg.Animation.Clip)
	assert.True(t, cfg.Animation.ParallelSkinning)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched keys keep their defaults
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, float32(1.0), cfg.Animation.Speed)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMissing(t *testing.T) {
	err := LoadFile(Default(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Animation.Clip = "idle"
	cfg.Engine.MaxFrames = 120

	require.NoError(t, Save(cfg, path))

	loaded := Default()
	require.NoError(t, LoadFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }, errInvalidSize},
		{"negative speed", func(c *Config) { c.Animation.Speed = -1 }, errInvalidSpeed},
		{"bad backend", func(c *Config) { c.Renderer.Backend = "vulkan" }, errInvalidBackend},
		{"no workers", func(c *Config) { c.Asset.Workers = 0 }, errInvalidWorkers},
		{"zero tick rate", func(c *Config) { c.Engine.TickRate = 0 }, errInvalidTickRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
