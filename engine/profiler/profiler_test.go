package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfilerTick(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewProfiler(time.Hour, zap.New(core))

	assert.False(t, p.Tick())
	assert.Zero(t, logs.Len())

	p.updateInterval = 0
	p.lastTime = time.Now().Add(-time.Second)
	assert.True(t, p.Tick())
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "frame stats", logs.All()[0].Message)
	assert.Greater(t, p.Last().FPS, 0.0)
	assert.Greater(t, p.Last().SysMB, 0.0)
}

func TestNewProfilerDefaults(t *testing.T) {
	p := NewProfiler(0, nil)
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.log)
}
