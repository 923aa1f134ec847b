package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultLoggerIsSafe(t *testing.T) {
	require.NotNil(t, Log)
	require.NotNil(t, Sugar)
	assert.NotPanics(t, func() {
		Named("test").Warn("dropped", zap.String("k", "v"))
	})
}

func TestFileOutput(t *testing.T) {
	prev, prevSugar := Log, Sugar
	defer func() { Log, Sugar = prev, prevSugar }()

	logFile := filepath.Join(t.TempDir(), "viewer.log")
	cfg := FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}

	require.NoError(t, InitWithFileConfig("debug", cfg, false))
	Named("skin").Warn("unresolved joint", zap.String("joint", "Bone_07"))
	Log.Debug("debug line")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "unresolved joint"))
	assert.True(t, strings.Contains(out, "skin"))
	assert.True(t, strings.Contains(out, "Bone_07"))
	assert.True(t, strings.Contains(out, "debug line"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}
