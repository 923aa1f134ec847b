package main

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func builtScene(t *testing.T) scene.Scene {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording)
	require.NoError(t, err)

	doc := &loader.GLTFDocument{
		Asset:  loader.GLTFAsset{Version: "1.0"},
		Scenes: map[string]loader.GLTFScene{"main": {Nodes: []string{"root"}}},
		Nodes:  map[string]loader.GLTFNode{"root": {}},
	}
	m, err := loader.NewLoader(loader.BackendTypeGLTF).OpenDocument("controls", doc, "")
	require.NoError(t, err)
	<-m.Resolved()

	s, err := scene.NewScene("controls", m, r)
	require.NoError(t, err)
	require.NoError(t, s.Build())
	return s
}

func TestControlsPlayback(t *testing.T) {
	s := builtScene(t)
	c := newControls(s, func() {}, zap.NewNop())
	anim := s.Animator()

	c.keyDown(common.KeySpace)
	assert.False(t, anim.Playing())
	c.keyDown(common.KeySpace)
	assert.True(t, anim.Playing())

	c.keyDown(common.KeyEqual)
	assert.InDelta(t, 1.25, anim.Speed(), 1e-6)
	c.keyDown(common.KeyKPSubtract)
	c.keyDown(common.KeyMinus)
	assert.InDelta(t, 0.8, anim.Speed(), 1e-6)

	for range 40 {
		c.keyDown(common.KeyMinus)
	}
	assert.InDelta(t, 1.0/16, anim.Speed(), 1e-6)

	c.keyDown(common.KeyN)
	assert.Equal(t, "", anim.Selected(), "no clips to cycle through")
}

func TestControlsCamera(t *testing.T) {
	s := builtScene(t)
	c := newControls(s, func() {}, zap.NewNop())
	ctrl := s.Camera().Controller()
	az, el, radius := ctrl.Azimuth(), ctrl.Elevation(), ctrl.Radius()

	c.keyDown(common.KeyRight)
	assert.Greater(t, ctrl.Azimuth(), az)
	c.keyDown(common.KeyUp)
	assert.Greater(t, ctrl.Elevation(), el)

	c.drag(100, 0)
	assert.InDelta(t, az+0.03-0.5, ctrl.Azimuth(), 1e-5)

	view := s.Camera().View()
	c.scroll(1)
	assert.Less(t, ctrl.Radius(), radius)
	assert.NotEqual(t, view, s.Camera().View(), "camera matrices follow the controller")

	c.keyDown(common.KeyR)
	assert.InDelta(t, az, ctrl.Azimuth(), 1e-6)
	assert.InDelta(t, radius, ctrl.Radius(), 1e-6)
}

func TestControlsQuit(t *testing.T) {
	quit := 0
	c := newControls(builtScene(t), func() { quit++ }, zap.NewNop())
	c.keyDown(common.KeyEsc)
	assert.Equal(t, 1, quit)
}
