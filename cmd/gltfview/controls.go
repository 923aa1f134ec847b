package main

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"go.uber.org/zap"
)

const controlsHelp = "controls: space pause | n next clip | r reset | +/- speed | arrows or drag orbit | scroll zoom | esc quit"

const (
	speedStep     = 1.25
	minSpeed      = 1.0 / 16
	maxSpeed      = 16
	dragRadiansPx = 0.005
)

// controls maps window input onto a scene's animator and camera.
type controls struct {
	scene scene.Scene
	quit  func()
	log   *zap.Logger
}

func newControls(s scene.Scene, quit func(), log *zap.Logger) *controls {
	return &controls{scene: s, quit: quit, log: log}
}

func (c *controls) keyDown(key uint32) {
	switch key {
	case common.KeyEsc:
		c.quit()
		return
	case common.KeyR:
		c.scene.Reset()
		c.log.Info("reset")
		return
	case common.KeyLeft, common.KeyRight, common.KeyUp, common.KeyDown:
		c.orbitKey(key)
		return
	}

	anim := c.scene.Animator()
	if anim == nil {
		return
	}
	switch key {
	case common.KeySpace:
		anim.Toggle()
		c.log.Info("playback", zap.Bool("playing", anim.Playing()))
	case common.KeyN:
		name := anim.NextClip()
		if name == "" {
			name = "(all)"
		}
		c.log.Info("clip", zap.String("clip", name))
	case common.KeyEqual, common.KeyKPAdd:
		c.setSpeed(anim.Speed() * speedStep)
	case common.KeyMinus, common.KeyKPSubtract:
		c.setSpeed(anim.Speed() / speedStep)
	}
}

func (c *controls) setSpeed(speed float32) {
	speed = min(max(speed, minSpeed), maxSpeed)
	c.scene.Animator().SetSpeed(speed)
	c.log.Info("speed", zap.Float32("speed", speed))
}

func (c *controls) orbitKey(key uint32) {
	cam := c.scene.Camera()
	ctrl := cam.Controller()
	if ctrl == nil {
		return
	}
	switch key {
	case common.KeyLeft:
		ctrl.OrbitLeft()
	case common.KeyRight:
		ctrl.OrbitRight()
	case common.KeyUp:
		ctrl.OrbitUp()
	case common.KeyDown:
		ctrl.OrbitDown()
	}
	cam.Update()
}

func (c *controls) scroll(delta float32) {
	cam := c.scene.Camera()
	if ctrl := cam.Controller(); ctrl != nil {
		ctrl.Zoom(delta)
		cam.Update()
	}
}

func (c *controls) drag(dx, dy float32) {
	cam := c.scene.Camera()
	if ctrl := cam.Controller(); ctrl != nil {
		ctrl.Orbit(-dx*dragRadiansPx, dy*dragRadiansPx)
		cam.Update()
	}
}
