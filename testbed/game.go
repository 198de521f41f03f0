package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
)

type gameState struct {
	width  uint32
	height uint32

	elapsed    float64
	lastReport float64
	paused     bool
}

// NewTestGame returns the demo: the configured model turning slowly in front
// of the camera.
func NewTestGame() *engine.Game {
	state := &gameState{}
	return &engine.Game{
		Name:  "Ember Testbed",
		State: state,
		FnInitialize: func(scene *engine.Scene) error {
			return state.initialize(scene)
		},
		FnUpdate: func(deltaTime float64, scene *engine.Scene) error {
			return state.update(deltaTime, scene)
		},
		FnOnResize: func(width, height uint32) error {
			state.width, state.height = width, height
			return nil
		},
		FnShutdown: func() error {
			core.LogInfo("testbed ran for %.1fs (paused at exit: %t)", state.elapsed, state.paused)
			return nil
		},
	}
}

func (s *gameState) initialize(scene *engine.Scene) error {
	core.LogDebug("testbed initialize, mesh %q", scene.Mesh.Name)
	// OBJ exports of the room are z-up
	scene.Object.Transform.SetRotation(mgl32.Vec3{-90, 0, 0})
	scene.Object.Spin = mgl32.Vec3{0, 10, 0}

	scene.Events.Register(core.EVENT_CODE_ASSET_RELOADED, s, s.onEvent)
	scene.Events.Register(core.EVENT_CODE_SUSPENDED, s, s.onEvent)
	return nil
}

func (s *gameState) onEvent(code core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_ASSET_RELOADED:
		core.LogInfo("testbed sees %s reloaded", ctx.Data.S)
	case core.EVENT_CODE_SUSPENDED:
		s.paused = ctx.Data.B
	}
	return false
}

func (s *gameState) update(deltaTime float64, scene *engine.Scene) error {
	s.elapsed += deltaTime
	if s.elapsed-s.lastReport >= 5 {
		s.lastReport = s.elapsed
		pos := scene.Camera.Position
		core.LogDebug("camera at [%.2f, %.2f, %.2f] viewport %dx%d", pos.X(), pos.Y(), pos.Z(), s.width, s.height)
	}
	return nil
}
