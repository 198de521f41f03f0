package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// GameObject is the single drawable in the scene.
type GameObject struct {
	Name      string
	Transform *math.Transform
	// Spin is added to the rotation every second, in degrees.
	Spin mgl32.Vec3
}

func NewGameObject(name string) *GameObject {
	return &GameObject{
		Name:      name,
		Transform: math.TransformCreate(),
	}
}

// Update advances the object by deltaTime seconds.
func (g *GameObject) Update(deltaTime float64) {
	if g.Spin.Len() == 0 {
		return
	}
	g.Transform.Rotate(g.Spin.Mul(float32(deltaTime)))
}

func (g *GameObject) ModelMatrix() mgl32.Mat4 {
	return g.Transform.GetWorld()
}

// Scene is what the engine hands to the game callbacks.
type Scene struct {
	Object *GameObject
	Camera *components.Camera
	Mesh   *metadata.Mesh
	Events *core.EventBus
}

// Game holds the callbacks the engine drives. Any of them may be nil.
type Game struct {
	Name  string
	State interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(scene *Scene) error
type Update func(deltaTime float64, scene *Scene) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
