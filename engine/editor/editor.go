package editor

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// Panel is what the editor shows and edits. The engine fills it before
// Build and reads the edited fields back afterwards.
type Panel struct {
	FPS       float64
	FrameMS   float64
	Delta     float64
	Frames    renderer.FrameStats
	Present   string
	Device    string
	MeshName  string
	Vertices  int
	Indices   int
	SubMeshes int

	VSync bool

	CameraPosition mgl32.Vec3
	CameraPitchYaw mgl32.Vec2
	CameraVelocity mgl32.Vec3

	ModelRotation mgl32.Vec3
	ModelScale    float32
}

// Editor is an optional UI layered over the scene. The renderer works the
// same without one.
type Editor interface {
	Init() error
	NewFrame(deltaTime float64)
	// Build lays out the UI for the frame and may change panel fields.
	Build(panel *Panel)
	// WantsInput reports whether the UI is using keyboard or mouse input
	// this frame.
	WantsInput() bool
	Shutdown() error
}

// NopEditor is used when the editor is disabled.
type NopEditor struct{}

func (NopEditor) Init() error      { return nil }
func (NopEditor) NewFrame(float64) {}
func (NopEditor) Build(*Panel)     {}
func (NopEditor) WantsInput() bool { return false }
func (NopEditor) Shutdown() error  { return nil }
