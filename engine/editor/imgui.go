package editor

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/inkyblackness/imgui-go/v4"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

// WindowSizer reports the window size in screen coordinates, the space
// mouse positions are reported in.
type WindowSizer interface {
	WindowSize() (uint32, uint32)
}

// ImguiEditor draws a dear imgui panel inside the main render pass through
// the Vulkan backend's overlay hook.
type ImguiEditor struct {
	backend *vulkan.VulkanBackend
	window  WindowSizer

	vertexCode   []byte
	fragmentCode []byte

	context  *imgui.Context
	io       imgui.IO
	overlay  *overlayRenderer
	inFrame  bool
	shutdown bool

	mouseX, mouseY   float64
	mouseDown        [3]bool
	mouseJustPressed [3]bool

	wantMouse    bool
	wantKeyboard bool
}

func NewImguiEditor(backend *vulkan.VulkanBackend, window WindowSizer, vertexCode, fragmentCode []byte) *ImguiEditor {
	return &ImguiEditor{
		backend:      backend,
		window:       window,
		vertexCode:   vertexCode,
		fragmentCode: fragmentCode,
	}
}

func (e *ImguiEditor) Init() error {
	e.context = imgui.CreateContext(nil)
	e.io = imgui.CurrentIO()
	e.io.SetIniFilename("")
	e.setKeyMapping()

	overlay, err := newOverlayRenderer(e.backend, e.io, e.vertexCode, e.fragmentCode)
	if err != nil {
		e.context.Destroy()
		e.context = nil
		return errors.Wrap(err, "creating editor overlay")
	}
	e.overlay = overlay
	e.backend.SetOverlay(overlay)
	core.LogInfo("imgui editor initialized (imgui %s)", imgui.Version())
	return nil
}

func (e *ImguiEditor) NewFrame(deltaTime float64) {
	if e.context == nil {
		return
	}
	if deltaTime <= 0 {
		deltaTime = 1.0 / 60.0
	}
	e.io.SetDeltaTime(float32(deltaTime))

	w, h := e.window.WindowSize()
	display := imgui.Vec2{X: float32(w), Y: float32(h)}
	e.io.SetDisplaySize(display)
	if e.overlay != nil {
		e.overlay.display = display
	}

	if w == 0 || h == 0 {
		e.io.SetMousePosition(imgui.Vec2{X: -math.MaxFloat32, Y: -math.MaxFloat32})
	} else {
		e.io.SetMousePosition(imgui.Vec2{X: float32(e.mouseX), Y: float32(e.mouseY)})
	}
	for i := range e.mouseDown {
		// a click shorter than a frame still registers
		e.io.SetMouseButtonDown(i, e.mouseDown[i] || e.mouseJustPressed[i])
		e.mouseJustPressed[i] = false
	}

	imgui.NewFrame()
	e.inFrame = true
}

func (e *ImguiEditor) Build(panel *Panel) {
	if !e.inFrame {
		return
	}
	buildPanel(panel)
	imgui.Render()
	e.inFrame = false

	e.wantMouse = e.io.WantCaptureMouse()
	e.wantKeyboard = e.io.WantCaptureKeyboard()
}

func (e *ImguiEditor) WantsInput() bool {
	return e.wantMouse || e.wantKeyboard
}

// Shutdown detaches the overlay and frees its GPU objects. The device must
// be idle.
func (e *ImguiEditor) Shutdown() error {
	if e.shutdown {
		return nil
	}
	e.shutdown = true
	if e.overlay != nil {
		e.backend.SetOverlay(nil)
		e.overlay.Destroy()
		e.overlay = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	return nil
}

func (e *ImguiEditor) KeyEvent(key glfw.Key, pressed bool, mods glfw.ModifierKey) {
	if e.context == nil {
		return
	}
	if pressed {
		e.io.KeyPress(int(key))
	} else {
		e.io.KeyRelease(int(key))
	}
	e.io.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
	e.io.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
	e.io.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
	e.io.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
}

func (e *ImguiEditor) CharEvent(char rune) {
	if e.context == nil {
		return
	}
	e.io.AddInputCharacters(string(char))
}

func (e *ImguiEditor) MouseButtonEvent(button int, pressed bool) {
	if button < 0 || button >= len(e.mouseDown) {
		return
	}
	e.mouseDown[button] = pressed
	if pressed {
		e.mouseJustPressed[button] = true
	}
}

func (e *ImguiEditor) MouseMoveEvent(x, y float64) {
	e.mouseX, e.mouseY = x, y
}

func (e *ImguiEditor) ScrollEvent(xoff, yoff float64) {
	if e.context == nil {
		return
	}
	e.io.AddMouseWheelDelta(float32(xoff), float32(yoff))
}

func (e *ImguiEditor) setKeyMapping() {
	// Keyboard mapping. ImGui will use those indices to peek into the io.KeysDown[] array.
	e.io.KeyMap(imgui.KeyTab, int(glfw.KeyTab))
	e.io.KeyMap(imgui.KeyLeftArrow, int(glfw.KeyLeft))
	e.io.KeyMap(imgui.KeyRightArrow, int(glfw.KeyRight))
	e.io.KeyMap(imgui.KeyUpArrow, int(glfw.KeyUp))
	e.io.KeyMap(imgui.KeyDownArrow, int(glfw.KeyDown))
	e.io.KeyMap(imgui.KeyPageUp, int(glfw.KeyPageUp))
	e.io.KeyMap(imgui.KeyPageDown, int(glfw.KeyPageDown))
	e.io.KeyMap(imgui.KeyHome, int(glfw.KeyHome))
	e.io.KeyMap(imgui.KeyEnd, int(glfw.KeyEnd))
	e.io.KeyMap(imgui.KeyInsert, int(glfw.KeyInsert))
	e.io.KeyMap(imgui.KeyDelete, int(glfw.KeyDelete))
	e.io.KeyMap(imgui.KeyBackspace, int(glfw.KeyBackspace))
	e.io.KeyMap(imgui.KeySpace, int(glfw.KeySpace))
	e.io.KeyMap(imgui.KeyEnter, int(glfw.KeyEnter))
	e.io.KeyMap(imgui.KeyEscape, int(glfw.KeyEscape))
	e.io.KeyMap(imgui.KeyA, int(glfw.KeyA))
	e.io.KeyMap(imgui.KeyC, int(glfw.KeyC))
	e.io.KeyMap(imgui.KeyV, int(glfw.KeyV))
	e.io.KeyMap(imgui.KeyX, int(glfw.KeyX))
	e.io.KeyMap(imgui.KeyY, int(glfw.KeyY))
	e.io.KeyMap(imgui.KeyZ, int(glfw.KeyZ))
}

func buildPanel(panel *Panel) {
	imgui.Begin("Render Properties")

	imgui.Text(fmt.Sprintf("%.1f FPS (%.3f ms)", panel.FPS, panel.FrameMS))
	imgui.Text(fmt.Sprintf("delta %.4f s", panel.Delta))
	imgui.Text(fmt.Sprintf("device: %s", panel.Device))
	imgui.Text(fmt.Sprintf("present mode: %s", panel.Present))
	imgui.Checkbox("VSYNC", &panel.VSync)

	if imgui.CollapsingHeader("Frames") {
		imgui.Text(fmt.Sprintf("frame %d, slot %d of %d", panel.Frames.FrameNumber, panel.Frames.CurrentSlot, panel.Frames.MaxFramesInFlight))
		imgui.Text(fmt.Sprintf("swapchain rebuilds %d", panel.Frames.Recreations))
		imgui.Text(fmt.Sprintf("skipped %d, dropped %d", panel.Frames.Skipped, panel.Frames.Dropped))
	}

	if imgui.CollapsingHeader("Camera") {
		imgui.DragFloat3("position", (*[3]float32)(&panel.CameraPosition))
		imgui.DragFloat2("pitch/yaw", (*[2]float32)(&panel.CameraPitchYaw))
		imgui.DragFloat3("velocity", (*[3]float32)(&panel.CameraVelocity))
	}

	if imgui.CollapsingHeader("Model") {
		imgui.Text(panel.MeshName)
		imgui.Text(fmt.Sprintf("%d vertices, %d indices, %d submeshes", panel.Vertices, panel.Indices, panel.SubMeshes))
		imgui.DragFloat3("rotation", (*[3]float32)(&panel.ModelRotation))
		imgui.DragFloat("scale", &panel.ModelScale)
	}

	imgui.End()
}
