package platform

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// InputSink receives raw window input before the engine's input state does.
// When WantsInput reports true the engine does not see keyboard and mouse
// events.
type InputSink interface {
	WantsInput() bool
	KeyEvent(key glfw.Key, pressed bool, mods glfw.ModifierKey)
	CharEvent(char rune)
	MouseButtonEvent(button int, pressed bool)
	MouseMoveEvent(x, y float64)
	ScrollEvent(xoff, yoff float64)
}

type WindowConfig struct {
	Title  string
	Width  uint32
	Height uint32
}

// Window is the GLFW window the renderer draws into.
type Window struct {
	handle *glfw.Window
	input  *core.Input
	sink   InputSink

	resizeRequested bool
	closeRequested  bool
}

func NewWindow(config WindowConfig, input *core.Input) (*Window, error) {
	if err := glfw.Init(); err != nil {
		err = errors.Wrap(err, "failed to initialize glfw")
		core.LogError(err.Error())
		return nil, err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := errors.New("glfw reports no Vulkan loader")
		core.LogError(err.Error())
		return nil, err
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	glfw.WindowHint(glfw.Resizable, glfw.True)

	handle, err := glfw.CreateWindow(int(config.Width), int(config.Height), config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		err = errors.Wrap(err, "failed to create window")
		core.LogError(err.Error())
		return nil, err
	}

	w := &Window{
		handle: handle,
		input:  input,
	}
	handle.SetKeyCallback(w.keyCallback)
	handle.SetCharCallback(w.charCallback)
	handle.SetMouseButtonCallback(w.mouseButtonCallback)
	handle.SetCursorPosCallback(w.cursorPosCallback)
	handle.SetScrollCallback(w.scrollCallback)
	handle.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	handle.SetCloseCallback(func(*glfw.Window) { w.closeRequested = true })

	fw, fh := handle.GetFramebufferSize()
	core.LogInfo("window created: %dx%d (framebuffer %dx%d)", config.Width, config.Height, fw, fh)
	return w, nil
}

// SetInputSink routes raw input to the sink first, e.g. the editor.
func (w *Window) SetInputSink(sink InputSink) {
	w.sink = sink
}

// PollEvents processes pending window events.
func (w *Window) PollEvents() (closeRequested, resizeRequested bool) {
	glfw.PollEvents()
	if w.handle.ShouldClose() {
		w.closeRequested = true
	}
	return w.closeRequested, w.resizeRequested
}

// WaitEvents blocks up to timeout seconds, used while minimized.
func (w *Window) WaitEvents(timeout float64) {
	glfw.WaitEventsTimeout(timeout)
}

func (w *Window) RequestClose() {
	w.closeRequested = true
	w.handle.SetShouldClose(true)
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "failed to create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// DrawableSize is the framebuffer size in pixels.
func (w *Window) DrawableSize() (uint32, uint32) {
	width, height := w.handle.GetFramebufferSize()
	if width < 0 || height < 0 {
		return 0, 0
	}
	return uint32(width), uint32(height)
}

// WindowSize is the size in screen coordinates, which differs from the
// drawable size on high DPI displays.
func (w *Window) WindowSize() (uint32, uint32) {
	width, height := w.handle.GetSize()
	return uint32(width), uint32(height)
}

func (w *Window) ResizeRequested() bool {
	return w.resizeRequested
}

func (w *Window) ResizeHandled() {
	w.resizeRequested = false
}

func (w *Window) SetMouseCaptured(captured bool) {
	if captured {
		w.handle.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.handle.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	w.input.SetMouseCaptured(captured)
}

func (w *Window) CursorPosition() (float64, float64) {
	return w.handle.GetCursorPos()
}

func (w *Window) Destroy() {
	if w.handle != nil {
		w.handle.Destroy()
		w.handle = nil
	}
	glfw.Terminate()
}

func (w *Window) sinkWantsInput() bool {
	return w.sink != nil && w.sink.WantsInput() && !w.input.MouseCaptured()
}

func (w *Window) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	pressed := action == glfw.Press

	// Tab always reaches the window so the cursor can be released
	if key == glfw.KeyTab && pressed {
		w.SetMouseCaptured(!w.input.MouseCaptured())
		return
	}

	if w.sink != nil {
		w.sink.KeyEvent(key, pressed, mods)
	}
	if w.sinkWantsInput() && pressed {
		return
	}
	w.input.ProcessKey(TranslateKey(key), pressed)
}

func (w *Window) charCallback(_ *glfw.Window, char rune) {
	if w.sink != nil {
		w.sink.CharEvent(char)
	}
}

func (w *Window) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	pressed := action == glfw.Press
	if w.sink != nil {
		w.sink.MouseButtonEvent(int(button), pressed)
	}
	if w.sinkWantsInput() && pressed {
		return
	}
	switch button {
	case glfw.MouseButtonLeft:
		w.input.ProcessButton(core.BUTTON_LEFT, pressed)
	case glfw.MouseButtonRight:
		w.input.ProcessButton(core.BUTTON_RIGHT, pressed)
	case glfw.MouseButtonMiddle:
		w.input.ProcessButton(core.BUTTON_MIDDLE, pressed)
	}
}

func (w *Window) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	if w.sink != nil {
		w.sink.MouseMoveEvent(xpos, ypos)
	}
	w.input.ProcessMouseMove(xpos, ypos)
}

func (w *Window) scrollCallback(_ *glfw.Window, xoff, yoff float64) {
	if w.sink != nil {
		w.sink.ScrollEvent(xoff, yoff)
	}
	if w.sinkWantsInput() {
		return
	}
	w.input.ProcessMouseWheel(yoff)
}

// framebufferSizeCallback also fires with 0x0 when the window is minimized.
func (w *Window) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	core.LogDebug("framebuffer resized to %dx%d", width, height)
	w.resizeRequested = true
}

var namedKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyBackspace:    core.KEY_BACKSPACE,
	glfw.KeyTab:          core.KEY_TAB,
	glfw.KeyEnter:        core.KEY_ENTER,
	glfw.KeyEscape:       core.KEY_ESCAPE,
	glfw.KeySpace:        core.KEY_SPACE,
	glfw.KeyLeft:         core.KEY_LEFT,
	glfw.KeyUp:           core.KEY_UP,
	glfw.KeyRight:        core.KEY_RIGHT,
	glfw.KeyDown:         core.KEY_DOWN,
	glfw.KeyDelete:       core.KEY_DELETE,
	glfw.KeyLeftShift:    core.KEY_LSHIFT,
	glfw.KeyRightShift:   core.KEY_RSHIFT,
	glfw.KeyLeftControl:  core.KEY_LCONTROL,
	glfw.KeyRightControl: core.KEY_RCONTROL,
	glfw.KeyLeftAlt:      core.KEY_LALT,
	glfw.KeyRightAlt:     core.KEY_RALT,
}

// TranslateKey maps a GLFW key to the engine key code.
func TranslateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KEY_A + core.KeyCode(key-glfw.KeyA)
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1)
	}
	if code, ok := namedKeys[key]; ok {
		return code
	}
	return core.KEY_UNKNOWN
}
