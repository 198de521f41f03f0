package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN   KeyCode = 0x00
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_CONTROL   KeyCode = 0x11
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_DELETE    KeyCode = 0x2E
	KEY_A         KeyCode = 0x41
	KEY_B         KeyCode = 0x42
	KEY_C         KeyCode = 0x43
	KEY_D         KeyCode = 0x44
	KEY_E         KeyCode = 0x45
	KEY_F         KeyCode = 0x46
	KEY_G         KeyCode = 0x47
	KEY_H         KeyCode = 0x48
	KEY_I         KeyCode = 0x49
	KEY_J         KeyCode = 0x4A
	KEY_K         KeyCode = 0x4B
	KEY_L         KeyCode = 0x4C
	KEY_M         KeyCode = 0x4D
	KEY_N         KeyCode = 0x4E
	KEY_O         KeyCode = 0x4F
	KEY_P         KeyCode = 0x50
	KEY_Q         KeyCode = 0x51
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_T         KeyCode = 0x54
	KEY_U         KeyCode = 0x55
	KEY_V         KeyCode = 0x56
	KEY_W         KeyCode = 0x57
	KEY_X         KeyCode = 0x58
	KEY_Y         KeyCode = 0x59
	KEY_Z         KeyCode = 0x5A
	KEY_F1        KeyCode = 0x70
	KEY_F2        KeyCode = 0x71
	KEY_F3        KeyCode = 0x72
	KEY_F4        KeyCode = 0x73
	KEY_F5        KeyCode = 0x74
	KEY_F6        KeyCode = 0x75
	KEY_F7        KeyCode = 0x76
	KEY_F8        KeyCode = 0x77
	KEY_F9        KeyCode = 0x78
	KEY_F10       KeyCode = 0x79
	KEY_F11       KeyCode = 0x7A
	KEY_F12       KeyCode = 0x7B
	KEY_LSHIFT    KeyCode = 0xA0
	KEY_RSHIFT    KeyCode = 0xA1
	KEY_LCONTROL  KeyCode = 0xA2
	KEY_RCONTROL  KeyCode = 0xA3
	KEY_LALT      KeyCode = 0xA4
	KEY_RALT      KeyCode = 0xA5

	KEYS_MAX_KEYS KeyCode = 0xFF
)

// Mouse state structure
type MouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input holds the current and previous keyboard/mouse states. The window
// feeds it from its callbacks and the engine flips it once per tick.
type Input struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState

	scroll   float64
	captured bool
	primed   bool
}

func NewInput() *Input {
	return &Input{}
}

// Update copies current states to previous states. Call after the tick has
// consumed the input.
func (i *Input) Update() {
	i.KeyboardPrevious = i.KeyboardCurrent
	i.MousePrevious = i.MouseCurrent
	i.scroll = 0
}

func (i *Input) IsKeyDown(key KeyCode) bool {
	return i.KeyboardCurrent.Keys[key]
}

func (i *Input) IsKeyUp(key KeyCode) bool {
	return !i.KeyboardCurrent.Keys[key]
}

func (i *Input) WasKeyDown(key KeyCode) bool {
	return i.KeyboardPrevious.Keys[key]
}

// KeyPressed reports a key that went down during this tick.
func (i *Input) KeyPressed(key KeyCode) bool {
	return i.IsKeyDown(key) && !i.WasKeyDown(key)
}

func (i *Input) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	i.KeyboardCurrent.Keys[key] = pressed
}

func (i *Input) IsButtonDown(button Button) bool {
	return i.MouseCurrent.Buttons[button]
}

func (i *Input) ProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	i.MouseCurrent.Buttons[button] = pressed
}

func (i *Input) ProcessMouseMove(x, y float64) {
	i.MouseCurrent.X = x
	i.MouseCurrent.Y = y
	if !i.primed {
		// first sample, no delta to report
		i.MousePrevious.X = x
		i.MousePrevious.Y = y
		i.primed = true
	}
}

func (i *Input) ProcessMouseWheel(delta float64) {
	i.scroll += delta
}

func (i *Input) MousePosition() (float64, float64) {
	return i.MouseCurrent.X, i.MouseCurrent.Y
}

// MouseDelta is the cursor movement since the previous Update.
func (i *Input) MouseDelta() (float64, float64) {
	return i.MouseCurrent.X - i.MousePrevious.X, i.MouseCurrent.Y - i.MousePrevious.Y
}

func (i *Input) Scroll() float64 {
	return i.scroll
}

// SetMouseCaptured records whether the cursor is locked to the window.
func (i *Input) SetMouseCaptured(captured bool) {
	i.captured = captured
	i.primed = false
}

func (i *Input) MouseCaptured() bool {
	return i.captured
}
