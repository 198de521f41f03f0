package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, core.KEY_A, TranslateKey(glfw.KeyA))
	assert.Equal(t, core.KEY_W, TranslateKey(glfw.KeyW))
	assert.Equal(t, core.KEY_Z, TranslateKey(glfw.KeyZ))
	assert.Equal(t, core.KEY_F1, TranslateKey(glfw.KeyF1))
	assert.Equal(t, core.KEY_F12, TranslateKey(glfw.KeyF12))
	assert.Equal(t, core.KEY_ESCAPE, TranslateKey(glfw.KeyEscape))
	assert.Equal(t, core.KEY_SPACE, TranslateKey(glfw.KeySpace))
	assert.Equal(t, core.KEY_LSHIFT, TranslateKey(glfw.KeyLeftShift))
	assert.Equal(t, core.KEY_UNKNOWN, TranslateKey(glfw.KeyKPEnter))
}
