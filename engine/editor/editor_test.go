package editor

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/inkyblackness/imgui-go/v4"
	"github.com/stretchr/testify/assert"
)

func TestNopEditor(t *testing.T) {
	var e Editor = NopEditor{}
	assert.NoError(t, e.Init())
	e.NewFrame(0.016)
	panel := &Panel{VSync: true}
	e.Build(panel)
	assert.True(t, panel.VSync)
	assert.False(t, e.WantsInput())
	assert.NoError(t, e.Shutdown())
}

func TestOverlayTransform(t *testing.T) {
	pc := overlayTransform(800, 600)
	// top left maps to (-1, -1), bottom right to (1, 1)
	assert.InDelta(t, -1.0, 0*pc.Scale[0]+pc.Translate[0], 1e-6)
	assert.InDelta(t, 1.0, 800*pc.Scale[0]+pc.Translate[0], 1e-6)
	assert.InDelta(t, 1.0, 600*pc.Scale[1]+pc.Translate[1], 1e-6)
}

func TestClipToScissor(t *testing.T) {
	extent := vk.Extent2D{Width: 1600, Height: 1200}
	scale := [2]float32{2, 2}

	r, ok := clipToScissor(imgui.Vec4{X: 10, Y: 20, Z: 110, W: 70}, scale, extent)
	assert.True(t, ok)
	assert.Equal(t, vk.Offset2D{X: 20, Y: 40}, r.Offset)
	assert.Equal(t, vk.Extent2D{Width: 200, Height: 100}, r.Extent)

	r, ok = clipToScissor(imgui.Vec4{X: -50, Y: -50, Z: 2000, W: 2000}, scale, extent)
	assert.True(t, ok)
	assert.Equal(t, vk.Offset2D{}, r.Offset)
	assert.Equal(t, extent, r.Extent)

	_, ok = clipToScissor(imgui.Vec4{X: 900, Y: 10, Z: 1000, W: 20}, scale, extent)
	assert.False(t, ok)
}
