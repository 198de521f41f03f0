package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestSamplerInfoDefaultMap(t *testing.T) {
	info := samplerInfo(metadata.DefaultTextureMap(), true, 16)
	assert.Equal(t, vk.FilterLinear, info.MagFilter)
	assert.Equal(t, vk.SamplerAddressModeRepeat, info.AddressModeU)
	assert.Equal(t, vk.Bool32(vk.True), info.AnisotropyEnable)
	assert.Equal(t, float32(16), info.MaxAnisotropy)

	// the feature is optional on the device
	info = samplerInfo(metadata.DefaultTextureMap(), false, 16)
	assert.Equal(t, vk.Bool32(vk.False), info.AnisotropyEnable)
	assert.Equal(t, float32(1), info.MaxAnisotropy)
}

func TestSamplerInfoClampedMap(t *testing.T) {
	texMap := metadata.ClampedTextureMap()
	texMap.FilterMinify = metadata.TextureFilterModeNearest
	texMap.RepeatW = metadata.TextureRepeatMirroredRepeat

	info := samplerInfo(texMap, true, 16)
	assert.Equal(t, vk.FilterNearest, info.MinFilter)
	assert.Equal(t, vk.FilterLinear, info.MagFilter)
	assert.Equal(t, vk.SamplerAddressModeClampToEdge, info.AddressModeU)
	assert.Equal(t, vk.SamplerAddressModeMirroredRepeat, info.AddressModeW)
	assert.Equal(t, vk.Bool32(vk.False), info.AnisotropyEnable)
}

func TestCullModeFlags(t *testing.T) {
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), cullModeFlags(metadata.FaceCullModeBack))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), cullModeFlags(metadata.FaceCullModeNone))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontAndBack), cullModeFlags(metadata.FaceCullModeFrontAndBack))
}
