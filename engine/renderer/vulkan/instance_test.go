package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestInstanceExtensions(t *testing.T) {
	config := InstanceConfig{RequiredExtensions: []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}}

	linux := InstanceExtensions(config, "linux")
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, linux)

	config.Validation = true
	darwin := InstanceExtensions(config, "darwin")
	assert.Contains(t, darwin, "VK_KHR_portability_enumeration")
	assert.Contains(t, darwin, vk.ExtDebugReportExtensionName)
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", VulkanResultString(vk.ErrorOutOfDate))
	assert.Equal(t, "VK_SUBOPTIMAL_KHR", VulkanResultString(vk.Suboptimal))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "abc", cString([]byte{'a', 'b', 'c', 0, 'x'}))
}
