package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	graphicsBit = vk.QueueFlags(vk.QueueGraphicsBit)
	computeBit  = vk.QueueFlags(vk.QueueComputeBit)
	transferBit = vk.QueueFlags(vk.QueueTransferBit)
)

func TestFindQueueFamiliesPrefersDedicatedTransfer(t *testing.T) {
	families := []QueueFamilyInfo{
		{Flags: graphicsBit | computeBit | transferBit, QueueCount: 16, PresentSupport: true},
		{Flags: computeBit | transferBit, QueueCount: 2},
		{Flags: transferBit, QueueCount: 1},
	}
	indices := FindQueueFamilies(families)

	assert.True(t, indices.IsComplete())
	assert.Equal(t, int32(0), indices.Graphics)
	assert.Equal(t, int32(0), indices.Present)
	assert.Equal(t, int32(2), indices.Transfer)
	assert.True(t, indices.DedicatedTransfer)
	assert.Equal(t, []uint32{0, 2}, indices.UniqueFamilies())
}

func TestFindQueueFamiliesFallsBackToGraphics(t *testing.T) {
	families := []QueueFamilyInfo{
		{Flags: graphicsBit | transferBit, QueueCount: 1},
		{Flags: computeBit | transferBit, QueueCount: 1, PresentSupport: true},
	}
	indices := FindQueueFamilies(families)

	assert.True(t, indices.IsComplete())
	assert.Equal(t, int32(0), indices.Graphics)
	assert.Equal(t, int32(1), indices.Present)
	assert.Equal(t, indices.Graphics, indices.Transfer)
	assert.False(t, indices.DedicatedTransfer)
	assert.Equal(t, []uint32{0, 1}, indices.UniqueFamilies())
}

func TestFindQueueFamiliesSkipsEmptyFamilies(t *testing.T) {
	families := []QueueFamilyInfo{
		{Flags: graphicsBit, QueueCount: 0, PresentSupport: true},
		{Flags: transferBit, QueueCount: 0},
	}
	indices := FindQueueFamilies(families)
	assert.False(t, indices.IsComplete())
	assert.Equal(t, int32(-1), indices.Graphics)
	assert.Equal(t, int32(-1), indices.Transfer)
	assert.Empty(t, indices.UniqueFamilies())
}

func suitableCandidate(name string) DeviceCandidate {
	return DeviceCandidate{
		Name:             name,
		Families:         []QueueFamilyInfo{{Flags: graphicsBit | transferBit, QueueCount: 1, PresentSupport: true}},
		Extensions:       []string{vk.KhrSwapchainExtensionName},
		FormatCount:      2,
		PresentModeCount: 1,
	}
}

func TestSelectFirstSuitableTakesTheFirstMatch(t *testing.T) {
	noPresent := suitableCandidate("no-present")
	noPresent.Families[0].PresentSupport = false

	noSwapchain := suitableCandidate("no-swapchain")
	noSwapchain.Extensions = nil

	noModes := suitableCandidate("no-modes")
	noModes.PresentModeCount = 0

	candidates := []DeviceCandidate{noPresent, noSwapchain, noModes, suitableCandidate("first"), suitableCandidate("second")}
	req := VulkanPhysicalDeviceRequirements{DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName}}

	idx, indices, err := SelectFirstSuitable(candidates, req)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	assert.Equal(t, int32(0), indices.Graphics)
}

func TestSelectFirstSuitableRequiresAnisotropyOnlyWhenAsked(t *testing.T) {
	c := suitableCandidate("gpu")
	_, err := c.MeetsRequirements(VulkanPhysicalDeviceRequirements{SamplerAnisotropy: true})
	assert.Error(t, err)
	_, err = c.MeetsRequirements(VulkanPhysicalDeviceRequirements{})
	assert.NoError(t, err)
}

func TestSelectFirstSuitableWithoutMatchIsFatal(t *testing.T) {
	c := suitableCandidate("headless")
	c.FormatCount = 0

	idx, _, err := SelectFirstSuitable([]DeviceCandidate{c}, VulkanPhysicalDeviceRequirements{})
	require.Error(t, err)
	assert.Equal(t, -1, idx)
	assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))
	assert.True(t, core.IsFatal(err))
}

func TestChooseDepthFormatOrder(t *testing.T) {
	attachment := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	supported := map[vk.Format]vk.FormatFeatureFlags{
		vk.FormatD24UnormS8Uint: attachment,
		vk.FormatD32Sfloat:      attachment,
	}
	format, ok := ChooseDepthFormat(DepthFormatCandidates, func(f vk.Format) vk.FormatFeatureFlags { return supported[f] })
	require.True(t, ok)
	assert.Equal(t, vk.FormatD24UnormS8Uint, format)
	assert.True(t, HasStencilComponent(format))

	_, ok = ChooseDepthFormat(DepthFormatCandidates, func(vk.Format) vk.FormatFeatureFlags { return 0 })
	assert.False(t, ok)
}

func TestDeviceDestroyPartialDevice(t *testing.T) {
	context := &VulkanContext{Device: &VulkanDevice{}}
	assert.NotPanics(t, func() { DeviceDestroy(context) })
	assert.Nil(t, context.Device)

	// a second call after teardown is a no-op
	assert.NotPanics(t, func() { DeviceDestroy(context) })
}
