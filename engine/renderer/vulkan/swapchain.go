package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	emath "github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// VulkanSwapchain owns everything whose size follows the drawable extent.
type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D

	Images []vk.Image
	Views  []vk.ImageView

	DepthAttachment *VulkanImage
	Framebuffers    []*VulkanFramebuffer
}

type SwapchainConfig struct {
	DrawableWidth  uint32
	DrawableHeight uint32
	VSync          bool
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	support := &VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities); res != vk.Success {
		return nil, vulkanError(res, "failed to get surface capabilities")
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, vulkanError(res, "failed to get surface formats")
	}
	if formatCount > 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats); res != vk.Success {
			return nil, vulkanError(res, "failed to get surface formats")
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil); res != vk.Success {
		return nil, vulkanError(res, "failed to get surface present modes")
	}
	if modeCount > 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, support.PresentModes); res != vk.Success {
			return nil, vulkanError(res, "failed to get surface present modes")
		}
	}
	return support, nil
}

// ChooseSurfaceFormat prefers 8 bit BGRA sRGB with a non linear sRGB color
// space and falls back to the first reported format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return formats[0]
}

// ChoosePresentMode returns FIFO when vsync is on. Otherwise mailbox is used
// if available, then FIFO, which every device supports.
func ChoosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless the platform leaves
// it to the application, in which case the drawable size is clamped to the
// supported range. A zero result means the window is minimized.
func ChooseExtent(caps vk.SurfaceCapabilities, drawableWidth, drawableHeight uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	if drawableWidth == 0 || drawableHeight == 0 {
		return vk.Extent2D{}
	}
	return vk.Extent2D{
		Width:  emath.Clamp(drawableWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: emath.Clamp(drawableHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, capped by the
// maximum when the surface has one.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseSharingMode shares swapchain images concurrently only when graphics
// and present live on different families.
func ChooseSharingMode(graphicsFamily, presentFamily uint32) (vk.SharingMode, []uint32) {
	if graphicsFamily != presentFamily {
		return vk.SharingModeConcurrent, []uint32{graphicsFamily, presentFamily}
	}
	return vk.SharingModeExclusive, nil
}

// SwapchainCreate builds the swapchain, its image views and the depth
// attachment. Framebuffers are created separately once the render pass exists.
func SwapchainCreate(context *VulkanContext, config SwapchainConfig) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}

	extent := ChooseExtent(support.Capabilities, config.DrawableWidth, config.DrawableHeight)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, core.ErrSwapchainNotReady
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: ChooseSurfaceFormat(support.Formats),
		PresentMode: ChoosePresentMode(support.PresentModes, config.VSync),
		Extent:      extent,
	}
	imageCount := ChooseImageCount(support.Capabilities)
	core.LogInfo("Creating swapchain %dx%d with %d images (present mode %d).", extent.Width, extent.Height, imageCount, swapchain.PresentMode)

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	mode, families := ChooseSharingMode(context.Device.Graphics.FamilyIndex, context.Device.Present.FamilyIndex)
	info.ImageSharingMode = mode
	info.QueueFamilyIndexCount = uint32(len(families))
	info.PQueueFamilyIndices = families

	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &info, context.Allocator, &swapchain.Handle); res != vk.Success {
		return nil, vulkanError(res, "failed to create swapchain")
	}

	var count uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &count, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, vulkanError(res, "failed to get swapchain images")
	}
	swapchain.Images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &count, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, vulkanError(res, "failed to get swapchain images")
	}

	swapchain.Views = make([]vk.ImageView, 0, count)
	for _, image := range swapchain.Images {
		view, err := ImageViewCreate(context, image, swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	depth, err := ImageCreate(context, ImageCreateInfo{
		Width:       extent.Width,
		Height:      extent.Height,
		Format:      context.Device.DepthFormat,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView:  true,
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	if err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	swapchain.DepthAttachment = depth

	core.LogInfo("Swapchain created successfully.")
	return swapchain, nil
}

// CreateFramebuffers creates one framebuffer per swapchain image, each
// sharing the depth attachment.
func (vs *VulkanSwapchain) CreateFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, len(vs.Views))
	for _, view := range vs.Views {
		fb, err := FramebufferCreate(context, renderpass, vs.Extent.Width, vs.Extent.Height,
			[]vk.ImageView{view, vs.DepthAttachment.View})
		if err != nil {
			return err
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}
	return nil
}

// Destroy releases framebuffers, the depth attachment, views and the
// swapchain, in that order. Swapchain images belong to the swapchain.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, fb := range vs.Framebuffers {
		fb.Destroy(context)
	}
	vs.Framebuffers = nil

	if vs.DepthAttachment != nil {
		vs.DepthAttachment.Destroy(context)
		vs.DepthAttachment = nil
	}

	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

func (vs *VulkanSwapchain) AcquireNextImage(context *VulkanContext, timeoutNs uint64, imageAvailable vk.Semaphore) (uint32, metadata.AcquireStatus, error) {
	var index uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNs, imageAvailable, vk.NullFence, &index)
	switch result {
	case vk.Success:
		return index, metadata.AcquireSuccess, nil
	case vk.Suboptimal:
		return index, metadata.AcquireSuboptimal, nil
	case vk.ErrorOutOfDate:
		return 0, metadata.AcquireOutOfDate, nil
	}
	return 0, metadata.AcquireOutOfDate, vulkanError(result, "failed to acquire swapchain image")
}

func (vs *VulkanSwapchain) Present(context *VulkanContext, queue *VulkanQueue, renderComplete vk.Semaphore, imageIndex uint32) (metadata.PresentStatus, error) {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var result vk.Result
	err := context.Locks.SafeQueueCall(queue.FamilyIndex, func() error {
		result = vk.QueuePresent(queue.Handle, &info)
		return nil
	})
	if err != nil {
		return metadata.PresentOutOfDate, err
	}
	switch result {
	case vk.Success:
		return metadata.PresentSuccess, nil
	case vk.Suboptimal:
		return metadata.PresentSuboptimal, nil
	case vk.ErrorOutOfDate:
		return metadata.PresentOutOfDate, nil
	}
	return metadata.PresentOutOfDate, errors.WithStack(vulkanError(result, "failed to present swapchain image"))
}
