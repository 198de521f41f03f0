package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

// ImageCreateInfo describes a single mip, single layer 2D image.
type ImageCreateInfo struct {
	Width, Height uint32
	Format        vk.Format
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
	MemoryFlags   vk.MemoryPropertyFlags
	// Families with more than one entry selects concurrent sharing.
	Families []uint32
	// CreateView also creates a view with ViewAspect.
	CreateView bool
	ViewAspect vk.ImageAspectFlags
}

func ImageCreate(context *VulkanContext, ci ImageCreateInfo) (*VulkanImage, error) {
	image := &VulkanImage{
		Format: ci.Format,
		Width:  ci.Width,
		Height: ci.Height,
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  ci.Width,
			Height: ci.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        ci.Format,
		Tiling:        ci.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         ci.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if len(ci.Families) > 1 {
		info.SharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = uint32(len(ci.Families))
		info.PQueueFamilyIndices = ci.Families
	}

	if res := vk.CreateImage(context.Device.LogicalDevice, &info, context.Allocator, &image.Handle); res != vk.Success {
		return nil, vulkanError(res, "failed to create %dx%d image", ci.Width, ci.Height)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, ci.MemoryFlags)
	if memoryType == -1 {
		core.LogError("Required memory type not found. Image not valid.")
		image.Destroy(context)
		return nil, vulkanError(vk.ErrorOutOfDeviceMemory, "no memory type for image")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &image.Memory); res != vk.Success {
		image.Destroy(context)
		return nil, vulkanError(res, "failed to allocate image memory")
	}
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.Destroy(context)
		return nil, vulkanError(res, "failed to bind image memory")
	}

	if ci.CreateView {
		view, err := ImageViewCreate(context, image.Handle, ci.Format, ci.ViewAspect)
		if err != nil {
			image.Destroy(context)
			return nil, err
		}
		image.View = view
	}
	return image, nil
}

func ImageViewCreate(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &info, context.Allocator, &view); res != vk.Success {
		return vk.NullImageView, vulkanError(res, "failed to create image view")
	}
	return view, nil
}

// CopyFromBuffer records a tightly packed buffer to image copy. The image must
// be in TransferDstOptimal.
func (vi *VulkanImage) CopyFromBuffer(cmd *VulkanCommandBuffer, buffer *VulkanBuffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: vi.Width, Height: vi.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cmd.Handle, buffer.Handle, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
}

func samplerFilter(filter metadata.TextureFilter) vk.Filter {
	if filter == metadata.TextureFilterModeNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func samplerAddressMode(repeat metadata.TextureRepeat) vk.SamplerAddressMode {
	switch repeat {
	case metadata.TextureRepeatMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case metadata.TextureRepeatClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case metadata.TextureRepeatClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeRepeat
	}
}

// samplerInfo translates a texture map. Anisotropy is only turned on when the
// map asks for it and the device feature was enabled.
func samplerInfo(texMap metadata.TextureMap, anisotropy bool, maxAnisotropy float32) vk.SamplerCreateInfo {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               samplerFilter(texMap.FilterMagnify),
		MinFilter:               samplerFilter(texMap.FilterMinify),
		AddressModeU:            samplerAddressMode(texMap.RepeatU),
		AddressModeV:            samplerAddressMode(texMap.RepeatV),
		AddressModeW:            samplerAddressMode(texMap.RepeatW),
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	if texMap.Anisotropic && anisotropy {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = maxAnisotropy
	}
	return info
}

// SamplerCreate builds a sampler for the texture map.
func SamplerCreate(context *VulkanContext, texMap metadata.TextureMap) (vk.Sampler, error) {
	info := samplerInfo(texMap, context.Device.SamplerAnisotropy, context.Device.MaxSamplerAnisotropy)
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &info, context.Allocator, &sampler); res != vk.Success {
		return nil, vulkanError(res, "failed to create texture sampler")
	}
	return sampler, nil
}
