package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

const hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// Uploader is the single path for moving data between host and device local
// memory. Every call blocks until the GPU work it submitted has finished.
type Uploader struct {
	context *VulkanContext
}

func NewUploader(context *VulkanContext) *Uploader {
	return &Uploader{context: context}
}

// SharedFamilies lists the families device local resources are shared
// between. It is empty when transfers run on the graphics family.
func (u *Uploader) SharedFamilies() []uint32 {
	device := u.context.Device
	if !device.Families.DedicatedTransfer {
		return nil
	}
	return []uint32{device.Graphics.FamilyIndex, device.Transfer.FamilyIndex}
}

func (u *Uploader) transferQueue() *VulkanQueue {
	return &u.context.Device.Transfer
}

func (u *Uploader) stage(data []byte) (*VulkanBuffer, error) {
	staging, err := BufferCreate(u.context, vk.DeviceSize(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent, nil)
	if err != nil {
		return nil, err
	}
	if err := staging.LoadData(u.context, 0, data); err != nil {
		staging.Destroy(u.context)
		return nil, err
	}
	return staging, nil
}

// UploadBuffer copies data into a new device local buffer with the given
// usage. The buffer can also be read back with ReadBuffer.
func (u *Uploader) UploadBuffer(data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	staging, err := u.stage(data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(u.context)

	usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit)
	buffer, err := BufferCreate(u.context, staging.Size, usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), u.SharedFamilies())
	if err != nil {
		return nil, err
	}

	queue := u.transferQueue()
	cmd, err := AllocateAndBeginSingleUse(u.context, queue)
	if err != nil {
		buffer.Destroy(u.context)
		return nil, err
	}
	CopyBuffer(cmd, staging, buffer, staging.Size)
	if err := cmd.EndSingleUse(u.context, queue); err != nil {
		buffer.Destroy(u.context)
		return nil, err
	}
	return buffer, nil
}

// UploadImage creates a sampled device local image from RGBA8 pixels. The
// copy runs on the transfer queue; the final transition to shader read runs
// on the graphics queue.
func (u *Uploader) UploadImage(img *metadata.ImageData, format vk.Format) (*VulkanImage, error) {
	staging, err := u.stage(img.Pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(u.context)

	image, err := ImageCreate(u.context, ImageCreateInfo{
		Width:       img.Width,
		Height:      img.Height,
		Format:      format,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Families:    u.SharedFamilies(),
		CreateView:  true,
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	transfer := u.transferQueue()
	cmd, err := AllocateAndBeginSingleUse(u.context, transfer)
	if err != nil {
		image.Destroy(u.context)
		return nil, err
	}
	if err := image.TransitionLayout(cmd, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		cmd.Free(u.context, transfer.CommandPool)
		image.Destroy(u.context)
		return nil, err
	}
	image.CopyFromBuffer(cmd, staging)
	if err := cmd.EndSingleUse(u.context, transfer); err != nil {
		image.Destroy(u.context)
		return nil, err
	}

	graphics := &u.context.Device.Graphics
	cmd, err = AllocateAndBeginSingleUse(u.context, graphics)
	if err != nil {
		image.Destroy(u.context)
		return nil, err
	}
	if err := image.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		cmd.Free(u.context, graphics.CommandPool)
		image.Destroy(u.context)
		return nil, err
	}
	if err := cmd.EndSingleUse(u.context, graphics); err != nil {
		image.Destroy(u.context)
		return nil, err
	}
	core.LogDebug("Uploaded %dx%d image.", img.Width, img.Height)
	return image, nil
}

// ReadBuffer copies a device local buffer back into host memory.
func (u *Uploader) ReadBuffer(src *VulkanBuffer) ([]byte, error) {
	readback, err := BufferCreate(u.context, src.Size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), hostVisibleCoherent, nil)
	if err != nil {
		return nil, err
	}
	defer readback.Destroy(u.context)

	queue := u.transferQueue()
	cmd, err := AllocateAndBeginSingleUse(u.context, queue)
	if err != nil {
		return nil, err
	}
	CopyBuffer(cmd, src, readback, src.Size)
	if err := cmd.EndSingleUse(u.context, queue); err != nil {
		return nil, err
	}
	return readback.ReadData(u.context, 0, src.Size)
}

// CreateUniformBuffer creates a host visible buffer that stays mapped for
// its whole life.
func (u *Uploader) CreateUniformBuffer(size vk.DeviceSize) (*VulkanBuffer, error) {
	buffer, err := BufferCreate(u.context, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisibleCoherent, nil)
	if err != nil {
		return nil, err
	}
	if _, err := buffer.Map(u.context); err != nil {
		buffer.Destroy(u.context)
		return nil, err
	}
	return buffer, nil
}
