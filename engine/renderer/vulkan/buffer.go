package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	Size        vk.DeviceSize
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags

	// mapped is set while the memory is persistently mapped.
	mapped unsafe.Pointer
}

// BufferCreate allocates and binds a buffer. With more than one entry in
// families the buffer is shared concurrently between those queue families.
func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, families []uint32) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, errors.New("cannot create a zero sized buffer")
	}
	buffer := &VulkanBuffer{
		Size:        size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
	}

	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if len(families) > 1 {
		info.SharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = uint32(len(families))
		info.PQueueFamilyIndices = families
	}

	if res := vk.CreateBuffer(context.Device.LogicalDevice, &info, context.Allocator, &buffer.Handle); res != vk.Success {
		return nil, vulkanError(res, "failed to create buffer of %d bytes", size)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if memoryIndex == -1 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := core.Fatal(errors.New("unable to create buffer: required memory type not found"))
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &buffer.Memory); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, vulkanError(res, "failed to allocate buffer memory")
	}
	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, vulkanError(res, "failed to bind buffer memory")
	}
	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.mapped != nil {
		vb.Unmap(context)
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.Size = 0
}

// Map maps the whole buffer and keeps it mapped until Unmap or Destroy.
func (vb *VulkanBuffer) Map(context *VulkanContext) (unsafe.Pointer, error) {
	if vb.mapped != nil {
		return vb.mapped, nil
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, 0, vb.Size, 0, &data); res != vk.Success {
		return nil, vulkanError(res, "failed to map buffer memory")
	}
	vb.mapped = data
	return data, nil
}

func (vb *VulkanBuffer) Unmap(context *VulkanContext) {
	if vb.mapped == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	vb.mapped = nil
}

// LoadData copies data into host visible memory at offset.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, offset vk.DeviceSize, data []byte) error {
	if offset+vk.DeviceSize(len(data)) > vb.Size {
		return errors.Newf("write of %d bytes at %d overflows buffer of %d bytes", len(data), offset, vb.Size)
	}
	wasMapped := vb.mapped != nil
	ptr, err := vb.Map(context)
	if err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(ptr, int(offset))), len(data))
	copy(dst, data)
	if !wasMapped {
		vb.Unmap(context)
	}
	return nil
}

// ReadData copies size bytes out of host visible memory.
func (vb *VulkanBuffer) ReadData(context *VulkanContext, offset, size vk.DeviceSize) ([]byte, error) {
	if offset+size > vb.Size {
		return nil, errors.Newf("read of %d bytes at %d overflows buffer of %d bytes", size, offset, vb.Size)
	}
	wasMapped := vb.mapped != nil
	ptr, err := vb.Map(context)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Add(ptr, int(offset))), int(size)))
	if !wasMapped {
		vb.Unmap(context)
	}
	return out, nil
}

func CopyBuffer(cmd *VulkanCommandBuffer, src, dst *VulkanBuffer, size vk.DeviceSize) {
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cmd.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}
