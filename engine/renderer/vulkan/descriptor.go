package vulkan

import (
	vk "github.com/goki/vulkan"
)

const (
	/** @brief Binding of the per frame uniform buffer. */
	UniformBinding uint32 = 0
	/** @brief Binding of the combined image sampler. */
	SamplerBinding uint32 = 1
)

/**
 * @brief The descriptor set layout, the pool it allocates from and one set
 * per frame slot.
 */
type VulkanDescriptors struct {
	/** @brief Binding 0 uniform buffer (vertex), binding 1 sampler (fragment). */
	SetLayout vk.DescriptorSetLayout
	/** @brief Sized for exactly one set per frame slot. */
	Pool vk.DescriptorPool
	/** @brief Indexed by frame slot. */
	Sets []vk.DescriptorSet
}

func DescriptorSetLayoutCreate(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         UniformBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         SamplerBinding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &info, context.Allocator, &layout); res != vk.Success {
		return nil, vulkanError(res, "failed to create descriptor set layout")
	}
	return layout, nil
}

// DescriptorsCreate creates the layout, a pool for frameCount sets and the sets
// themselves. The sets are written separately by Write.
func DescriptorsCreate(context *VulkanContext, frameCount int) (*VulkanDescriptors, error) {
	layout, err := DescriptorSetLayoutCreate(context)
	if err != nil {
		return nil, err
	}
	descriptors := &VulkanDescriptors{SetLayout: layout}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: uint32(frameCount)},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: uint32(frameCount)},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(frameCount),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &descriptors.Pool); res != vk.Success {
		descriptors.Destroy(context)
		return nil, vulkanError(res, "failed to create descriptor pool")
	}

	descriptors.Sets = make([]vk.DescriptorSet, frameCount)
	for i := range descriptors.Sets {
		var set vk.DescriptorSet
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     descriptors.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &set); res != vk.Success {
			descriptors.Destroy(context)
			return nil, vulkanError(res, "failed to allocate descriptor set %d", i)
		}
		descriptors.Sets[i] = set
	}
	return descriptors, nil
}

// Write points the slot's set at its uniform buffer and at the texture.
func (vd *VulkanDescriptors) Write(context *VulkanContext, slot int, uniform *VulkanBuffer, view vk.ImageView, sampler vk.Sampler) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          vd.Sets[slot],
			DstBinding:      UniformBinding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: uniform.Handle,
				Offset: 0,
				Range:  uniform.Size,
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          vd.Sets[slot],
			DstBinding:      SamplerBinding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				ImageView:   view,
				Sampler:     sampler,
			}},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (vd *VulkanDescriptors) Bind(cmd *VulkanCommandBuffer, layout vk.PipelineLayout, slot int) {
	vk.CmdBindDescriptorSets(cmd.Handle, vk.PipelineBindPointGraphics, layout, 0, 1,
		[]vk.DescriptorSet{vd.Sets[slot]}, 0, nil)
}

// Destroy frees the pool, which frees its sets, then the layout.
func (vd *VulkanDescriptors) Destroy(context *VulkanContext) {
	if vd.Pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, vd.Pool, context.Allocator)
		vd.Pool = nil
	}
	vd.Sets = nil
	if vd.SetLayout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, vd.SetLayout, context.Allocator)
		vd.SetLayout = nil
	}
}
