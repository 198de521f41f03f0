package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

// LayoutTransition is the barrier configuration for one supported pair of
// image layouts.
type LayoutTransition struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
}

// TransitionRule returns the barrier for old -> new. Only the two layout
// changes needed by texture uploads are supported; anything else is fatal.
func TransitionRule(oldLayout, newLayout vk.ImageLayout) (LayoutTransition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return LayoutTransition{
			SrcAccess: 0,
			DstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return LayoutTransition{
			SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return LayoutTransition{}, core.Fatal(errors.Wrapf(core.ErrUnsupportedLayoutTransition, "%d -> %d", oldLayout, newLayout))
}

// TransitionLayout records a pipeline barrier moving the image between two
// supported layouts.
func (vi *VulkanImage) TransitionLayout(cmd *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	rule, err := TransitionRule(oldLayout, newLayout)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: rule.SrcAccess,
		DstAccessMask: rule.DstAccess,
	}

	vk.CmdPipelineBarrier(
		cmd.Handle,
		rule.SrcStage,
		rule.DstStage,
		vk.DependencyFlags(vk.DependencyByRegionBit),
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
	return nil
}
