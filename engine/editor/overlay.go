package editor

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/inkyblackness/imgui-go/v4"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

const (
	fontTextureID = imgui.TextureID(1)
	// per slot vertex and index buffers grow in steps of this size
	overlayBufferStep = 256 * 1024

	hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
)

// overlayPushConstants maps imgui display coordinates to clip space.
type overlayPushConstants struct {
	Scale     [2]float32
	Translate [2]float32
}

type overlayFrame struct {
	vertices *vulkan.VulkanBuffer
	indices  *vulkan.VulkanBuffer
}

// overlayRenderer records imgui draw lists into the backend's command
// buffers. It owns the font texture, a single descriptor set, its own
// alpha blended pipeline and host visible buffers for every frame slot.
type overlayRenderer struct {
	backend *vulkan.VulkanBackend
	context *vulkan.VulkanContext

	vertexCode   []byte
	fragmentCode []byte

	font        *vulkan.VulkanImage
	fontSampler vk.Sampler

	setLayout vk.DescriptorSetLayout
	pool      vk.DescriptorPool
	set       vk.DescriptorSet

	pipeline   *vulkan.VulkanPipeline
	renderpass vk.RenderPass

	frames []overlayFrame
	// display size in screen coordinates, set at the start of every frame
	display imgui.Vec2
}

func newOverlayRenderer(backend *vulkan.VulkanBackend, io imgui.IO, vertexCode, fragmentCode []byte) (*overlayRenderer, error) {
	o := &overlayRenderer{
		backend:      backend,
		context:      backend.Context(),
		vertexCode:   vertexCode,
		fragmentCode: fragmentCode,
		frames:       make([]overlayFrame, backend.MaxFramesInFlight()),
	}
	if err := o.createFont(io); err != nil {
		o.Destroy()
		return nil, err
	}
	if err := o.createDescriptors(); err != nil {
		o.Destroy()
		return nil, err
	}
	if err := o.createPipeline(); err != nil {
		o.Destroy()
		return nil, err
	}
	return o, nil
}

func (o *overlayRenderer) createFont(io imgui.IO) error {
	fontTexture := io.Fonts().TextureDataRGBA32()
	if fontTexture == nil || fontTexture.Width == 0 || fontTexture.Height == 0 {
		return errors.New("imgui font atlas is empty")
	}
	size := fontTexture.Width * fontTexture.Height * metadata.ImageChannelCount
	pixels := make([]uint8, size)
	copy(pixels, unsafe.Slice((*byte)(fontTexture.Pixels), size))

	img, err := o.backend.Uploader().UploadImage(&metadata.ImageData{
		Width:  uint32(fontTexture.Width),
		Height: uint32(fontTexture.Height),
		Pixels: pixels,
	}, vk.FormatR8g8b8a8Unorm)
	if err != nil {
		return errors.Wrap(err, "uploading font atlas")
	}
	o.font = img

	if o.fontSampler, err = vulkan.SamplerCreate(o.context, metadata.ClampedTextureMap()); err != nil {
		return err
	}
	io.Fonts().SetTextureID(fontTextureID)
	return nil
}

func (o *overlayRenderer) createDescriptors() error {
	device := o.context.Device.LogicalDevice
	bindings := []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(device, &layoutInfo, o.context.Allocator, &o.setLayout); res != vk.Success {
		return errors.Newf("failed to create editor descriptor set layout: %s", vulkan.VulkanResultString(res))
	}

	poolSizes := []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1}}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(device, &poolInfo, o.context.Allocator, &o.pool); res != vk.Success {
		return errors.Newf("failed to create editor descriptor pool: %s", vulkan.VulkanResultString(res))
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     o.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{o.setLayout},
	}
	if res := vk.AllocateDescriptorSets(device, &allocInfo, &o.set); res != vk.Success {
		return errors.Newf("failed to allocate editor descriptor set: %s", vulkan.VulkanResultString(res))
	}

	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          o.set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   o.font.View,
			Sampler:     o.fontSampler,
		}},
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func overlayVertexAttributes() (uint32, []vk.VertexInputAttributeDescription) {
	size, posOffset, uvOffset, colOffset := imgui.VertexBufferLayout()
	return uint32(size), []vk.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: vk.FormatR32g32Sfloat, Offset: uint32(posOffset)},
		{Binding: 0, Location: 1, Format: vk.FormatR32g32Sfloat, Offset: uint32(uvOffset)},
		{Binding: 0, Location: 2, Format: vk.FormatR8g8b8a8Unorm, Offset: uint32(colOffset)},
	}
}

// createPipeline builds the pipeline against the backend's current render
// pass.
func (o *overlayRenderer) createPipeline() error {
	vert, err := vulkan.NewShaderStage(o.context, o.vertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return errors.Wrap(err, "editor vertex shader")
	}
	defer vert.Destroy(o.context)
	frag, err := vulkan.NewShaderStage(o.context, o.fragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return errors.Wrap(err, "editor fragment shader")
	}
	defer frag.Destroy(o.context)

	stride, attributes := overlayVertexAttributes()
	renderpass := o.backend.Renderpass()
	pipeline, err := vulkan.NewGraphicsPipeline(o.context, &vulkan.VulkanPipelineConfig{
		Renderpass:           renderpass,
		Stride:               stride,
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{o.setLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, frag.ShaderStageCreateInfo},
		CullMode:             metadata.FaceCullModeNone,
		AlphaBlend:           true,
		PushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       uint32(unsafe.Sizeof(overlayPushConstants{})),
		}},
	})
	if err != nil {
		return err
	}
	o.pipeline = pipeline
	o.renderpass = renderpass.Handle
	return nil
}

// ensureCapacity grows a slot buffer. The slot's previous submission has
// completed by the time it is recorded again, so the old buffer can go.
func (o *overlayRenderer) ensureCapacity(buffer **vulkan.VulkanBuffer, size int, usage vk.BufferUsageFlagBits) error {
	if *buffer != nil && int((*buffer).Size) >= size {
		return nil
	}
	capacity := metadata.GetAligned(uint64(size), overlayBufferStep)
	if capacity == 0 {
		capacity = overlayBufferStep
	}
	if *buffer != nil {
		(*buffer).Destroy(o.context)
		*buffer = nil
	}
	b, err := vulkan.BufferCreate(o.context, vk.DeviceSize(capacity), vk.BufferUsageFlags(usage), hostVisibleCoherent, nil)
	if err != nil {
		return err
	}
	if _, err := b.Map(o.context); err != nil {
		b.Destroy(o.context)
		return err
	}
	*buffer = b
	return nil
}

// RecordOverlay implements vulkan.Overlay.
func (o *overlayRenderer) RecordOverlay(cmd *vulkan.VulkanCommandBuffer, slot int, extent vk.Extent2D) error {
	drawData := imgui.RenderedDrawData()
	if !drawData.Valid() {
		return nil
	}
	display := o.display
	if display.X <= 0 || display.Y <= 0 || extent.Width == 0 || extent.Height == 0 {
		return nil
	}

	// a format change rebuilds the render pass; the device was idle then
	if rp := o.backend.Renderpass(); rp.Handle != o.renderpass {
		o.pipeline.Destroy(o.context)
		o.pipeline = nil
		if err := o.createPipeline(); err != nil {
			return err
		}
	}

	lists := drawData.CommandLists()
	vertexTotal, indexTotal := 0, 0
	for _, list := range lists {
		_, vs := list.VertexBuffer()
		_, is := list.IndexBuffer()
		vertexTotal += vs
		indexTotal += is
	}
	if vertexTotal == 0 || indexTotal == 0 {
		return nil
	}

	frame := &o.frames[slot]
	if err := o.ensureCapacity(&frame.vertices, vertexTotal, vk.BufferUsageVertexBufferBit); err != nil {
		return err
	}
	if err := o.ensureCapacity(&frame.indices, indexTotal, vk.BufferUsageIndexBufferBit); err != nil {
		return err
	}

	var vertexOffset, indexOffset vk.DeviceSize
	for _, list := range lists {
		vp, vs := list.VertexBuffer()
		ip, is := list.IndexBuffer()
		if err := frame.vertices.LoadData(o.context, vertexOffset, unsafe.Slice((*byte)(vp), vs)); err != nil {
			return err
		}
		if err := frame.indices.LoadData(o.context, indexOffset, unsafe.Slice((*byte)(ip), is)); err != nil {
			return err
		}
		vertexOffset += vk.DeviceSize(vs)
		indexOffset += vk.DeviceSize(is)
	}

	o.pipeline.Bind(cmd)
	vk.CmdBindDescriptorSets(cmd.Handle, vk.PipelineBindPointGraphics, o.pipeline.PipelineLayout, 0, 1,
		[]vk.DescriptorSet{o.set}, 0, nil)
	vk.CmdBindVertexBuffers(cmd.Handle, 0, 1, []vk.Buffer{frame.vertices.Handle}, []vk.DeviceSize{0})
	indexType := vk.IndexTypeUint16
	if imgui.IndexBufferLayout() == 4 {
		indexType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(cmd.Handle, frame.indices.Handle, 0, indexType)

	pc := overlayTransform(display.X, display.Y)
	vk.CmdPushConstants(cmd.Handle, o.pipeline.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, uint32(unsafe.Sizeof(pc)), unsafe.Pointer(&pc))

	scale := [2]float32{float32(extent.Width) / display.X, float32(extent.Height) / display.Y}
	vertexSize, _, _, _ := imgui.VertexBufferLayout()
	indexSize := imgui.IndexBufferLayout()

	var firstVertex, firstIndex int
	for _, list := range lists {
		elementOffset := 0
		for _, c := range list.Commands() {
			if c.HasUserCallback() {
				c.CallUserCallback(list)
			} else if scissor, ok := clipToScissor(c.ClipRect(), scale, extent); ok {
				vk.CmdSetScissor(cmd.Handle, 0, 1, []vk.Rect2D{scissor})
				vk.CmdDrawIndexed(cmd.Handle, uint32(c.ElementCount()), 1,
					uint32(firstIndex+elementOffset), int32(firstVertex), 0)
			}
			elementOffset += c.ElementCount()
		}
		_, vs := list.VertexBuffer()
		_, is := list.IndexBuffer()
		firstVertex += vs / vertexSize
		firstIndex += is / indexSize
	}

	// leave a full scissor behind for anything recorded later
	vulkan.SetViewportAndScissor(cmd, extent)
	return nil
}

// overlayTransform maps [0, display] to [-1, 1].
func overlayTransform(displayWidth, displayHeight float32) overlayPushConstants {
	return overlayPushConstants{
		Scale:     [2]float32{2.0 / displayWidth, 2.0 / displayHeight},
		Translate: [2]float32{-1.0, -1.0},
	}
}

// clipToScissor converts an imgui clip rectangle (x1, y1, x2, y2 in display
// coordinates) to a framebuffer scissor clamped to the extent. It reports
// false for an empty rectangle.
func clipToScissor(clip imgui.Vec4, scale [2]float32, extent vk.Extent2D) (vk.Rect2D, bool) {
	x1 := clip.X * scale[0]
	y1 := clip.Y * scale[1]
	x2 := clip.Z * scale[0]
	y2 := clip.W * scale[1]
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > float32(extent.Width) {
		x2 = float32(extent.Width)
	}
	if y2 > float32(extent.Height) {
		y2 = float32(extent.Height)
	}
	if x2 <= x1 || y2 <= y1 {
		return vk.Rect2D{}, false
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(x1), Y: int32(y1)},
		Extent: vk.Extent2D{Width: uint32(x2 - x1), Height: uint32(y2 - y1)},
	}, true
}

// Destroy frees every GPU object. The device must be idle.
func (o *overlayRenderer) Destroy() {
	device := o.context.Device.LogicalDevice
	for i := range o.frames {
		if o.frames[i].vertices != nil {
			o.frames[i].vertices.Destroy(o.context)
		}
		if o.frames[i].indices != nil {
			o.frames[i].indices.Destroy(o.context)
		}
	}
	o.frames = nil
	if o.pipeline != nil {
		o.pipeline.Destroy(o.context)
		o.pipeline = nil
	}
	if o.pool != nil {
		vk.DestroyDescriptorPool(device, o.pool, o.context.Allocator)
		o.pool = nil
	}
	if o.setLayout != nil {
		vk.DestroyDescriptorSetLayout(device, o.setLayout, o.context.Allocator)
		o.setLayout = nil
	}
	if o.fontSampler != nil {
		vk.DestroySampler(device, o.fontSampler, o.context.Allocator)
		o.fontSampler = nil
	}
	if o.font != nil {
		o.font.Destroy(o.context)
		o.font = nil
	}
}
