package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SurfaceProvider is the window side of the backend.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// DrawableSize is the framebuffer size in pixels, zero when minimized.
	DrawableSize() (uint32, uint32)
}

// Overlay records additional draw commands at the end of the main render
// pass, e.g. the editor UI. slot is the frame slot being recorded.
type Overlay interface {
	RecordOverlay(cmd *VulkanCommandBuffer, slot int, extent vk.Extent2D) error
}

type BackendConfig struct {
	ApplicationName   string
	Validation        bool
	VSync             bool
	MaxFramesInFlight int
	ClearColor        [4]float32
	VertexShader      []byte
	FragmentShader    []byte
}

type frameSlot struct {
	commandBuffer  *VulkanCommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       *VulkanFence
	uniform        *VulkanBuffer
}

// VulkanBackend owns every Vulkan object of the renderer. Objects are
// registered in creation order and released in reverse on Shutdown.
type VulkanBackend struct {
	context  *VulkanContext
	surface  SurfaceProvider
	config   BackendConfig
	registry *core.Registry
	uploader *Uploader

	swapchain   *VulkanSwapchain
	renderpass  *VulkanRenderpass
	descriptors *VulkanDescriptors
	pipeline    *VulkanPipeline
	slots       []frameSlot

	geometry   *VulkanGeometry
	geometryID core.ResourceID
	hasMesh    bool
	texture    *VulkanTexture
	textureID  core.ResourceID

	overlay Overlay
	down    bool
}

// NewVulkanBackend brings up the whole device side: instance, surface,
// device, swapchain, render pass, pipeline, per slot resources and a default
// white texture.
func NewVulkanBackend(surface SurfaceProvider, config BackendConfig) (*VulkanBackend, error) {
	if config.MaxFramesInFlight <= 0 {
		config.MaxFramesInFlight = 2
	}
	vb := &VulkanBackend{
		context:  NewVulkanContext(),
		surface:  surface,
		config:   config,
		registry: core.NewRegistry(),
	}
	if err := vb.initialize(); err != nil {
		vb.registry.ReleaseAll()
		return nil, err
	}
	return vb, nil
}

func (vb *VulkanBackend) initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := core.Fatal(errors.New("GetInstanceProcAddress is nil"))
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		err = core.Fatal(errors.Wrap(err, "failed to initialize vk"))
		core.LogError(err.Error())
		return err
	}

	ctx := vb.context
	if err := InstanceCreate(ctx, InstanceConfig{
		ApplicationName:    vb.config.ApplicationName,
		EngineName:         "Ember Engine",
		RequiredExtensions: vb.surface.RequiredInstanceExtensions(),
		Validation:         vb.config.Validation,
	}); err != nil {
		return err
	}
	vb.registry.Track("instance", func() { InstanceDestroy(ctx) })

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vb.surface.CreateSurface(ctx.Instance)
	if err != nil {
		err = core.Fatal(errors.Wrap(err, "vulkan surface creation failed"))
		core.LogError(err.Error())
		return err
	}
	ctx.Surface = surface
	vb.registry.Track("surface", func() {
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	})

	if err := DeviceCreate(ctx); err != nil {
		return err
	}
	vb.registry.Track("device", func() { DeviceDestroy(ctx) })
	vb.uploader = NewUploader(ctx)

	width, height := vb.surface.DrawableSize()
	swapchain, err := SwapchainCreate(ctx, SwapchainConfig{DrawableWidth: width, DrawableHeight: height, VSync: vb.config.VSync})
	if err != nil {
		return core.Fatal(errors.Wrap(err, "initial swapchain"))
	}
	vb.swapchain = swapchain
	vb.registry.Track("swapchain", func() {
		if vb.swapchain != nil {
			vb.swapchain.Destroy(ctx)
			vb.swapchain = nil
		}
	})

	renderpass, err := RenderpassCreate(ctx, swapchain.ImageFormat.Format, ctx.Device.DepthFormat, vb.config.ClearColor)
	if err != nil {
		return err
	}
	vb.renderpass = renderpass
	vb.registry.Track("renderpass", func() { vb.renderpass.Destroy(ctx) })

	if err := swapchain.CreateFramebuffers(ctx, renderpass); err != nil {
		return err
	}
	vb.registry.Track("framebuffers", func() {
		if vb.swapchain == nil {
			return
		}
		for _, fb := range vb.swapchain.Framebuffers {
			fb.Destroy(ctx)
		}
		vb.swapchain.Framebuffers = nil
	})

	descriptors, err := DescriptorsCreate(ctx, vb.config.MaxFramesInFlight)
	if err != nil {
		return err
	}
	vb.descriptors = descriptors
	vb.registry.Track("descriptors", func() { vb.descriptors.Destroy(ctx) })

	pipeline, err := vb.buildPipeline(vb.config.VertexShader, vb.config.FragmentShader)
	if err != nil {
		return err
	}
	vb.pipeline = pipeline
	vb.registry.Track("pipeline", func() {
		if vb.pipeline != nil {
			vb.pipeline.Destroy(ctx)
		}
	})

	if err := vb.createSlots(); err != nil {
		return err
	}

	texture, err := TextureUpload(vb.uploader, metadata.DefaultImage())
	if err != nil {
		return err
	}
	vb.setTexture(texture)

	core.LogInfo("Vulkan backend initialized on %s.", ctx.Device.Name)
	return nil
}

func (vb *VulkanBackend) createSlots() error {
	ctx := vb.context
	vb.slots = make([]frameSlot, vb.config.MaxFramesInFlight)
	for i := range vb.slots {
		slot := &vb.slots[i]
		cb, err := NewVulkanCommandBuffer(ctx, ctx.Device.Graphics.CommandPool, true)
		if err != nil {
			return err
		}
		slot.commandBuffer = cb
		if slot.imageAvailable, err = NewSemaphore(ctx); err != nil {
			return err
		}
		if slot.renderFinished, err = NewSemaphore(ctx); err != nil {
			return err
		}
		// Signaled so the first wait on the slot does not block.
		if slot.inFlight, err = NewFence(ctx, true); err != nil {
			return err
		}
		if slot.uniform, err = vb.uploader.CreateUniformBuffer(vk.DeviceSize(metadata.UniformBufferObjectSize)); err != nil {
			return err
		}
	}
	vb.registry.Track("frame slots", func() {
		for i := range vb.slots {
			slot := &vb.slots[i]
			if slot.uniform != nil {
				slot.uniform.Destroy(ctx)
			}
			if slot.inFlight != nil {
				slot.inFlight.Destroy(ctx)
			}
			if slot.renderFinished != vk.NullSemaphore {
				vk.DestroySemaphore(ctx.Device.LogicalDevice, slot.renderFinished, ctx.Allocator)
			}
			if slot.imageAvailable != vk.NullSemaphore {
				vk.DestroySemaphore(ctx.Device.LogicalDevice, slot.imageAvailable, ctx.Allocator)
			}
			if slot.commandBuffer != nil {
				slot.commandBuffer.Free(ctx, ctx.Device.Graphics.CommandPool)
			}
		}
		vb.slots = nil
	})
	return nil
}

func (vb *VulkanBackend) buildPipeline(vertexCode, fragmentCode []byte) (*VulkanPipeline, error) {
	ctx := vb.context
	vert, err := NewShaderStage(ctx, vertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, errors.Wrap(err, "vertex shader")
	}
	defer vert.Destroy(ctx)
	frag, err := NewShaderStage(ctx, fragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, errors.Wrap(err, "fragment shader")
	}
	defer frag.Destroy(ctx)

	return NewGraphicsPipeline(ctx, &VulkanPipelineConfig{
		Renderpass:           vb.renderpass,
		Stride:               metadata.VertexSize,
		Attributes:           MeshVertexAttributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vb.descriptors.SetLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, frag.ShaderStageCreateInfo},
		CullMode:             metadata.FaceCullModeBack,
		DepthTest:            true,
		DepthWrite:           true,
	})
}

// setTexture swaps the bound texture. The device must be idle.
func (vb *VulkanBackend) setTexture(texture *VulkanTexture) {
	for i := range vb.slots {
		vb.descriptors.Write(vb.context, i, vb.slots[i].uniform, texture.Image.View, texture.Sampler)
	}
	if vb.texture != nil {
		if err := vb.registry.Release(vb.textureID); err != nil {
			core.LogWarn(err.Error())
		}
	}
	vb.texture = texture
	ctx := vb.context
	vb.textureID = vb.registry.Track("texture", func() { texture.Destroy(ctx) })
}

func (vb *VulkanBackend) MaxFramesInFlight() int {
	return vb.config.MaxFramesInFlight
}

// DrawableExtent is zero whenever the window or the surface reports a zero
// size in either dimension.
func (vb *VulkanBackend) DrawableExtent() metadata.Extent {
	width, height := vb.surface.DrawableSize()
	if width == 0 || height == 0 {
		return metadata.Extent{}
	}
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(vb.context.Device.PhysicalDevice, vb.context.Surface, &caps); res != vk.Success {
		core.LogWarn("surface capabilities query failed: %s", VulkanResultString(res))
		return metadata.Extent{Width: width, Height: height}
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	extent := ChooseExtent(caps, width, height)
	return metadata.Extent{Width: extent.Width, Height: extent.Height}
}

func (vb *VulkanBackend) WaitForFrame(slot int) error {
	return vb.slots[slot].inFlight.Wait(vb.context, FenceTimeout)
}

func (vb *VulkanBackend) AcquireNextImage(slot int) (uint32, metadata.AcquireStatus, error) {
	return vb.swapchain.AcquireNextImage(vb.context, AcquireTimeout, vb.slots[slot].imageAvailable)
}

func (vb *VulkanBackend) ResetFrame(slot int) error {
	return vb.slots[slot].inFlight.Reset(vb.context)
}

func (vb *VulkanBackend) RecordFrame(slot int, imageIndex uint32) error {
	if int(imageIndex) >= len(vb.swapchain.Framebuffers) {
		return errors.Newf("image index %d out of range (%d framebuffers)", imageIndex, len(vb.swapchain.Framebuffers))
	}
	cmd := vb.slots[slot].commandBuffer
	if err := cmd.Reset(); err != nil {
		return err
	}
	if err := cmd.Begin(false, false, false); err != nil {
		return err
	}

	extent := vb.swapchain.Extent
	vb.renderpass.Begin(cmd, vb.swapchain.Framebuffers[imageIndex].Handle, extent)
	SetViewportAndScissor(cmd, extent)

	if vb.hasMesh {
		vb.pipeline.Bind(cmd)
		vb.descriptors.Bind(cmd, vb.pipeline.PipelineLayout, slot)
		vb.geometry.Draw(cmd)
	}
	if vb.overlay != nil {
		if err := vb.overlay.RecordOverlay(cmd, slot, extent); err != nil {
			return errors.Wrap(err, "recording overlay")
		}
	}

	vb.renderpass.End(cmd)
	return cmd.End()
}

func (vb *VulkanBackend) WriteUniforms(slot int, ubo *metadata.UniformBufferObject) error {
	return vb.slots[slot].uniform.LoadData(vb.context, 0, ubo.Bytes())
}

func (vb *VulkanBackend) SubmitFrame(slot int) error {
	s := &vb.slots[slot]
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinished},
	}
	graphics := &vb.context.Device.Graphics
	return vb.context.Locks.SafeQueueCall(graphics.FamilyIndex, func() error {
		if res := vk.QueueSubmit(graphics.Handle, 1, []vk.SubmitInfo{submitInfo}, s.inFlight.Handle); res != vk.Success {
			return vulkanError(res, "failed to submit frame")
		}
		s.commandBuffer.UpdateSubmitted()
		return nil
	})
}

func (vb *VulkanBackend) PresentFrame(slot int, imageIndex uint32) (metadata.PresentStatus, error) {
	return vb.swapchain.Present(vb.context, &vb.context.Device.Present, vb.slots[slot].renderFinished, imageIndex)
}

// RecreateSwapchain rebuilds the swapchain and everything sized by it. On a
// zero extent nothing is touched and core.ErrSwapchainNotReady is returned.
func (vb *VulkanBackend) RecreateSwapchain() error {
	extent := vb.DrawableExtent()
	if extent.IsZero() {
		return core.ErrSwapchainNotReady
	}
	if err := vb.WaitIdle(); err != nil {
		return err
	}

	ctx := vb.context
	oldFormat := vb.swapchain.ImageFormat.Format
	vb.swapchain.Destroy(ctx)

	swapchain, err := SwapchainCreate(ctx, SwapchainConfig{
		DrawableWidth:  extent.Width,
		DrawableHeight: extent.Height,
		VSync:          vb.config.VSync,
	})
	if err != nil {
		vb.swapchain = nil
		if errors.Is(err, core.ErrSwapchainNotReady) {
			// The surface shrank to zero between the query and creation.
			return core.Fatal(errors.Wrap(err, "swapchain lost during recreation"))
		}
		return err
	}
	vb.swapchain = swapchain

	if swapchain.ImageFormat.Format != oldFormat {
		core.LogInfo("Surface format changed, rebuilding render pass and pipeline.")
		if err := vb.rebuildRenderpass(swapchain.ImageFormat.Format); err != nil {
			return err
		}
	}
	if err := swapchain.CreateFramebuffers(ctx, vb.renderpass); err != nil {
		return err
	}
	for i := range vb.slots {
		// The device is idle, every in-flight fence is signaled.
		vb.slots[i].inFlight.IsSignaled = true
	}
	return nil
}

func (vb *VulkanBackend) rebuildRenderpass(format vk.Format) error {
	ctx := vb.context
	renderpass, err := RenderpassCreate(ctx, format, ctx.Device.DepthFormat, vb.config.ClearColor)
	if err != nil {
		return err
	}
	old := vb.renderpass
	vb.renderpass = renderpass
	pipeline, err := vb.buildPipeline(vb.config.VertexShader, vb.config.FragmentShader)
	if err != nil {
		return err
	}
	vb.pipeline.Destroy(ctx)
	vb.pipeline = pipeline
	old.Destroy(ctx)
	return nil
}

func (vb *VulkanBackend) WaitIdle() error {
	if vb.context.Device == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vb.context.Device.LogicalDevice); res != vk.Success {
		return vulkanError(res, "failed to wait for device idle")
	}
	return nil
}

// Shutdown drains the device and releases every object newest first.
func (vb *VulkanBackend) Shutdown() error {
	if vb.down {
		return nil
	}
	vb.down = true
	err := vb.WaitIdle()
	vb.registry.ReleaseAll()
	core.LogInfo("Vulkan backend shut down.")
	return err
}

// SetVSync takes effect on the next swapchain recreation.
func (vb *VulkanBackend) SetVSync(enabled bool) {
	vb.config.VSync = enabled
}

func (vb *VulkanBackend) VSync() bool {
	return vb.config.VSync
}

// LoadMesh replaces the drawn geometry.
func (vb *VulkanBackend) LoadMesh(mesh *metadata.Mesh) error {
	if err := vb.WaitIdle(); err != nil {
		return err
	}
	geometry, err := GeometryUpload(vb.uploader, mesh)
	if err != nil {
		return err
	}
	if vb.hasMesh {
		if err := vb.registry.Release(vb.geometryID); err != nil {
			core.LogWarn(err.Error())
		}
	}
	ctx := vb.context
	vb.geometry = geometry
	vb.geometryID = vb.registry.Track("geometry "+mesh.Name, func() { geometry.Destroy(ctx) })
	vb.hasMesh = true
	core.LogInfo("Loaded mesh %q: %d vertices, %d indices, %d submeshes.", mesh.Name, geometry.VertexCount, geometry.IndexCount, len(geometry.SubMeshes))
	return nil
}

// LoadTexture replaces the sampled texture; nil selects the white default.
func (vb *VulkanBackend) LoadTexture(img *metadata.ImageData) error {
	if err := vb.WaitIdle(); err != nil {
		return err
	}
	texture, err := TextureUpload(vb.uploader, img)
	if err != nil {
		return err
	}
	vb.setTexture(texture)
	return nil
}

// ReloadPipeline rebuilds the pipeline from new SPIR-V. On failure the
// current pipeline stays in use and the error is not fatal.
func (vb *VulkanBackend) ReloadPipeline(vertexCode, fragmentCode []byte) error {
	if err := vb.WaitIdle(); err != nil {
		return err
	}
	pipeline, err := vb.buildPipeline(vertexCode, fragmentCode)
	if err != nil {
		core.LogWarn("shader reload failed, keeping the current pipeline: %s", err.Error())
		return err
	}
	vb.pipeline.Destroy(vb.context)
	vb.pipeline = pipeline
	vb.config.VertexShader = vertexCode
	vb.config.FragmentShader = fragmentCode
	core.LogInfo("Pipeline reloaded.")
	return nil
}

// SetOverlay installs the overlay recorder; nil removes it.
func (vb *VulkanBackend) SetOverlay(overlay Overlay) {
	vb.overlay = overlay
}

// Track registers an externally created object for ordered teardown.
func (vb *VulkanBackend) Track(name string, release func()) core.ResourceID {
	return vb.registry.Track(name, release)
}

func (vb *VulkanBackend) Context() *VulkanContext {
	return vb.context
}

func (vb *VulkanBackend) Uploader() *Uploader {
	return vb.uploader
}

func (vb *VulkanBackend) Renderpass() *VulkanRenderpass {
	return vb.renderpass
}

// BackendInfo summarizes the device and swapchain for display.
type BackendInfo struct {
	DeviceName        string
	DedicatedTransfer bool
	ImageCount        int
	PresentMode       string
	Extent            metadata.Extent
}

func (vb *VulkanBackend) Info() BackendInfo {
	info := BackendInfo{
		DeviceName:        vb.context.Device.Name,
		DedicatedTransfer: vb.context.Device.Families.DedicatedTransfer,
	}
	if vb.swapchain != nil {
		info.ImageCount = len(vb.swapchain.Images)
		info.PresentMode = PresentModeName(vb.swapchain.PresentMode)
		info.Extent = metadata.Extent{Width: vb.swapchain.Extent.Width, Height: vb.swapchain.Extent.Height}
	}
	return info
}

func PresentModeName(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo relaxed"
	}
	return "unknown"
}
