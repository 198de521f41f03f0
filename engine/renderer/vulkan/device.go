package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// VulkanQueue pairs a queue with the family it came from and the command pool
// used for one-time submissions on it.
type VulkanQueue struct {
	Handle      vk.Queue
	FamilyIndex uint32
	CommandPool vk.CommandPool
}

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Name           string

	Families QueueFamilyIndices

	Graphics VulkanQueue
	Present  VulkanQueue
	// Transfer aliases Graphics, pool included, when the device has no
	// dedicated transfer family.
	Transfer VulkanQueue

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties

	SamplerAnisotropy    bool
	MaxSamplerAnisotropy float32
	DepthFormat          vk.Format
}

// QueueFamilyInfo is the part of a queue family description used for
// selection.
type QueueFamilyInfo struct {
	Flags          vk.QueueFlags
	QueueCount     uint32
	PresentSupport bool
}

// QueueFamilyIndices holds the chosen family per role, -1 when missing.
type QueueFamilyIndices struct {
	Graphics          int32
	Present           int32
	Transfer          int32
	DedicatedTransfer bool
}

// IsComplete only needs graphics and present; transfer falls back to graphics.
func (q QueueFamilyIndices) IsComplete() bool {
	return q.Graphics >= 0 && q.Present >= 0
}

// UniqueFamilies lists every distinct family once, graphics first.
func (q QueueFamilyIndices) UniqueFamilies() []uint32 {
	out := make([]uint32, 0, 3)
	for _, idx := range []int32{q.Graphics, q.Present, q.Transfer} {
		if idx < 0 {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == uint32(idx) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, uint32(idx))
		}
	}
	return out
}

// FindQueueFamilies picks the first graphics family, the first family that
// can present, and a transfer family without graphics support if there is
// one that does neither graphics nor compute. Without such a family
// transfers share the graphics family.
func FindQueueFamilies(families []QueueFamilyInfo) QueueFamilyIndices {
	indices := QueueFamilyIndices{Graphics: -1, Present: -1, Transfer: -1}
	for i, f := range families {
		if f.QueueCount == 0 {
			continue
		}
		graphics := f.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		transfer := f.Flags&vk.QueueFlags(vk.QueueTransferBit) != 0
		compute := f.Flags&vk.QueueFlags(vk.QueueComputeBit) != 0

		if graphics && indices.Graphics < 0 {
			indices.Graphics = int32(i)
		}
		if f.PresentSupport && indices.Present < 0 {
			indices.Present = int32(i)
		}
		if transfer && !graphics && !compute && !indices.DedicatedTransfer {
			indices.Transfer = int32(i)
			indices.DedicatedTransfer = true
		}
	}
	if !indices.DedicatedTransfer {
		indices.Transfer = indices.Graphics
	}
	return indices
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

// DeviceCandidate is what selection needs to know about a physical device.
type DeviceCandidate struct {
	Name              string
	Families          []QueueFamilyInfo
	Extensions        []string
	FormatCount       int
	PresentModeCount  int
	SamplerAnisotropy bool
}

func (c DeviceCandidate) hasExtension(name string) bool {
	for _, e := range c.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// MeetsRequirements checks queues, extensions, swapchain adequacy and
// features, in that order.
func (c DeviceCandidate) MeetsRequirements(req VulkanPhysicalDeviceRequirements) (QueueFamilyIndices, error) {
	indices := FindQueueFamilies(c.Families)
	if !indices.IsComplete() {
		return indices, errors.Newf("device %q lacks a graphics or present queue", c.Name)
	}
	for _, ext := range req.DeviceExtensionNames {
		if !c.hasExtension(ext) {
			return indices, errors.Newf("device %q lacks extension %s", c.Name, ext)
		}
	}
	if c.FormatCount == 0 || c.PresentModeCount == 0 {
		return indices, errors.Newf("device %q has no surface formats or present modes", c.Name)
	}
	if req.SamplerAnisotropy && !c.SamplerAnisotropy {
		return indices, errors.Newf("device %q does not support sampler anisotropy", c.Name)
	}
	return indices, nil
}

// SelectFirstSuitable returns the index of the first candidate meeting the
// requirements. Later candidates are not ranked against it.
func SelectFirstSuitable(candidates []DeviceCandidate, req VulkanPhysicalDeviceRequirements) (int, QueueFamilyIndices, error) {
	for i, c := range candidates {
		indices, err := c.MeetsRequirements(req)
		if err != nil {
			core.LogDebug("skipping device: %s", err.Error())
			continue
		}
		return i, indices, nil
	}
	return -1, QueueFamilyIndices{Graphics: -1, Present: -1, Transfer: -1}, core.Fatal(core.ErrNoSuitableDevice)
}

// DepthFormatCandidates are tried in order.
var DepthFormatCandidates = []vk.Format{
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
	vk.FormatD32Sfloat,
}

// ChooseDepthFormat returns the first candidate whose optimal tiling
// features include depth stencil attachment.
func ChooseDepthFormat(candidates []vk.Format, optimalFeatures func(vk.Format) vk.FormatFeatureFlags) (vk.Format, bool) {
	want := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, f := range candidates {
		if optimalFeatures(f)&want == want {
			return f, true
		}
	}
	return vk.FormatUndefined, false
}

func HasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

func queryCandidate(physicalDevice vk.PhysicalDevice, surface vk.Surface) (DeviceCandidate, error) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &props)
	props.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
	features.Deref()

	candidate := DeviceCandidate{
		Name:              cString(props.DeviceName[:]),
		SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, families)
	for i := range families {
		families[i].Deref()
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, uint32(i), surface, &supported); res != vk.Success {
			return candidate, vulkanError(res, "failed to query surface support of %s", candidate.Name)
		}
		candidate.Families = append(candidate.Families, QueueFamilyInfo{
			Flags:          families[i].QueueFlags,
			QueueCount:     families[i].QueueCount,
			PresentSupport: supported == vk.True,
		})
	}

	extensions, err := deviceExtensions(physicalDevice)
	if err != nil {
		return candidate, err
	}
	candidate.Extensions = extensions

	support, err := DeviceQuerySwapchainSupport(physicalDevice, surface)
	if err != nil {
		return candidate, err
	}
	candidate.FormatCount = len(support.Formats)
	candidate.PresentModeCount = len(support.PresentModes)
	return candidate, nil
}

func deviceExtensions(physicalDevice vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success {
		return nil, vulkanError(res, "error in EnumerateDeviceExtensionProperties")
	}
	props := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, props); res != vk.Success {
			return nil, vulkanError(res, "error in EnumerateDeviceExtensionProperties")
		}
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names, nil
}

// SelectPhysicalDevice stores the first suitable device in context.Device.
func SelectPhysicalDevice(context *VulkanContext) error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, nil); res != vk.Success {
		return vulkanError(res, "failed to enumerate physical devices")
	}
	if count == 0 {
		err := core.Fatal(errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found"))
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &count, physicalDevices); res != vk.Success {
		return vulkanError(res, "failed to enumerate physical devices")
	}

	candidates := make([]DeviceCandidate, 0, count)
	for _, pd := range physicalDevices {
		c, err := queryCandidate(pd, context.Surface)
		if err != nil {
			return err
		}
		candidates = append(candidates, c)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	idx, families, err := SelectFirstSuitable(candidates, requirements)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	device := &VulkanDevice{
		PhysicalDevice:    physicalDevices[idx],
		Name:              candidates[idx].Name,
		Families:          families,
		SamplerAnisotropy: candidates[idx].SamplerAnisotropy,
	}
	vk.GetPhysicalDeviceProperties(device.PhysicalDevice, &device.Properties)
	device.Properties.Deref()
	device.Properties.Limits.Deref()
	device.MaxSamplerAnisotropy = device.Properties.Limits.MaxSamplerAnisotropy
	vk.GetPhysicalDeviceMemoryProperties(device.PhysicalDevice, &device.Memory)
	device.Memory.Deref()

	logDeviceInfo(device)
	context.Device = device
	return nil
}

func logDeviceInfo(device *VulkanDevice) {
	core.LogInfo("Selected device: '%s'.", device.Name)
	switch device.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	api := vk.Version(device.Properties.ApiVersion)
	core.LogInfo("Vulkan API version: %d.%d.%d", api.Major(), api.Minor(), api.Patch())

	for i := uint32(0); i < device.Memory.MemoryHeapCount; i++ {
		device.Memory.MemoryHeaps[i].Deref()
		heap := device.Memory.MemoryHeaps[i]
		gib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", gib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", gib)
		}
	}
	if device.Families.DedicatedTransfer {
		core.LogInfo("Using dedicated transfer queue family %d.", device.Families.Transfer)
	} else {
		core.LogInfo("Transfers share the graphics queue family %d.", device.Families.Graphics)
	}
}

// DeviceCreate selects a physical device and creates the logical device, its
// queues and command pools.
func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	unique := device.Families.UniqueFamilies()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(unique))
	for i, family := range unique {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	features := vk.PhysicalDeviceFeatures{}
	if device.SamplerAnisotropy {
		features.SamplerAnisotropy = vk.True
	}

	available, err := deviceExtensions(device.PhysicalDevice)
	if err != nil {
		return err
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	for _, name := range available {
		if name == portabilitySubsetExtension {
			core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
			extensionNames = append(extensionNames, portabilitySubsetExtension)
			break
		}
	}

	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &info, context.Allocator, &logical); res != vk.Success {
		return vulkanError(res, "failed to create logical device")
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	if err := deviceFinish(context, device); err != nil {
		// release the device and any pools made so far
		DeviceDestroy(context)
		return err
	}
	return nil
}

// deviceFinish obtains the queues, creates the command pools and picks the
// depth format of a freshly created logical device.
func deviceFinish(context *VulkanContext, device *VulkanDevice) error {
	logical := device.LogicalDevice
	device.Graphics = VulkanQueue{FamilyIndex: uint32(device.Families.Graphics)}
	device.Present = VulkanQueue{FamilyIndex: uint32(device.Families.Present)}
	device.Transfer = VulkanQueue{FamilyIndex: uint32(device.Families.Transfer)}
	vk.GetDeviceQueue(logical, device.Graphics.FamilyIndex, 0, &device.Graphics.Handle)
	vk.GetDeviceQueue(logical, device.Present.FamilyIndex, 0, &device.Present.Handle)
	vk.GetDeviceQueue(logical, device.Transfer.FamilyIndex, 0, &device.Transfer.Handle)
	core.LogInfo("Queues obtained.")

	graphicsPool, err := createCommandPool(context, device.Graphics.FamilyIndex,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if err != nil {
		return err
	}
	device.Graphics.CommandPool = graphicsPool
	device.Present.CommandPool = graphicsPool
	core.LogInfo("Graphics command pool created.")

	if device.Families.DedicatedTransfer {
		transferPool, err := createCommandPool(context, device.Transfer.FamilyIndex,
			vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit))
		if err != nil {
			return err
		}
		device.Transfer.CommandPool = transferPool
		core.LogInfo("Transfer command pool created.")
	} else {
		device.Transfer.CommandPool = graphicsPool
	}

	format, ok := ChooseDepthFormat(DepthFormatCandidates, func(f vk.Format) vk.FormatFeatureFlags {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, f, &props)
		props.Deref()
		return props.OptimalTilingFeatures
	})
	if !ok {
		err := core.Fatal(errors.New("failed to find a supported depth format"))
		core.LogError(err.Error())
		return err
	}
	device.DepthFormat = format
	return nil
}

func createCommandPool(context *VulkanContext, family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            flags,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &info, context.Allocator, &pool); res != vk.Success {
		return vk.NullCommandPool, vulkanError(res, "failed to create command pool for family %d", family)
	}
	return pool, nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	context.Device = nil
	if device.LogicalDevice == nil {
		return
	}
	core.LogInfo("Destroying command pools...")
	if device.Transfer.CommandPool != vk.NullCommandPool && device.Transfer.CommandPool != device.Graphics.CommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, device.Transfer.CommandPool, context.Allocator)
	}
	if device.Graphics.CommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, device.Graphics.CommandPool, context.Allocator)
	}

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(device.LogicalDevice, context.Allocator)
	device.LogicalDevice = nil
}
