package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
)

// FenceTimeout waits forever; a hung GPU is reported by the driver as a
// lost device instead.
const FenceTimeout uint64 = math.MaxUint64

// AcquireTimeout bounds how long acquiring an image may block.
const AcquireTimeout uint64 = math.MaxUint64

// TextureFormat is the format of every uploaded color texture.
const TextureFormat = vk.FormatR8g8b8a8Srgb
