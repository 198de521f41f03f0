package metadata

/**
 * @brief Decoded texture pixels, always tightly packed RGBA8.
 */
type ImageData struct {
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

/** @brief The number of channels in Pixels. */
const ImageChannelCount = 4

/** @brief A 1x1 opaque white texel, bound when no texture is available. */
func DefaultImage() *ImageData {
	return &ImageData{Width: 1, Height: 1, Pixels: []uint8{255, 255, 255, 255}}
}

func (i *ImageData) Size() uint64 {
	return uint64(i.Width) * uint64(i.Height) * ImageChannelCount
}
