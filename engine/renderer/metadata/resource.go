package metadata

type ResourceType int

/** @brief Asset kinds the catalog knows how to load. */
const (
	/** @brief Unknown file, ignored by the catalog. */
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V shader stage (.spv). */
	ResourceTypeShader
	/** @brief Image decoded into RGBA8 pixels. */
	ResourceTypeTexture
	/** @brief Triangle mesh (OBJ, glTF, GLB). */
	ResourceTypeModel
	/** @brief Raw bytes, no decoding. */
	ResourceTypeBinary
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeTexture:
		return "texture"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeBinary:
		return "binary"
	}
	return "none"
}

/**
 * @brief A generic structure for a loaded asset. All loaders
 * return their data wrapped in one of these.
 */
type Resource struct {
	/** @brief The name of the resource, the file name without directory. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/**
	 * @brief The resource data: []byte for shaders and binaries,
	 * *ImageData for textures, *Model for models.
	 */
	Data interface{}
}

/**
 * @brief A loaded model and the decoded base color texture of its first
 * textured material, if any.
 */
type Model struct {
	Mesh      *Mesh
	BaseColor *ImageData
}
