package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief A single vertex as laid out in the vertex buffer.
 * Locations: 0 = position, 1 = color, 2 = texture coordinate.
 */
type Vertex struct {
	/** @brief Object space position. */
	Position mgl32.Vec3
	/** @brief Per-vertex color multiplied with the sampled texel. */
	Color mgl32.Vec3
	/** @brief Texture coordinate, origin top left. */
	TexCoord mgl32.Vec2
}

/** @brief The stride of one Vertex in bytes. */
const VertexSize = uint32(unsafe.Sizeof(Vertex{}))

/** @brief Byte offsets of each attribute inside a Vertex. */
var (
	VertexPositionOffset = uint32(unsafe.Offsetof(Vertex{}.Position))
	VertexColorOffset    = uint32(unsafe.Offsetof(Vertex{}.Color))
	VertexTexCoordOffset = uint32(unsafe.Offsetof(Vertex{}.TexCoord))
)

/** @brief Axis aligned bounds of a set of vertices. */
type Extents3D struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (e Extents3D) Center() mgl32.Vec3 {
	return e.Min.Add(e.Max).Mul(0.5)
}
