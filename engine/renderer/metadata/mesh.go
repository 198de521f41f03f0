package metadata

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief One draw range inside the shared vertex/index buffers.
 * Indices in the range are already rebased onto the shared vertex buffer.
 */
type SubMesh struct {
	FirstIndex    uint32
	IndexCount    uint32
	FirstVertex   uint32
	MaterialIndex int32
}

/**
 * @brief A flattened model: every primitive shares one vertex and one index buffer.
 */
type Mesh struct {
	Name      string
	Vertices  []Vertex
	Indices   []uint32
	SubMeshes []SubMesh
	/** @brief Texture paths per material index, empty when the material has none. */
	MaterialTextures []string
	Extents          Extents3D
}

/**
 * @brief Appends vertices and indices as a new submesh. The incoming indices
 * are relative to the appended vertices and get rebased by the current
 * vertex count.
 */
func (m *Mesh) AppendPrimitive(vertices []Vertex, indices []uint32, materialIndex int32) SubMesh {
	sm := SubMesh{
		FirstIndex:    uint32(len(m.Indices)),
		IndexCount:    uint32(len(indices)),
		FirstVertex:   uint32(len(m.Vertices)),
		MaterialIndex: materialIndex,
	}
	for _, idx := range indices {
		m.Indices = append(m.Indices, idx+sm.FirstVertex)
	}
	m.Vertices = append(m.Vertices, vertices...)
	m.SubMeshes = append(m.SubMeshes, sm)
	return sm
}

/** @brief Recomputes the bounding box from the vertex positions. */
func (m *Mesh) ComputeExtents() {
	if len(m.Vertices) == 0 {
		m.Extents = Extents3D{}
		return
	}
	min := m.Vertices[0].Position
	max := min
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < min[i] {
				min[i] = v.Position[i]
			}
			if v.Position[i] > max[i] {
				max[i] = v.Position[i]
			}
		}
	}
	m.Extents = Extents3D{Min: min, Max: max}
}

/**
 * @brief Every index must address an existing vertex. Submeshes, when
 * present, must tile the index buffer in order with no gap or overlap.
 */
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return errors.Newf("mesh %q is empty", m.Name)
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return errors.Newf("mesh %q index %d out of range: %d >= %d", m.Name, i, idx, len(m.Vertices))
		}
	}
	if len(m.SubMeshes) == 0 {
		return nil
	}
	next := uint64(0)
	for i, sm := range m.SubMeshes {
		if uint64(sm.FirstIndex) != next {
			return errors.Newf("mesh %q submesh %d starts at index %d, expected %d", m.Name, i, sm.FirstIndex, next)
		}
		next += uint64(sm.IndexCount)
		if next > uint64(len(m.Indices)) {
			return errors.Newf("mesh %q submesh %d exceeds the index buffer", m.Name, i)
		}
	}
	if next != uint64(len(m.Indices)) {
		return errors.Newf("mesh %q submeshes cover %d of %d indices", m.Name, next, len(m.Indices))
	}
	return nil
}

/** @brief Raw bytes of the vertex slice, ready for upload. */
func (m *Mesh) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), len(m.Vertices)*int(VertexSize))
}

/** @brief Raw bytes of the index slice, ready for upload. */
func (m *Mesh) IndexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), len(m.Indices)*4)
}

/** @brief A quad facing +z, used when no model is configured. */
func DefaultQuad() *Mesh {
	m := &Mesh{Name: "default-quad"}
	white := mgl32.Vec3{1, 1, 1}
	m.AppendPrimitive([]Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: white, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: white, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: white, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: white, TexCoord: mgl32.Vec2{1, 1}},
	}, []uint32{0, 1, 2, 2, 3, 0}, -1)
	m.ComputeExtents()
	return m
}
