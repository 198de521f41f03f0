package metadata

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, uint32(32), VertexSize)
	assert.Equal(t, uint32(0), VertexPositionOffset)
	assert.Equal(t, uint32(12), VertexColorOffset)
	assert.Equal(t, uint32(24), VertexTexCoordOffset)
}

func TestAppendPrimitiveRebasesIndices(t *testing.T) {
	m := &Mesh{}
	tri := []Vertex{{}, {}, {}}
	m.AppendPrimitive(tri, []uint32{0, 1, 2}, 0)
	sm := m.AppendPrimitive(tri, []uint32{2, 1, 0}, 1)

	assert.Equal(t, SubMesh{FirstIndex: 3, IndexCount: 3, FirstVertex: 3, MaterialIndex: 1}, sm)
	assert.Equal(t, []uint32{0, 1, 2, 5, 4, 3}, m.Indices)
	require.NoError(t, m.Validate())
}

func TestValidateCatchesBadIndex(t *testing.T) {
	m := &Mesh{Name: "broken", Vertices: []Vertex{{}}, Indices: []uint32{0, 1}}
	assert.Error(t, m.Validate())
	assert.Error(t, (&Mesh{}).Validate())
}

func TestValidateRequiresSubmeshesToTileIndices(t *testing.T) {
	m := &Mesh{Name: "pair"}
	tri := []Vertex{{}, {}, {}}
	m.AppendPrimitive(tri, []uint32{0, 1, 2}, 0)
	m.AppendPrimitive(tri, []uint32{0, 1, 2}, 1)
	require.NoError(t, m.Validate())

	gap := *m
	gap.SubMeshes = []SubMesh{{FirstIndex: 0, IndexCount: 3}, {FirstIndex: 4, IndexCount: 2}}
	assert.Error(t, gap.Validate())

	short := *m
	short.SubMeshes = []SubMesh{{FirstIndex: 0, IndexCount: 3}}
	assert.Error(t, short.Validate())

	overlap := *m
	overlap.SubMeshes = []SubMesh{{FirstIndex: 0, IndexCount: 4}, {FirstIndex: 3, IndexCount: 3}}
	assert.Error(t, overlap.Validate())
}

func TestExtents(t *testing.T) {
	m := DefaultQuad()
	assert.Equal(t, mgl32.Vec3{-0.5, -0.5, 0}, m.Extents.Min)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0}, m.Extents.Max)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, m.Extents.Center())
}

func TestByteViews(t *testing.T) {
	m := DefaultQuad()
	assert.Len(t, m.VertexBytes(), 4*int(VertexSize))
	assert.Len(t, m.IndexBytes(), 6*4)

	ubo := UniformBufferObject{Model: mgl32.Ident4()}
	assert.Len(t, ubo.Bytes(), 3*64)
	assert.Equal(t, uint64(192), UniformBufferObjectSize)

	img := DefaultImage()
	assert.Equal(t, uint64(4), img.Size())
}

func TestGetAligned(t *testing.T) {
	assert.Equal(t, uint64(0), GetAligned(0, 256))
	assert.Equal(t, uint64(256), GetAligned(1, 256))
	assert.Equal(t, uint64(256), GetAligned(256, 256))
	assert.Equal(t, uint64(512), GetAligned(257, 256))
}

func TestTextureMaps(t *testing.T) {
	def := DefaultTextureMap()
	assert.Equal(t, TextureRepeatRepeat, def.RepeatU)
	assert.True(t, def.Anisotropic)

	clamped := ClampedTextureMap()
	assert.Equal(t, TextureRepeatClampToEdge, clamped.RepeatV)
	assert.False(t, clamped.Anisotropic)
}
