package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func checkerImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

func TestShaderLoaderValidatesHeader(t *testing.T) {
	dir := t.TempDir()
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, SpirvMagic)
	good := filepath.Join(dir, "ok.spv")
	require.NoError(t, os.WriteFile(good, code, 0o644))

	res, err := (&ShaderLoader{}).Load(good)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeShader, res.Type)
	assert.Equal(t, uint64(20), res.DataSize)

	bad := writeFile(t, dir, "bad.spv", "not a shader, just text!")
	_, err = (&ShaderLoader{}).Load(bad)
	assert.Error(t, err)

	_, err = (&ShaderLoader{}).Load(filepath.Join(dir, "missing.spv"))
	assert.Error(t, err)
}

func TestTextureLoaderPNG(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "checker.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checkerImage()))
	require.NoError(t, f.Close())

	res, err := (&TextureLoader{}).Load(p)
	require.NoError(t, err)
	img := res.Data.(*metadata.ImageData)
	assert.Equal(t, uint32(2), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	require.Len(t, img.Pixels, 16)
	assert.Equal(t, []uint8{255, 0, 0, 255}, img.Pixels[0:4])
	assert.Equal(t, []uint8{0, 255, 0, 255}, img.Pixels[4:8])
	assert.Equal(t, []uint8{0, 0, 255, 255}, img.Pixels[8:12])
}

func TestTextureLoaderBMP(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "checker.bmp")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, checkerImage()))
	require.NoError(t, f.Close())

	res, err := (&TextureLoader{}).Load(p)
	require.NoError(t, err)
	img := res.Data.(*metadata.ImageData)
	assert.Equal(t, img.Size(), uint64(len(img.Pixels)))
	assert.Equal(t, []uint8{255, 255, 255, 255}, img.Pixels[12:16])
}

func TestTextureLoaderRejectsGarbage(t *testing.T) {
	p := writeFile(t, t.TempDir(), "noise.png", "definitely not a png")
	_, err := (&TextureLoader{}).Load(p)
	assert.Error(t, err)
}

const quadOBJ = `mtllib quad.mtl
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl painted
f 1/1 2/2 3/3 4/4
`

const quadMTL = `newmtl painted
Kd 1 1 1
map_Kd checker.png
`

func TestModelLoaderOBJ(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "quad.obj", quadOBJ)
	writeFile(t, dir, "quad.mtl", quadMTL)
	f, err := os.Create(filepath.Join(dir, "checker.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checkerImage()))
	require.NoError(t, f.Close())

	res, err := (&ModelLoader{}).Load(p)
	require.NoError(t, err)
	model := res.Data.(*metadata.Model)
	mesh := model.Mesh

	// a quad fans into two triangles over four unique corners
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	require.Len(t, mesh.SubMeshes, 1)
	assert.Equal(t, uint32(6), mesh.SubMeshes[0].IndexCount)

	// V is flipped
	assert.Equal(t, float32(1), mesh.Vertices[0].TexCoord.Y())
	assert.Equal(t, float32(0), mesh.Vertices[2].TexCoord.Y())

	assert.Equal(t, float32(-1), mesh.Extents.Min.X())
	assert.Equal(t, float32(1), mesh.Extents.Max.Y())

	require.NotNil(t, model.BaseColor)
	assert.Equal(t, uint32(2), model.BaseColor.Width)
}

func TestModelLoaderGLB(t *testing.T) {
	doc := gltf.NewDocument()
	tri := &gltf.Primitive{
		Indices: gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
		Attributes: gltf.Attribute{
			gltf.POSITION:   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
			gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}}),
		},
	}
	second := &gltf.Primitive{
		Indices: gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
		Attributes: gltf.Attribute{
			gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}}),
		},
	}
	doc.Meshes = []*gltf.Mesh{{Name: "pair", Primitives: []*gltf.Primitive{tri, second}}}

	p := filepath.Join(t.TempDir(), "pair.glb")
	require.NoError(t, gltf.SaveBinary(doc, p))

	res, err := (&ModelLoader{}).Load(p)
	require.NoError(t, err)
	mesh := res.Data.(*metadata.Model).Mesh

	assert.Len(t, mesh.Vertices, 6)
	require.Len(t, mesh.SubMeshes, 2)
	assert.Equal(t, uint32(3), mesh.SubMeshes[1].FirstVertex)
	assert.Equal(t, uint32(3), mesh.SubMeshes[1].FirstIndex)
	assert.Equal(t, int32(-1), mesh.SubMeshes[1].MaterialIndex)
	// the second primitive's indices are rebased onto the shared buffer
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, mesh.Indices)
	assert.Equal(t, float32(1), mesh.Vertices[1].TexCoord.X())
	assert.Nil(t, res.Data.(*metadata.Model).BaseColor)
}

func TestGLTFBaseColorOutOfRangeIndices(t *testing.T) {
	doc := gltf.NewDocument()
	material := &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 3},
		},
	}
	doc.Materials = []*gltf.Material{material}
	assert.Nil(t, gltfBaseColorImage(doc, material))
	assert.Empty(t, gltfTexturePath(doc, material, "."))

	material.PBRMetallicRoughness.BaseColorTexture.Index = 0
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(7)}}
	assert.Nil(t, gltfBaseColorImage(doc, material))

	doc.Images = []*gltf.Image{{MimeType: "image/png", BufferView: gltf.Index(9)}}
	doc.Textures[0].Source = gltf.Index(0)
	require.NotNil(t, gltfBaseColorImage(doc, material))
	mesh := &metadata.Mesh{Name: "broken"}
	assert.NotPanics(t, func() {
		assert.Nil(t, (&ModelLoader{}).gltfBaseColor(doc, mesh))
	})
}

func TestModelLoaderUnknownExtension(t *testing.T) {
	p := writeFile(t, t.TempDir(), "model.fbx", "")
	_, err := (&ModelLoader{}).Load(p)
	assert.Error(t, err)
}
