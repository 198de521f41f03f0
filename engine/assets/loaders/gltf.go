package loaders

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// loadGLTF flattens every triangle primitive of every mesh into one Mesh.
// Each primitive becomes a submesh whose indices are rebased by the number
// of vertices appended before it.
func (ml *ModelLoader) loadGLTF(path string) (*metadata.Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening gltf %s", path)
	}

	mesh := &metadata.Mesh{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	for _, material := range doc.Materials {
		mesh.MaterialTextures = append(mesh.MaterialTextures, gltfTexturePath(doc, material, filepath.Dir(path)))
	}

	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				core.LogWarn("gltf %s: mesh %d primitive %d is not a triangle list, skipped", path, mi, pi)
				continue
			}
			vertices, indices, err := gltfPrimitive(doc, prim)
			if err != nil {
				return nil, errors.Wrapf(err, "gltf %s mesh %d primitive %d", path, mi, pi)
			}
			material := int32(-1)
			if prim.Material != nil {
				material = int32(*prim.Material)
			}
			mesh.AppendPrimitive(vertices, indices, material)
		}
	}
	if len(mesh.Indices) == 0 {
		return nil, errors.Newf("gltf %s has no triangles", path)
	}

	model := &metadata.Model{Mesh: mesh}
	model.BaseColor = ml.gltfBaseColor(doc, mesh)
	return model, nil
}

func gltfPrimitive(doc *gltf.Document, prim *gltf.Primitive) ([]metadata.Vertex, []uint32, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil, errors.New("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading positions")
	}

	var uvs [][2]float32
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil); err != nil {
			return nil, nil, errors.Wrap(err, "reading texture coordinates")
		}
	}

	vertices := make([]metadata.Vertex, len(positions))
	for i, p := range positions {
		vertices[i] = metadata.Vertex{
			Position: mgl32.Vec3{p[0], p[1], p[2]},
			Color:    mgl32.Vec3{1, 1, 1},
		}
		if i < len(uvs) {
			vertices[i].TexCoord = mgl32.Vec2{uvs[i][0], uvs[i][1]}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, nil, errors.Wrap(err, "reading indices")
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	return vertices, indices, nil
}

// gltfTexturePath is the base color image path of a material when the
// image is an external file, empty otherwise.
func gltfTexturePath(doc *gltf.Document, material *gltf.Material, dir string) string {
	img := gltfBaseColorImage(doc, material)
	if img == nil || img.URI == "" || img.IsEmbeddedResource() {
		return ""
	}
	return filepath.Join(dir, img.URI)
}

func gltfBaseColorImage(doc *gltf.Document, material *gltf.Material) *gltf.Image {
	if material == nil || material.PBRMetallicRoughness == nil || material.PBRMetallicRoughness.BaseColorTexture == nil {
		return nil
	}
	ti := int(material.PBRMetallicRoughness.BaseColorTexture.Index)
	if ti >= len(doc.Textures) || doc.Textures[ti] == nil {
		return nil
	}
	tex := doc.Textures[ti]
	if tex.Source == nil || int(*tex.Source) >= len(doc.Images) {
		return nil
	}
	return doc.Images[*tex.Source]
}

// gltfBaseColor decodes the first base color texture, whether it is an
// external file, a data URI or a buffer view inside a GLB.
func (ml *ModelLoader) gltfBaseColor(doc *gltf.Document, mesh *metadata.Mesh) *metadata.ImageData {
	for _, material := range doc.Materials {
		img := gltfBaseColorImage(doc, material)
		if img == nil {
			continue
		}

		var data []byte
		var err error
		switch {
		case img.BufferView != nil && int(*img.BufferView) >= len(doc.BufferViews):
			err = errors.Newf("buffer view %d out of range", *img.BufferView)
		case img.BufferView != nil:
			data, err = modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		case img.IsEmbeddedResource():
			data, err = img.MarshalData()
		default:
			return ml.baseColorFromFile(mesh)
		}
		if err == nil {
			var decoded *metadata.ImageData
			if decoded, err = DecodeImageBytes(data); err == nil {
				return decoded
			}
		}
		core.LogWarn("model %s: embedded base color texture: %s", mesh.Name, err)
		return nil
	}
	return nil
}
