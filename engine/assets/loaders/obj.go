package loaders

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type objVertexKey struct {
	position int
	uv       int
}

// loadOBJ decodes the file and its material library. Faces are fanned into
// triangles and grouped into one submesh per object and material.
func (ml *ModelLoader) loadOBJ(path string) (*metadata.Model, error) {
	dec, err := obj.Decode(path, "")
	if err != nil {
		return nil, errors.Wrapf(err, "decoding obj %s", path)
	}

	mesh := &metadata.Mesh{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	materialIndex := map[string]int32{}
	dir := filepath.Dir(path)

	indexOf := func(name string) int32 {
		if idx, ok := materialIndex[name]; ok {
			return idx
		}
		idx := int32(len(mesh.MaterialTextures))
		texture := ""
		if mat, ok := dec.Materials[name]; ok && mat.MapKd != "" {
			texture = filepath.Join(dir, mat.MapKd)
		}
		mesh.MaterialTextures = append(mesh.MaterialTextures, texture)
		materialIndex[name] = idx
		return idx
	}

	for _, object := range dec.Objects {
		groups := map[string][]obj.Face{}
		var order []string
		for _, face := range object.Faces {
			if _, ok := groups[face.Material]; !ok {
				order = append(order, face.Material)
			}
			groups[face.Material] = append(groups[face.Material], face)
		}

		for _, material := range order {
			vertices, indices := objTriangles(dec, groups[material])
			if len(indices) == 0 {
				continue
			}
			mesh.AppendPrimitive(vertices, indices, indexOf(material))
		}
	}
	if len(mesh.Indices) == 0 {
		return nil, errors.Newf("obj %s has no faces", path)
	}

	return &metadata.Model{Mesh: mesh, BaseColor: ml.baseColorFromFile(mesh)}, nil
}

// objTriangles dedups vertices by position and uv index. The V coordinate
// is flipped since Vulkan samples with a top left origin.
func objTriangles(dec *obj.Decoder, faces []obj.Face) ([]metadata.Vertex, []uint32) {
	var vertices []metadata.Vertex
	var indices []uint32
	unique := map[objVertexKey]uint32{}

	add := func(face obj.Face, corner int) {
		key := objVertexKey{position: face.Vertices[corner], uv: -1}
		if corner < len(face.Uvs) {
			key.uv = face.Uvs[corner]
		}
		if idx, ok := unique[key]; ok {
			indices = append(indices, idx)
			return
		}

		v := metadata.Vertex{
			Position: mgl32.Vec3{
				dec.Vertices[key.position*3],
				dec.Vertices[key.position*3+1],
				dec.Vertices[key.position*3+2],
			},
			Color: mgl32.Vec3{1, 1, 1},
		}
		if key.uv >= 0 && key.uv*2+1 < len(dec.Uvs) {
			v.TexCoord = mgl32.Vec2{dec.Uvs[key.uv*2], 1.0 - dec.Uvs[key.uv*2+1]}
		}

		idx := uint32(len(vertices))
		vertices = append(vertices, v)
		unique[key] = idx
		indices = append(indices, idx)
	}

	for _, face := range faces {
		for i := 2; i < len(face.Vertices); i++ {
			add(face, 0)
			add(face, i-1)
			add(face, i)
		}
	}
	return vertices, indices
}
