package loaders

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// ModelLoader picks the decoder from the file extension. The base color
// texture of the first textured material is decoded too; a texture that
// fails to load only produces a warning.
type ModelLoader struct {
	textures TextureLoader
}

func (ml *ModelLoader) Load(path string) (*metadata.Resource, error) {
	var (
		model *metadata.Model
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		model, err = ml.loadOBJ(path)
	case ".gltf", ".glb":
		model, err = ml.loadGLTF(path)
	default:
		return nil, errors.Newf("unsupported model format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	model.Mesh.ComputeExtents()
	if err := model.Mesh.Validate(); err != nil {
		return nil, err
	}
	core.LogInfo("loaded model %s: %d vertices, %d indices, %d submeshes",
		model.Mesh.Name, len(model.Mesh.Vertices), len(model.Mesh.Indices), len(model.Mesh.SubMeshes))

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeModel,
		DataSize: uint64(len(model.Mesh.Vertices))*uint64(metadata.VertexSize) + uint64(len(model.Mesh.Indices))*4,
		Data:     model,
	}, nil
}

func (ml *ModelLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// baseColorFromFile decodes the first non-empty material texture path.
func (ml *ModelLoader) baseColorFromFile(mesh *metadata.Mesh) *metadata.ImageData {
	for _, p := range mesh.MaterialTextures {
		if p == "" {
			continue
		}
		res, err := ml.textures.Load(p)
		if err != nil {
			core.LogWarn("model %s: %s", mesh.Name, err)
			return nil
		}
		return res.Data.(*metadata.ImageData)
	}
	return nil
}
