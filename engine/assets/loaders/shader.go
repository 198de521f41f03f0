package loaders

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SpirvMagic is the first word of a SPIR-V module, little endian.
const SpirvMagic uint32 = 0x07230203

// ShaderLoader reads a compiled SPIR-V stage and checks its header.
type ShaderLoader struct {
	BinaryLoader
}

func (sl *ShaderLoader) Load(path string) (*metadata.Resource, error) {
	res, err := sl.BinaryLoader.Load(path)
	if err != nil {
		return nil, err
	}
	code := res.Data.([]byte)
	if err := ValidateSpirv(code); err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	res.Type = metadata.ResourceTypeShader
	return res, nil
}

// ValidateSpirv checks the size and the magic number of a SPIR-V module.
func ValidateSpirv(code []byte) error {
	if len(code) < 20 || len(code)%4 != 0 {
		return errors.Newf("invalid SPIR-V size %d", len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != SpirvMagic {
		return errors.Newf("invalid SPIR-V magic 0x%08x", magic)
	}
	return nil
}
