package loaders

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureLoader decodes any registered image format into tightly packed
// RGBA8 pixels.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string) (*metadata.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening texture %s", path)
	}
	defer file.Close()

	img, err := DecodeImage(file)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %s", path)
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeTexture,
		DataSize: img.Size(),
		Data:     img,
	}, nil
}

func (tl *TextureLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// DecodeImage decodes r and converts the result to RGBA8.
func DecodeImage(r io.Reader) (*metadata.ImageData, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, errors.Newf("empty %s image", format)
	}

	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*metadata.ImageChannelCount || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	}
	return &metadata.ImageData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}, nil
}

// DecodeImageBytes is DecodeImage over an in-memory file, e.g. a texture
// embedded in a GLB buffer.
func DecodeImageBytes(data []byte) (*metadata.ImageData, error) {
	return DecodeImage(bytes.NewReader(data))
}
