package renderer

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSceneBackend struct {
	*fakeBackend

	vsync     bool
	meshes    []string
	textures  []*metadata.ImageData
	reloads   int
	reloadErr error
}

func (fs *fakeSceneBackend) LoadMesh(mesh *metadata.Mesh) error {
	fs.meshes = append(fs.meshes, mesh.Name)
	return nil
}

func (fs *fakeSceneBackend) LoadTexture(img *metadata.ImageData) error {
	fs.textures = append(fs.textures, img)
	return nil
}

func (fs *fakeSceneBackend) SetVSync(enabled bool) { fs.vsync = enabled }
func (fs *fakeSceneBackend) VSync() bool           { return fs.vsync }

func (fs *fakeSceneBackend) ReloadPipeline(vertexCode, fragmentCode []byte) error {
	fs.log("reload:%s:%s", vertexCode, fragmentCode)
	if fs.reloadErr != nil {
		return fs.reloadErr
	}
	fs.reloads++
	return nil
}

func newFakeScene(t *testing.T) *fakeSceneBackend {
	return &fakeSceneBackend{fakeBackend: newFakeBackend(t)}
}

func TestRendererLoadScene(t *testing.T) {
	fs := newFakeScene(t)
	r := NewRenderer(fs, &fakeSurface{})

	require.NoError(t, r.LoadScene(&metadata.Mesh{Name: "room"}, nil))
	assert.Equal(t, []string{"room"}, fs.meshes)
	require.Len(t, fs.textures, 1)
	assert.Nil(t, fs.textures[0])
}

func TestRendererVSyncToggleRefreshesOnce(t *testing.T) {
	fs := newFakeScene(t)
	r := NewRenderer(fs, &fakeSurface{})

	r.SetVSync(false)
	res, err := r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	require.NoError(t, err)
	assert.False(t, res.Recreated)

	r.SetVSync(true)
	assert.True(t, r.VSync())
	res, err = r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	require.NoError(t, err)
	assert.True(t, res.Recreated)
	assert.Equal(t, uint64(1), r.Stats().Recreations)

	res, err = r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	require.NoError(t, err)
	assert.False(t, res.Recreated)
}

func TestRendererPipelineReloadKeepsLatestRequest(t *testing.T) {
	fs := newFakeScene(t)
	r := NewRenderer(fs, &fakeSurface{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RequestPipelineReload([]byte("v"), []byte("f"))
		}()
	}
	wg.Wait()

	_, err := r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	require.NoError(t, err)
	assert.Equal(t, 1, fs.reloads)
	assert.Equal(t, "reload:v:f", fs.calls[0])

	_, err = r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	require.NoError(t, err)
	assert.Equal(t, 1, fs.reloads)
}

func TestRendererFailedReloadIsNotFatal(t *testing.T) {
	fs := newFakeScene(t)
	fs.reloadErr = errors.New("bad shader")
	r := NewRenderer(fs, &fakeSurface{})

	r.RequestPipelineReload([]byte("v"), []byte("f"))
	res, err := r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	require.NoError(t, err)
	assert.Equal(t, FramePresented, res.Status)
}

func TestRendererShutdownIsIdempotent(t *testing.T) {
	fs := newFakeScene(t)
	r := NewRenderer(fs, &fakeSurface{})

	require.NoError(t, r.Shutdown())
	require.NoError(t, r.Shutdown())
	assert.Equal(t, []string{"idle", "shutdown"}, fs.calls)

	_, err := r.Update(0.016, fixedCamera{}, mgl32.Ident4())
	assert.Error(t, err)
}
