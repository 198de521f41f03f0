package renderer

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SceneBackend is a Backend that can also hold the scene resources and swap
// its pipeline at runtime.
type SceneBackend interface {
	Backend

	LoadMesh(mesh *metadata.Mesh) error
	LoadTexture(img *metadata.ImageData) error
	SetVSync(enabled bool)
	VSync() bool
	ReloadPipeline(vertexCode, fragmentCode []byte) error
}

type shaderPair struct {
	vertex   []byte
	fragment []byte
}

// Renderer is the facade the engine talks to. Everything except
// RequestRefresh and RequestPipelineReload must be called from the thread
// that owns the window.
type Renderer struct {
	backend SceneBackend
	frames  *FrameEngine

	refresh atomic.Bool

	reloadMu      sync.Mutex
	pendingReload *shaderPair

	lastResult FrameResult
	down       bool
}

func NewRenderer(backend SceneBackend, surface Surface) *Renderer {
	return &Renderer{
		backend: backend,
		frames:  NewFrameEngine(backend, surface),
	}
}

// LoadScene uploads the mesh and texture. A nil texture falls back to the
// backend's default white image.
func (r *Renderer) LoadScene(mesh *metadata.Mesh, texture *metadata.ImageData) error {
	if mesh != nil {
		if err := r.backend.LoadMesh(mesh); err != nil {
			return errors.Wrapf(err, "loading mesh %s", mesh.Name)
		}
	}
	if err := r.backend.LoadTexture(texture); err != nil {
		return errors.Wrap(err, "loading texture")
	}
	return nil
}

// ReloadTexture replaces the bound texture after an idle wait.
func (r *Renderer) ReloadTexture(texture *metadata.ImageData) error {
	if err := r.backend.WaitIdle(); err != nil {
		return err
	}
	return r.backend.LoadTexture(texture)
}

// Update runs one frame. Pending refresh and pipeline reload requests are
// applied first.
func (r *Renderer) Update(deltaTime float64, camera CameraSource, model mgl32.Mat4) (FrameResult, error) {
	if r.down {
		return FrameResult{}, errors.New("renderer is shut down")
	}
	if r.refresh.Swap(false) {
		r.frames.RequestRefresh()
	}
	r.applyPipelineReload()

	result, err := r.frames.DrawFrame(model, camera)
	if err != nil {
		return result, err
	}
	r.lastResult = result
	return result, nil
}

func (r *Renderer) applyPipelineReload() {
	r.reloadMu.Lock()
	pending := r.pendingReload
	r.pendingReload = nil
	r.reloadMu.Unlock()

	if pending == nil {
		return
	}
	if err := r.backend.ReloadPipeline(pending.vertex, pending.fragment); err != nil {
		// the previous pipeline stays bound
		core.LogError("pipeline reload failed: %s", err)
		return
	}
	core.LogInfo("pipeline reloaded")
}

// SetVSync changes the present mode preference and schedules a swapchain
// rebuild.
func (r *Renderer) SetVSync(enabled bool) {
	if r.backend.VSync() == enabled {
		return
	}
	r.backend.SetVSync(enabled)
	r.RequestRefresh()
}

func (r *Renderer) VSync() bool {
	return r.backend.VSync()
}

// RequestRefresh may be called from any goroutine.
func (r *Renderer) RequestRefresh() {
	r.refresh.Store(true)
}

// RequestPipelineReload may be called from any goroutine. Only the latest
// request is kept.
func (r *Renderer) RequestPipelineReload(vertexCode, fragmentCode []byte) {
	r.reloadMu.Lock()
	r.pendingReload = &shaderPair{vertex: vertexCode, fragment: fragmentCode}
	r.reloadMu.Unlock()
}

func (r *Renderer) Extent() metadata.Extent {
	return r.backend.DrawableExtent()
}

func (r *Renderer) Stats() FrameStats {
	return r.frames.Stats()
}

func (r *Renderer) LastResult() FrameResult {
	return r.lastResult
}

// Shutdown waits for the GPU and releases every backend resource. It is safe
// to call more than once.
func (r *Renderer) Shutdown() error {
	if r.down {
		return nil
	}
	r.down = true
	if err := r.frames.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	return r.backend.Shutdown()
}
