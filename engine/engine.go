package engine

import (
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/config"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/editor"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}

// Editor shaders live next to the scene shaders under the asset root.
const (
	EditorVertexShader   = "shaders/imgui.vert.spv"
	EditorFragmentShader = "shaders/imgui.frag.spv"
)

// Asset reloads decode on these workers; the upload happens on the main thread.
const (
	jobWorkers   = 2
	jobQueueSize = 16
)

// minimizedWait is how long a tick blocks on window events while the
// drawable extent is zero, in seconds.
const minimizedWait = 0.1

var _ renderer.SceneBackend = (*vulkan.VulkanBackend)(nil)

type Engine struct {
	currentStage Stage
	config       *config.Config
	gameInstance *Game

	input        *core.Input
	window       *platform.Window
	assetManager *assets.AssetManager
	backend      *vulkan.VulkanBackend
	renderer     *renderer.Renderer
	editor       editor.Editor
	jobs         *systems.JobSystem
	events       *core.EventBus

	scene   *Scene
	panel   editor.Panel
	clock   *core.Clock
	metrics *core.Metrics

	lastTime    float64
	isRunning   atomic.Bool
	isSuspended bool
	width       uint32
	height      uint32
}

func New(g *Game, cfg *config.Config) (*Engine, error) {
	if g == nil {
		return nil, errors.New("game instance is required")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		core.LogWarn("unknown log level %q, keeping the default", cfg.Log.Level)
	}
	e := &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		gameInstance: g,
		input:        core.NewInput(),
		events:       core.NewEventBus(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	return e, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Events is the bus the engine fires quit, resize, suspend, vsync and
// asset reload events on.
func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) onEvent(code core.SystemEventCode, _ interface{}, _ interface{}, _ core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down")
		e.Stop()
		return true
	}
	return false
}

// Initialize brings the subsystems up in order: window, asset catalog,
// Vulkan backend, renderer and scene, editor. On failure whatever was
// already created is torn down again.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return errors.Newf("engine cannot initialize from stage %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if err := e.initialize(); err != nil {
		core.LogError("engine initialization failed: %s", err)
		_ = e.Shutdown()
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized")
	return nil
}

func (e *Engine) initialize() error {
	cfg := e.config

	window, err := platform.NewWindow(platform.WindowConfig{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
	}, e.input)
	if err != nil {
		return err
	}
	e.window = window

	jobs, err := systems.NewJobSystem(jobWorkers, jobQueueSize)
	if err != nil {
		return err
	}
	e.jobs = jobs

	am, err := assets.NewAssetManager(cfg.Assets.Root)
	if err != nil {
		return err
	}
	e.assetManager = am
	if cfg.Assets.Watch {
		if err := am.Watch(); err != nil {
			core.LogWarn("asset hot reload disabled: %s", err)
		}
	}

	vertexCode, err := am.LoadShader(cfg.Assets.VertexShader)
	if err != nil {
		return err
	}
	fragmentCode, err := am.LoadShader(cfg.Assets.FragmentShader)
	if err != nil {
		return err
	}

	backend, err := vulkan.NewVulkanBackend(window, vulkan.BackendConfig{
		ApplicationName:   cfg.Window.Title,
		Validation:        cfg.Renderer.Validation,
		VSync:             cfg.Renderer.VSync,
		MaxFramesInFlight: cfg.Renderer.MaxFramesInFlight,
		ClearColor:        cfg.Renderer.ClearColor,
		VertexShader:      vertexCode,
		FragmentShader:    fragmentCode,
	})
	if err != nil {
		return err
	}
	e.backend = backend
	e.renderer = renderer.NewRenderer(backend, window)

	mesh, texture := e.loadSceneAssets()
	if err := e.renderer.LoadScene(mesh, texture); err != nil {
		return err
	}

	e.width, e.height = window.DrawableSize()
	camera := components.NewCamera(mgl32.Vec3(cfg.Camera.Position))
	camera.SetPitchYaw(cfg.Camera.PitchYaw[0], cfg.Camera.PitchYaw[1])
	camera.FOV = cfg.Camera.FOV
	camera.Near = cfg.Camera.Near
	camera.Far = cfg.Camera.Far
	camera.MoveSpeed = cfg.Camera.MoveSpeed
	camera.RotSpeed = cfg.Camera.RotSpeed
	camera.SetExtent(e.width, e.height)

	e.scene = &Scene{
		Object: NewGameObject(mesh.Name),
		Camera: camera,
		Mesh:   mesh,
		Events: e.events,
	}
	e.panel.ModelScale = 1

	e.editor = e.createEditor()
	if err := e.editor.Init(); err != nil {
		core.LogWarn("editor disabled: %s", err)
		e.editor = editor.NopEditor{}
	}
	if sink, ok := e.editor.(platform.InputSink); ok {
		window.SetInputSink(sink)
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.scene); err != nil {
			return errors.Wrap(err, "game initialize")
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return errors.Wrap(err, "game resize")
		}
	}
	return nil
}

// loadSceneAssets loads the configured model and texture. A model that
// fails to load is replaced by a textured quad; a missing texture falls back
// to the model's embedded base color, then to white.
func (e *Engine) loadSceneAssets() (*metadata.Mesh, *metadata.ImageData) {
	cfg := e.config.Assets

	var mesh *metadata.Mesh
	var texture *metadata.ImageData
	if cfg.Model != "" {
		model, err := e.assetManager.LoadModel(cfg.Model)
		if err != nil {
			core.LogWarn("model %s not loaded, using a quad: %s", cfg.Model, err)
		} else {
			mesh = model.Mesh
			texture = model.BaseColor
		}
	}
	if mesh == nil {
		mesh = metadata.DefaultQuad()
	}

	if cfg.Texture != "" {
		img, err := e.assetManager.LoadTexture(cfg.Texture)
		if err != nil {
			core.LogWarn("texture %s not loaded: %s", cfg.Texture, err)
		} else {
			texture = img
		}
	}
	return mesh, texture
}

func (e *Engine) createEditor() editor.Editor {
	if !e.config.Editor.Enabled {
		return editor.NopEditor{}
	}
	vertexCode, err := e.assetManager.LoadShader(EditorVertexShader)
	if err != nil {
		core.LogWarn("editor disabled, vertex shader: %s", err)
		return editor.NopEditor{}
	}
	fragmentCode, err := e.assetManager.LoadShader(EditorFragmentShader)
	if err != nil {
		core.LogWarn("editor disabled, fragment shader: %s", err)
		return editor.NopEditor{}
	}
	return editor.NewImguiEditor(e.backend, e.window, vertexCode, fragmentCode)
}

// Run ticks until the window closes, Stop is called, or a fatal error
// occurs.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run from stage %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if err := e.tick(); err != nil {
			e.isRunning.Store(false)
			return err
		}
	}
	return nil
}

// Stop ends the loop after the current tick. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) tick() error {
	closeRequested, _ := e.window.PollEvents()
	if closeRequested {
		core.LogInfo("window close requested, shutting down")
		e.Stop()
		return nil
	}

	e.processAssetEvents()
	e.jobs.Update()

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime

	if e.handleResize() {
		// Suspended: the frame engine would skip the tick anyway, so block
		// on events instead of spinning.
		e.window.WaitEvents(minimizedWait)
		e.input.Update()
		return nil
	}

	frameStart := e.clock.Elapsed()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta, e.scene); err != nil {
			return errors.Wrap(err, "game update failed")
		}
	}
	e.scene.Object.Update(delta)

	if e.input.KeyPressed(core.KEY_ESCAPE) {
		// NOTE: other listeners may be interested in the quit too
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
	}
	if e.input.KeyPressed(core.KEY_F1) {
		e.setVSync(!e.renderer.VSync())
	}
	ApplyCameraInput(e.input, e.scene.Camera, float32(delta))
	e.scene.Camera.Update(float32(delta))

	e.buildEditor(delta)

	result, err := e.renderer.Update(delta, e.scene.Camera, e.scene.Object.ModelMatrix())
	if err != nil {
		return err
	}
	if result.Status == renderer.FrameDropped {
		core.LogDebug("frame dropped, swapchain recreated")
	}

	e.clock.Update()
	e.metrics.Update(e.clock.Elapsed() - frameStart)

	// input state is copied last so KeyPressed sees this tick's edges
	e.input.Update()
	return nil
}

// handleResize tracks the drawable size and reports whether the engine is
// suspended because the window is minimized.
func (e *Engine) handleResize() bool {
	width, height := e.window.DrawableSize()
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("window minimized, suspending")
			e.isSuspended = true
			e.fireSuspended(true)
		}
		return true
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming")
		e.isSuspended = false
		e.fireSuspended(false)
	}
	if width != e.width || height != e.height {
		e.width, e.height = width, height
		e.scene.Camera.SetExtent(width, height)
		if e.gameInstance.FnOnResize != nil {
			if err := e.gameInstance.FnOnResize(width, height); err != nil {
				core.LogError("game resize: %s", err)
			}
		}
		var ctx core.EventContext
		ctx.Data.U32[0] = width
		ctx.Data.U32[1] = height
		e.events.Fire(core.EVENT_CODE_RESIZED, e, ctx)
	}
	return false
}

func (e *Engine) fireSuspended(suspended bool) {
	var ctx core.EventContext
	ctx.Data.B = suspended
	e.events.Fire(core.EVENT_CODE_SUSPENDED, e, ctx)
}

func (e *Engine) setVSync(enabled bool) {
	e.renderer.SetVSync(enabled)
	core.LogInfo("vsync %t", enabled)
	var ctx core.EventContext
	ctx.Data.B = enabled
	e.events.Fire(core.EVENT_CODE_VSYNC_CHANGED, e, ctx)
}

func (e *Engine) fireReloaded(path string) {
	var ctx core.EventContext
	ctx.Data.S = path
	e.events.Fire(core.EVENT_CODE_ASSET_RELOADED, e, ctx)
}

func (e *Engine) buildEditor(delta float64) {
	e.editor.NewFrame(delta)

	fps, frameMS := e.metrics.Frame()
	info := e.backend.Info()
	camera := e.scene.Camera
	object := e.scene.Object
	mesh := e.scene.Mesh

	e.panel.FPS = fps
	e.panel.FrameMS = frameMS
	e.panel.Delta = delta
	e.panel.Frames = e.renderer.Stats()
	e.panel.Present = info.PresentMode
	e.panel.Device = info.DeviceName
	e.panel.MeshName = mesh.Name
	e.panel.Vertices = len(mesh.Vertices)
	e.panel.Indices = len(mesh.Indices)
	e.panel.SubMeshes = len(mesh.SubMeshes)
	e.panel.VSync = e.renderer.VSync()
	e.panel.CameraPosition = camera.Position
	e.panel.CameraPitchYaw = camera.PitchYaw
	e.panel.CameraVelocity = camera.Velocity
	e.panel.ModelRotation = object.Transform.Rotation
	e.panel.ModelScale = object.Transform.Scale.X()

	e.editor.Build(&e.panel)
	e.applyPanel()
}

// applyPanel copies the fields the editor may have changed back into the
// scene.
func (e *Engine) applyPanel() {
	p := &e.panel
	camera := e.scene.Camera
	object := e.scene.Object

	if p.VSync != e.renderer.VSync() {
		e.setVSync(p.VSync)
	}
	if p.CameraPosition != camera.Position {
		camera.SetPosition(p.CameraPosition)
	}
	if p.CameraPitchYaw != camera.PitchYaw {
		camera.SetPitchYaw(p.CameraPitchYaw.X(), p.CameraPitchYaw.Y())
	}
	camera.Velocity = p.CameraVelocity
	if p.ModelRotation != object.Transform.Rotation {
		object.Transform.SetRotation(p.ModelRotation)
	}
	if p.ModelScale > 0 && p.ModelScale != object.Transform.Scale.X() {
		object.Transform.SetScale(mgl32.Vec3{p.ModelScale, p.ModelScale, p.ModelScale})
	}
}

// processAssetEvents turns file changes into reload requests.
func (e *Engine) processAssetEvents() {
	for _, ev := range e.assetManager.Drain() {
		if ev.Kind == assets.AssetRemoved {
			core.LogDebug("asset removed: %s", ev.Path)
			continue
		}
		switch ev.Type {
		case metadata.ResourceTypeShader:
			if e.isSceneShader(ev.Path) {
				e.reloadShaders()
			}
		case metadata.ResourceTypeTexture:
			if samePath(ev.Path, e.assetManager.Resolve(e.config.Assets.Texture)) {
				e.reloadTexture(ev.Path)
			}
		case metadata.ResourceTypeModel:
			if samePath(ev.Path, e.assetManager.Resolve(e.config.Assets.Model)) {
				e.reloadModel(ev.Path)
			}
		}
	}
}

func (e *Engine) isSceneShader(path string) bool {
	return samePath(path, e.assetManager.Resolve(e.config.Assets.VertexShader)) ||
		samePath(path, e.assetManager.Resolve(e.config.Assets.FragmentShader))
}

// shaderPair is the result of a shader reload job.
type shaderPair struct {
	vertex   []byte
	fragment []byte
}

func (e *Engine) reloadShaders() {
	am := e.assetManager
	vertexPath, fragmentPath := e.config.Assets.VertexShader, e.config.Assets.FragmentShader
	e.submitReload(metadata.JobTask{
		Name: "shaders",
		Type: metadata.JOB_TYPE_RESOURCE_LOAD,
		OnStart: func() (interface{}, error) {
			vertexCode, err := am.LoadShader(vertexPath)
			if err != nil {
				return nil, err
			}
			fragmentCode, err := am.LoadShader(fragmentPath)
			if err != nil {
				return nil, err
			}
			return shaderPair{vertex: vertexCode, fragment: fragmentCode}, nil
		},
		OnComplete: func(result interface{}) {
			pair := result.(shaderPair)
			e.renderer.RequestPipelineReload(pair.vertex, pair.fragment)
			e.fireReloaded(vertexPath)
		},
	})
}

func (e *Engine) reloadTexture(path string) {
	am := e.assetManager
	e.submitReload(metadata.JobTask{
		Name: path,
		Type: metadata.JOB_TYPE_RESOURCE_LOAD,
		OnStart: func() (interface{}, error) {
			return am.LoadTexture(path)
		},
		OnComplete: func(result interface{}) {
			if err := e.renderer.ReloadTexture(result.(*metadata.ImageData)); err != nil {
				core.LogError("texture reload failed: %s", err)
				return
			}
			core.LogInfo("texture %s reloaded", path)
			e.fireReloaded(path)
		},
	})
}

func (e *Engine) reloadModel(path string) {
	am := e.assetManager
	e.submitReload(metadata.JobTask{
		Name: path,
		Type: metadata.JOB_TYPE_RESOURCE_LOAD,
		OnStart: func() (interface{}, error) {
			return am.LoadModel(path)
		},
		OnComplete: func(result interface{}) {
			model := result.(*metadata.Model)
			if err := e.renderer.LoadScene(model.Mesh, model.BaseColor); err != nil {
				core.LogError("model reload failed: %s", err)
				return
			}
			e.scene.Mesh = model.Mesh
			core.LogInfo("model %s reloaded", path)
			e.fireReloaded(path)
		},
	})
}

// submitReload queues a decode job. A failed decode keeps what is on screen.
func (e *Engine) submitReload(task metadata.JobTask) {
	task.OnFailure = func(err error) {
		core.LogWarn("reload of %s skipped: %s", task.Name, err)
	}
	if err := e.jobs.Submit(task); err != nil {
		core.LogWarn("reload of %s not queued: %s", task.Name, err)
	}
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// Shutdown tears the engine down in reverse creation order: game, reload
// workers, editor, renderer and backend, asset watcher, window. It is safe to call more than
// once and after a failed Initialize.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs error
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.WaitIdle(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.jobs != nil {
		if err := e.jobs.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.editor != nil {
		if err := e.editor.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	} else if e.backend != nil {
		if err := e.backend.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.assetManager != nil {
		if err := e.assetManager.Shutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.window != nil {
		e.window.Destroy()
	}
	e.events.Shutdown()
	core.LogInfo("engine shut down")
	return errs
}

// ApplyCameraInput maps WASD to camera velocity, Q/E to height, the wheel to
// a dolly along the view direction and, while the mouse is captured, mouse
// motion to pan and tilt.
func ApplyCameraInput(input *core.Input, camera *components.Camera, dt float32) {
	var velocity mgl32.Vec3
	if input.IsKeyDown(core.KEY_W) {
		velocity[2] -= 1
	}
	if input.IsKeyDown(core.KEY_S) {
		velocity[2] += 1
	}
	if input.IsKeyDown(core.KEY_D) {
		velocity[0] += 1
	}
	if input.IsKeyDown(core.KEY_A) {
		velocity[0] -= 1
	}
	camera.Velocity = velocity

	if input.IsKeyDown(core.KEY_E) {
		camera.Raise(camera.MoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_Q) {
		camera.Raise(-camera.MoveSpeed * dt)
	}
	if scroll := input.Scroll(); scroll != 0 {
		camera.Slew(mgl32.Vec3{0, 0, float32(scroll) * 0.1})
	}

	if input.MouseCaptured() {
		dx, dy := input.MouseDelta()
		if dx != 0 || dy != 0 {
			camera.ProcessMouse(dx, dy)
		}
	}
}
