package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// Backend is the graphics API side of the frame loop. Every slot argument is
// in [0, MaxFramesInFlight). Methods are called from the render thread only.
type Backend interface {
	// DrawableExtent is the extent a swapchain created right now would get.
	DrawableExtent() metadata.Extent
	MaxFramesInFlight() int

	// WaitForFrame blocks until the slot's in-flight fence is signaled.
	WaitForFrame(slot int) error
	// AcquireNextImage signals the slot's image available semaphore. Any
	// status other than success, suboptimal or out of date is an error.
	AcquireNextImage(slot int) (uint32, metadata.AcquireStatus, error)
	// ResetFrame unsignals the slot's in-flight fence.
	ResetFrame(slot int) error
	RecordFrame(slot int, imageIndex uint32) error
	WriteUniforms(slot int, ubo *metadata.UniformBufferObject) error
	// SubmitFrame waits on image available, signals render finished and the
	// in-flight fence.
	SubmitFrame(slot int) error
	PresentFrame(slot int, imageIndex uint32) (metadata.PresentStatus, error)

	// RecreateSwapchain waits for the device to go idle and rebuilds every
	// extent dependent resource. It returns core.ErrSwapchainNotReady when
	// the drawable extent is zero and leaves the old swapchain in place.
	RecreateSwapchain() error
	WaitIdle() error
	Shutdown() error
}

// Surface reports window resizes to the frame loop.
type Surface interface {
	ResizeRequested() bool
	ResizeHandled()
}

// CameraSource supplies the matrices for the uniform payload. The frame loop
// only reads them.
type CameraSource interface {
	View() mgl32.Mat4
	Projection() mgl32.Mat4
}
