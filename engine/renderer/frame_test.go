package renderer

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFence models a GPU fence: a submission makes it pending, a wait
// completes whatever was submitted last.
type fakeFence struct {
	signaled  bool
	pending   uint64
	completed uint64
}

type fakeBackend struct {
	t *testing.T

	extent     metadata.Extent
	imageCount uint32
	nextImage  uint32

	fences      []fakeFence
	submitCount uint64
	calls       []string
	uniforms    []metadata.UniformBufferObject

	acquireQueue []metadata.AcquireStatus
	presentQueue []metadata.PresentStatus
	presentErr   error

	// waitedFor records, per tick in order, which submission each fence wait observed.
	waitedFor []uint64
}

func newFakeBackend(t *testing.T) *fakeBackend {
	fb := &fakeBackend{
		t:          t,
		extent:     metadata.Extent{Width: 1280, Height: 720},
		imageCount: 3,
		fences:     make([]fakeFence, 2),
	}
	for i := range fb.fences {
		fb.fences[i].signaled = true
	}
	return fb
}

func (fb *fakeBackend) log(format string, args ...interface{}) {
	fb.calls = append(fb.calls, fmt.Sprintf(format, args...))
}

func (fb *fakeBackend) DrawableExtent() metadata.Extent { return fb.extent }
func (fb *fakeBackend) MaxFramesInFlight() int          { return len(fb.fences) }

func (fb *fakeBackend) WaitForFrame(slot int) error {
	f := &fb.fences[slot]
	if !f.signaled {
		f.completed = f.pending
		f.signaled = true
	}
	fb.waitedFor = append(fb.waitedFor, f.completed)
	fb.log("wait:%d", slot)
	return nil
}

func (fb *fakeBackend) AcquireNextImage(slot int) (uint32, metadata.AcquireStatus, error) {
	status := metadata.AcquireSuccess
	if len(fb.acquireQueue) > 0 {
		status = fb.acquireQueue[0]
		fb.acquireQueue = fb.acquireQueue[1:]
	}
	img := fb.nextImage
	if status != metadata.AcquireOutOfDate {
		fb.nextImage = (fb.nextImage + 1) % fb.imageCount
	}
	fb.log("acquire:%d:%d", slot, img)
	return img, status, nil
}

func (fb *fakeBackend) ResetFrame(slot int) error {
	f := &fb.fences[slot]
	require.True(fb.t, f.signaled, "reset of slot %d while its fence is unsignaled", slot)
	f.signaled = false
	fb.log("reset:%d", slot)
	return nil
}

func (fb *fakeBackend) RecordFrame(slot int, imageIndex uint32) error {
	fb.log("record:%d:%d", slot, imageIndex)
	return nil
}

func (fb *fakeBackend) WriteUniforms(slot int, ubo *metadata.UniformBufferObject) error {
	fb.uniforms = append(fb.uniforms, *ubo)
	fb.log("uniforms:%d", slot)
	return nil
}

func (fb *fakeBackend) SubmitFrame(slot int) error {
	f := &fb.fences[slot]
	require.False(fb.t, f.signaled, "submit of slot %d without a fence reset", slot)
	fb.submitCount++
	f.pending = fb.submitCount
	fb.log("submit:%d", slot)
	return nil
}

func (fb *fakeBackend) PresentFrame(slot int, imageIndex uint32) (metadata.PresentStatus, error) {
	if fb.presentErr != nil {
		return metadata.PresentSuccess, fb.presentErr
	}
	status := metadata.PresentSuccess
	if len(fb.presentQueue) > 0 {
		status = fb.presentQueue[0]
		fb.presentQueue = fb.presentQueue[1:]
	}
	fb.log("present:%d:%d", slot, imageIndex)
	return status, nil
}

func (fb *fakeBackend) RecreateSwapchain() error {
	if fb.extent.IsZero() {
		fb.log("recreate:not-ready")
		return core.ErrSwapchainNotReady
	}
	// device idle: every submission finished
	for i := range fb.fences {
		fb.fences[i].completed = fb.fences[i].pending
		fb.fences[i].signaled = true
	}
	fb.nextImage = 0
	fb.log("recreate")
	return nil
}

func (fb *fakeBackend) WaitIdle() error {
	fb.log("idle")
	return nil
}

func (fb *fakeBackend) Shutdown() error {
	fb.log("shutdown")
	return nil
}

type fakeSurface struct {
	resize  bool
	handled int
}

func (fs *fakeSurface) ResizeRequested() bool { return fs.resize }
func (fs *fakeSurface) ResizeHandled() {
	fs.resize = false
	fs.handled++
}

type fixedCamera struct{}

func (fixedCamera) View() mgl32.Mat4       { return mgl32.Translate3D(0, 0, -2) }
func (fixedCamera) Projection() mgl32.Mat4 { return mgl32.Scale3D(1, -1, 1) }

func draw(t *testing.T, fe *FrameEngine) FrameResult {
	res, err := fe.DrawFrame(mgl32.Ident4(), fixedCamera{})
	require.NoError(t, err)
	return res
}

func TestDrawFrameOrdering(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})

	res := draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.Equal(t, []string{
		"wait:0", "acquire:0:0", "reset:0", "record:0:0", "uniforms:0", "submit:0", "present:0:0",
	}, fb.calls)
	assert.Equal(t, 1, fe.CurrentSlot())
	assert.Equal(t, SlotPresenting, fe.SlotState(0))

	require.Len(t, fb.uniforms, 1)
	assert.Equal(t, mgl32.Ident4(), fb.uniforms[0].Model)
	assert.Equal(t, fixedCamera{}.View(), fb.uniforms[0].View)
	assert.Equal(t, fixedCamera{}.Projection(), fb.uniforms[0].Projection)
}

func TestSlotsRotateAndFenceGatesReuse(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})

	for i := 0; i < 6; i++ {
		res := draw(t, fe)
		assert.Equal(t, i%2, res.Slot, "tick %d", i)
	}

	// tick 3 (index 2) reuses slot 0 and must observe tick 1's submission
	// (submission #1); tick 4 observes submission #2 on slot 1, and so on.
	assert.Equal(t, []uint64{0, 0, 1, 2, 3, 4}, fb.waitedFor)
	assert.Equal(t, []uint64{3, 3}, fe.Stats().SlotSubmissions)
	assert.Equal(t, uint64(6), fe.Stats().FrameNumber)
}

func TestZeroExtentSkipsWithoutTouchingSync(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	draw(t, fe)
	fb.calls = nil

	fb.extent = metadata.Extent{Width: 0, Height: 720}
	for i := 0; i < 3; i++ {
		res := draw(t, fe)
		assert.Equal(t, FrameSkipped, res.Status)
	}
	assert.Empty(t, fb.calls)
	assert.Equal(t, 1, fe.CurrentSlot())
	assert.Equal(t, uint64(1), fe.Stats().FrameNumber)
	assert.Equal(t, uint64(3), fe.Stats().Skipped)

	// restoring the window resumes on the same slot
	fb.extent = metadata.Extent{Width: 800, Height: 600}
	res := draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.Equal(t, 1, res.Slot)
}

func TestAcquireOutOfDateDropsFrame(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	fb.acquireQueue = []metadata.AcquireStatus{metadata.AcquireOutOfDate}

	res := draw(t, fe)
	assert.Equal(t, FrameDropped, res.Status)
	assert.True(t, res.Recreated)
	assert.Equal(t, []string{"wait:0", "acquire:0:0", "recreate"}, fb.calls)
	assert.Equal(t, 0, fe.CurrentSlot(), "a dropped frame does not advance the slot")

	fb.calls = nil
	res = draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.Equal(t, 0, res.Slot)
	assert.Equal(t, "wait:0", fb.calls[0])
}

func TestAcquireSuboptimalStillRenders(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	fb.acquireQueue = []metadata.AcquireStatus{metadata.AcquireSuboptimal}

	res := draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.Contains(t, fb.calls, "submit:0")
}

func TestPresentOutOfDateRecreatesAndNextTickIsNormal(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	draw(t, fe)

	fb.presentQueue = []metadata.PresentStatus{metadata.PresentOutOfDate}
	fb.extent = metadata.Extent{Width: 1024, Height: 768}
	fb.calls = nil
	res := draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.True(t, res.Recreated)
	assert.Equal(t, "recreate", fb.calls[len(fb.calls)-1])
	assert.Equal(t, uint64(1), fe.Stats().Recreations)

	fb.calls = nil
	res = draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.False(t, res.Recreated)
	assert.Equal(t, []string{
		"wait:0", "acquire:0:0", "reset:0", "record:0:0", "uniforms:0", "submit:0", "present:0:0",
	}, fb.calls)
}

func TestPresentSuboptimalRecreates(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	fb.presentQueue = []metadata.PresentStatus{metadata.PresentSuboptimal}

	res := draw(t, fe)
	assert.True(t, res.Recreated)
	assert.Equal(t, uint64(1), fe.Stats().Recreations)
}

func TestWindowResizeFlagIsConsumed(t *testing.T) {
	fb := newFakeBackend(t)
	surface := &fakeSurface{resize: true}
	fe := NewFrameEngine(fb, surface)

	res := draw(t, fe)
	assert.True(t, res.Recreated)
	assert.False(t, surface.resize)
	assert.Equal(t, 1, surface.handled)

	res = draw(t, fe)
	assert.False(t, res.Recreated)
}

func TestRefreshRequestRecreatesBeforeNextFrame(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	fe.RequestRefresh()
	assert.True(t, fe.Stats().PendingRefresh)

	res := draw(t, fe)
	assert.True(t, res.Recreated)
	assert.Equal(t, "recreate", fb.calls[0])
	assert.False(t, fe.Stats().PendingRefresh)
}

func TestRecreateWhileMinimizedStaysPending(t *testing.T) {
	fb := newFakeBackend(t)
	surface := &fakeSurface{}
	fe := NewFrameEngine(fb, surface)

	// the window gets minimized between acquire and present
	fb.presentQueue = []metadata.PresentStatus{metadata.PresentOutOfDate}
	surface.resize = true
	fb.extent = metadata.Extent{Width: 1280, Height: 720}
	fe.backend = &shrinkOnPresent{fakeBackend: fb}

	res := draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.True(t, fe.Stats().PendingRecreate)

	draw(t, fe) // still minimized
	assert.True(t, fe.Stats().PendingRecreate)

	fb.extent = metadata.Extent{Width: 640, Height: 480}
	fb.calls = nil
	res = draw(t, fe)
	assert.Equal(t, FramePresented, res.Status)
	assert.True(t, res.Recreated)
	assert.Equal(t, "recreate", fb.calls[0])
	assert.False(t, fe.Stats().PendingRecreate)
}

type shrinkOnPresent struct {
	*fakeBackend
}

func (s *shrinkOnPresent) PresentFrame(slot int, imageIndex uint32) (metadata.PresentStatus, error) {
	st, err := s.fakeBackend.PresentFrame(slot, imageIndex)
	s.extent = metadata.Extent{}
	return st, err
}

func TestPresentErrorIsFatal(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	fb.presentErr = errors.New("device lost")

	_, err := fe.DrawFrame(mgl32.Ident4(), fixedCamera{})
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
}

func TestRecreateFailureIsFatal(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(&failingRecreate{fakeBackend: fb}, &fakeSurface{})
	fe.RequestRefresh()

	_, err := fe.DrawFrame(mgl32.Ident4(), fixedCamera{})
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
}

type failingRecreate struct {
	*fakeBackend
}

func (f *failingRecreate) RecreateSwapchain() error {
	return errors.New("vkCreateSwapchainKHR failed")
}

func TestShutdownWaitsIdle(t *testing.T) {
	fb := newFakeBackend(t)
	fe := NewFrameEngine(fb, &fakeSurface{})
	draw(t, fe)
	require.NoError(t, fe.Shutdown())
	assert.Equal(t, "idle", fb.calls[len(fb.calls)-1])
	assert.Equal(t, SlotIdle, fe.SlotState(0))
}
