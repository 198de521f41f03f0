package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SlotState tracks what the CPU may do with a frame slot.
type SlotState uint8

const (
	SlotIdle SlotState = iota
	SlotRecording
	SlotSubmitted
	SlotPresenting
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	case SlotPresenting:
		return "presenting"
	}
	return "unknown"
}

// FrameStatus is the outcome of one tick.
type FrameStatus uint8

const (
	// FramePresented went through acquire, record, submit and present.
	FramePresented FrameStatus = iota
	// FrameSkipped did nothing because the drawable extent is zero.
	FrameSkipped
	// FrameDropped acquired an out of date image; the swapchain was rebuilt
	// and nothing was submitted.
	FrameDropped
)

func (s FrameStatus) String() string {
	switch s {
	case FramePresented:
		return "presented"
	case FrameSkipped:
		return "skipped"
	case FrameDropped:
		return "dropped"
	}
	return "unknown"
}

type FrameResult struct {
	Status     FrameStatus
	Slot       int
	ImageIndex uint32
	// Recreated is set when the swapchain was rebuilt during the tick.
	Recreated bool
}

// FrameStats are counters exposed for the editor and for tests.
type FrameStats struct {
	FrameNumber       uint64
	Recreations       uint64
	Skipped           uint64
	Dropped           uint64
	SlotSubmissions   []uint64
	PendingRecreate   bool
	PendingRefresh    bool
	CurrentSlot       int
	MaxFramesInFlight int
}

// FrameEngine drives the acquire, record, submit, present cycle over a fixed
// ring of frame slots. It is not safe for concurrent use; RequestRefresh is
// the only method that may be called from another goroutine through
// Renderer.
type FrameEngine struct {
	backend Backend
	surface Surface

	slots       []SlotState
	submissions []uint64
	current     int

	frameNumber uint64
	recreations uint64
	skipped     uint64
	dropped     uint64

	// needsRecreate survives ticks where the rebuild could not happen
	// because the window was minimized.
	needsRecreate  bool
	refreshPending bool
}

func NewFrameEngine(backend Backend, surface Surface) *FrameEngine {
	n := backend.MaxFramesInFlight()
	return &FrameEngine{
		backend:     backend,
		surface:     surface,
		slots:       make([]SlotState, n),
		submissions: make([]uint64, n),
	}
}

// RequestRefresh asks for a full swapchain rebuild on the next drawable tick,
// e.g. after toggling vertical sync.
func (fe *FrameEngine) RequestRefresh() {
	fe.refreshPending = true
}

func (fe *FrameEngine) CurrentSlot() int {
	return fe.current
}

func (fe *FrameEngine) SlotState(slot int) SlotState {
	return fe.slots[slot]
}

func (fe *FrameEngine) Stats() FrameStats {
	subs := make([]uint64, len(fe.submissions))
	copy(subs, fe.submissions)
	return FrameStats{
		FrameNumber:       fe.frameNumber,
		Recreations:       fe.recreations,
		Skipped:           fe.skipped,
		Dropped:           fe.dropped,
		SlotSubmissions:   subs,
		PendingRecreate:   fe.needsRecreate,
		PendingRefresh:    fe.refreshPending,
		CurrentSlot:       fe.current,
		MaxFramesInFlight: len(fe.slots),
	}
}

// DrawFrame runs one tick. Any returned error is fatal; recoverable swapchain
// conditions are absorbed here and reported through FrameResult.
func (fe *FrameEngine) DrawFrame(model mgl32.Mat4, camera CameraSource) (FrameResult, error) {
	slot := fe.current
	result := FrameResult{Slot: slot}

	// A minimized window touches nothing, not even the fence.
	if fe.backend.DrawableExtent().IsZero() {
		fe.skipped++
		result.Status = FrameSkipped
		return result, nil
	}

	if fe.needsRecreate || fe.refreshPending {
		ok, err := fe.recreate()
		if err != nil {
			return result, err
		}
		if !ok {
			fe.skipped++
			result.Status = FrameSkipped
			return result, nil
		}
		fe.refreshPending = false
		result.Recreated = true
	}

	if err := fe.backend.WaitForFrame(slot); err != nil {
		return result, core.Fatal(errors.Wrapf(err, "waiting for frame slot %d", slot))
	}
	fe.slots[slot] = SlotIdle

	imageIndex, status, err := fe.backend.AcquireNextImage(slot)
	if err != nil {
		return result, core.Fatal(errors.Wrap(err, "acquiring swapchain image"))
	}
	if status == metadata.AcquireOutOfDate {
		// The fence stays signaled so the slot can be waited on again.
		if _, err := fe.recreate(); err != nil {
			return result, err
		}
		fe.dropped++
		result.Status = FrameDropped
		result.Recreated = true
		return result, nil
	}
	result.ImageIndex = imageIndex

	if err := fe.beginSlot(slot); err != nil {
		return result, err
	}
	if err := fe.backend.ResetFrame(slot); err != nil {
		return result, core.Fatal(errors.Wrapf(err, "resetting fence of slot %d", slot))
	}

	if err := fe.backend.RecordFrame(slot, imageIndex); err != nil {
		return result, core.Fatal(errors.Wrapf(err, "recording slot %d", slot))
	}

	ubo := metadata.UniformBufferObject{
		Model:      model,
		View:       camera.View(),
		Projection: camera.Projection(),
	}
	if err := fe.backend.WriteUniforms(slot, &ubo); err != nil {
		return result, core.Fatal(errors.Wrapf(err, "writing uniforms of slot %d", slot))
	}

	if err := fe.backend.SubmitFrame(slot); err != nil {
		return result, core.Fatal(errors.Wrapf(err, "submitting slot %d", slot))
	}
	fe.slots[slot] = SlotSubmitted
	fe.submissions[slot]++

	presentStatus, err := fe.backend.PresentFrame(slot, imageIndex)
	if err != nil {
		return result, core.Fatal(errors.Wrap(err, "presenting swapchain image"))
	}
	fe.slots[slot] = SlotPresenting

	resized := fe.surface != nil && fe.surface.ResizeRequested()
	if presentStatus != metadata.PresentSuccess || resized {
		core.LogDebug("swapchain stale after present (present=%s, resize=%t)", presentStatus, resized)
		if _, err := fe.recreate(); err != nil {
			return result, err
		}
		if fe.surface != nil {
			fe.surface.ResizeHandled()
		}
		result.Recreated = true
	}

	result.Status = FramePresented
	fe.frameNumber++
	fe.current = (fe.current + 1) % len(fe.slots)
	return result, nil
}

// beginSlot guards CPU access to a slot whose fence has not been waited on.
func (fe *FrameEngine) beginSlot(slot int) error {
	if fe.slots[slot] != SlotIdle {
		return core.Fatal(errors.Wrapf(core.ErrSlotBusy, "slot %d is %s", slot, fe.slots[slot]))
	}
	fe.slots[slot] = SlotRecording
	return nil
}

// recreate rebuilds the swapchain. It reports false when the window is
// minimized, in which case the rebuild stays pending.
func (fe *FrameEngine) recreate() (bool, error) {
	err := fe.backend.RecreateSwapchain()
	switch {
	case err == nil:
		fe.needsRecreate = false
		fe.recreations++
		// the device went idle, so every fence is signaled again
		for i := range fe.slots {
			fe.slots[i] = SlotIdle
		}
		return true, nil
	case errors.Is(err, core.ErrSwapchainNotReady):
		fe.needsRecreate = true
		return false, nil
	default:
		return false, core.Fatal(errors.Wrap(err, "recreating swapchain"))
	}
}

// Shutdown drains the device so the backend can release resources.
func (fe *FrameEngine) Shutdown() error {
	if err := fe.backend.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for device idle")
	}
	for i := range fe.slots {
		fe.slots[i] = SlotIdle
	}
	return nil
}
