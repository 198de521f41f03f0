package core

import (
	"bytes"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReleasesInReverseOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	for _, name := range []string{"instance", "device", "swapchain", "view"} {
		n := name
		r.Track(n, func() { order = append(order, n) })
	}
	require.Equal(t, 4, r.Len())

	r.ReleaseAll()
	assert.Equal(t, []string{"view", "swapchain", "device", "instance"}, order)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryReleaseSingle(t *testing.T) {
	r := NewRegistry()
	released := 0
	id := r.Track("staging", func() { released++ })
	r.Track("texture", func() {})

	require.NoError(t, r.Release(id))
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, r.Len())

	assert.Error(t, r.Release(id))
}

func TestFatalMarking(t *testing.T) {
	err := Fatal(errors.Wrap(ErrNoSuitableDevice, "select device"))
	assert.True(t, IsFatal(err))
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))

	assert.False(t, IsFatal(ErrSwapchainNotReady))
	assert.Nil(t, Fatal(nil))
}

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.016)
	}
	assert.InDelta(t, 16.0, m.FrameTime(), 1e-9)

	// 70 frames of 16ms cross the one second boundary
	for i := 0; i < 40; i++ {
		m.Update(0.016)
	}
	assert.Greater(t, m.FPS(), 0.0)
}

func TestInputKeyEdges(t *testing.T) {
	in := NewInput()
	in.ProcessKey(KEY_TAB, true)
	assert.True(t, in.KeyPressed(KEY_TAB))

	in.Update()
	assert.True(t, in.IsKeyDown(KEY_TAB))
	assert.False(t, in.KeyPressed(KEY_TAB))

	in.ProcessKey(KEY_TAB, false)
	assert.True(t, in.IsKeyUp(KEY_TAB))
	assert.True(t, in.WasKeyDown(KEY_TAB))
}

func TestInputMouseDelta(t *testing.T) {
	in := NewInput()
	in.ProcessMouseMove(100, 50)
	dx, dy := in.MouseDelta()
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	in.Update()
	in.ProcessMouseMove(110, 45)
	dx, dy = in.MouseDelta()
	assert.Equal(t, 10.0, dx)
	assert.Equal(t, -5.0, dy)

	in.ProcessMouseWheel(1.5)
	assert.Equal(t, 1.5, in.Scroll())
	in.Update()
	assert.Zero(t, in.Scroll())
}

func TestLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		_ = SetLogLevel("debug")
	})

	require.NoError(t, SetLogLevel("warn"))
	LogInfo("hidden")
	LogWarn("visible %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible 1")

	assert.Error(t, SetLogLevel("loud"))
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	c.Update()
	assert.GreaterOrEqual(t, c.Elapsed(), 0.0)
	c.Stop()
	e := c.Elapsed()
	c.Update()
	assert.Equal(t, e, c.Elapsed())
}

func TestEventBusDispatchOrderAndHandled(t *testing.T) {
	bus := NewEventBus()
	var seen []string
	first, second := "first", "second"

	require.True(t, bus.Register(EVENT_CODE_RESIZED, first, func(_ SystemEventCode, _ interface{}, l interface{}, ctx EventContext) bool {
		seen = append(seen, l.(string))
		return ctx.Data.B
	}))
	require.True(t, bus.Register(EVENT_CODE_RESIZED, second, func(_ SystemEventCode, _ interface{}, l interface{}, _ EventContext) bool {
		seen = append(seen, l.(string))
		return false
	}))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, first, func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }))

	assert.False(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}))
	assert.Equal(t, []string{"first", "second"}, seen)

	seen = nil
	var ctx EventContext
	ctx.Data.B = true
	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, ctx))
	assert.Equal(t, []string{"first"}, seen)
}

func TestEventBusUnregister(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	cb := func(SystemEventCode, interface{}, interface{}, EventContext) bool { calls++; return false }

	require.True(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, "a", cb))
	require.True(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, "b", cb))
	assert.True(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "a"))
	assert.False(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "a"))

	bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})
	assert.Equal(t, 1, calls)

	bus.Shutdown()
	assert.False(t, bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))
	assert.False(t, bus.Register(MAX_EVENT_CODE+1, "c", cb))
}
