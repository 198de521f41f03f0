package systems

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobCallbacksRunOnUpdate(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	var completed, failed atomic.Int32
	require.NoError(t, js.Submit(metadata.JobTask{
		Name:       "ok",
		Type:       metadata.JOB_TYPE_RESOURCE_LOAD,
		OnStart:    func() (interface{}, error) { return 42, nil },
		OnComplete: func(r interface{}) { completed.Add(int32(r.(int))) },
	}))
	require.NoError(t, js.Submit(metadata.JobTask{
		Name:      "broken",
		OnStart:   func() (interface{}, error) { return nil, errors.New("boom") },
		OnFailure: func(error) { failed.Add(1) },
	}))

	// nothing runs until the owner calls Update
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), completed.Load())

	handled := 0
	require.Eventually(t, func() bool {
		handled += js.Update()
		return handled == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(42), completed.Load())
	assert.Equal(t, int32(1), failed.Load())
}

func TestJobSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	err = js.Submit(metadata.JobTask{Name: "late", OnStart: func() (interface{}, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrJobSystemClosed)
	assert.Error(t, js.Submit(metadata.JobTask{Name: "empty"}))
	assert.Equal(t, 0, js.Update())
}

func TestJobSubmitRacingShutdown(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)

	var ran atomic.Int32
	task := metadata.JobTask{
		Name: "count",
		Type: metadata.JOB_TYPE_GENERAL,
		OnStart: func() (interface{}, error) {
			ran.Add(1)
			return nil, nil
		},
	}

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				err := js.Submit(task)
				if err != nil {
					assert.ErrorIs(t, err, ErrJobSystemClosed)
					return
				}
				accepted.Add(1)
			}
		}()
	}

	assert.NotPanics(t, func() { require.NoError(t, js.Shutdown()) })
	wg.Wait()
	// every accepted job ran before Shutdown returned
	assert.Equal(t, accepted.Load(), ran.Load())
}
