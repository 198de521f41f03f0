package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	q := NewRingQueue[string](3)
	assert.True(t, q.IsEmpty())

	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	require.NoError(t, q.Enqueue("c"))
	assert.True(t, q.IsFull())
	assert.True(t, errors.Is(q.Enqueue("d"), ErrQueueFull))

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	// wraps around
	require.NoError(t, q.Enqueue("d"))
	for _, want := range []string{"b", "c", "d"} {
		v, err = q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	_, err = q.Dequeue()
	assert.True(t, errors.Is(err, ErrQueueEmpty))
	_, err = q.Peek()
	assert.True(t, errors.Is(err, ErrQueueEmpty))
}
