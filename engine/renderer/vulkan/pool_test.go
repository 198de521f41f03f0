package vulkan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockPoolSerializesQueueCalls(t *testing.T) {
	pool := NewVulkanLockPool()
	var wg sync.WaitGroup
	inside, maxInside, total := 0, 0, 0
	var mu sync.Mutex

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeQueueCall(1, func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				total++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 16, total)
}

func TestLockPoolReturnsCallbackError(t *testing.T) {
	pool := NewVulkanLockPool()
	err := pool.SafeCall(PipelineManagement, func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}
