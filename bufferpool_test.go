package cosched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestBufferClassPool(class BufferClass, count uint16, bufLen uint32) *bufferClassPool {
	slab := make([]byte, uint32(count)*bufLen)
	slot := func(id uint16) []byte {
		start := uint32(id) * bufLen
		return slab[start : start+bufLen]
	}
	return newBufferClassPool(class, uint16(class), slot, count)
}

func TestBufferPoolClaimAndRelease(t *testing.T) {
	small := newTestBufferClassPool(SmallBuffer, 2, 4096)
	large := newTestBufferClassPool(LargeBuffer, 1, 65536)
	pool := newBufferPool(small, large)

	b1, ok := pool.tryClaim(SmallBuffer)
	assert.True(t, ok)
	b2, ok := pool.tryClaim(SmallBuffer)
	assert.True(t, ok)

	_, ok = pool.tryClaim(SmallBuffer)
	assert.False(t, ok, "pool of 2 should be exhausted after 2 claims")

	released := false
	pool.release(b1, func(task *Task, buf *Buffer) { released = true })
	assert.False(t, released, "release with no waiters should return to free list, not call onReady")

	b3, ok := pool.tryClaim(SmallBuffer)
	assert.True(t, ok)
	assert.Equal(t, b1.id, b3.id)

	_ = b2
}

func TestBufferPoolWaiterGetsNextRelease(t *testing.T) {
	small := newTestBufferClassPool(SmallBuffer, 1, 4096)
	large := newTestBufferClassPool(LargeBuffer, 1, 4096)
	pool := newBufferPool(small, large)

	b, ok := pool.tryClaim(SmallBuffer)
	assert.True(t, ok)

	task := &Task{}
	task.cpuPriority.Store(int32(Normal))
	pool.enqueueWaiter(SmallBuffer, task)
	assert.Equal(t, High, task.CPUPriority(), "waiting boosts effective CPU priority to High")

	var gotTask *Task
	var gotBuf *Buffer
	pool.release(b, func(task *Task, buf *Buffer) {
		gotTask = task
		gotBuf = buf
	})

	assert.Equal(t, task, gotTask)
	assert.Equal(t, b, gotBuf)
	assert.Equal(t, Normal, task.CPUPriority(), "priority restored once the wait ends")
}
