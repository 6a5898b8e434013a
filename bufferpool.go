package cosched

import (
	"sync"

	"github.com/cosched/cosched/internal/dlist"
)

// BufferClass selects a size class in the Registered Buffer Pool (§4.5).
type BufferClass int

const (
	SmallBuffer BufferClass = iota
	LargeBuffer
)

func (c BufferClass) String() string {
	if c == LargeBuffer {
		return "large"
	}
	return "small"
}

// Buffer is a claimed slot from a registered buffer group: a byte slice
// backed by memory the kernel knows about, plus enough identity to hand it
// back on Release.
type Buffer struct {
	class   BufferClass
	groupID uint16
	id      uint16
	data    []byte
}

// Bytes returns the claimed buffer's backing storage.
func (b *Buffer) Bytes() []byte { return b.data }

// Class reports which size class b was claimed from.
func (b *Buffer) Class() BufferClass { return b.class }

type bufferWaiter struct {
	task    *Task
	restore func()
}

// bufferClassPool is one size class: a registered buffer group plus a
// free-list of currently unclaimed buffer indices and a FIFO of tasks
// waiting for one to free up. It talks to the backing ring.BufferGroup only
// through groupID/slot so it can be unit-tested without a real io_uring
// ring.
type bufferClassPool struct {
	class   BufferClass
	groupID uint16
	slot    func(id uint16) []byte
	free    []uint16
	waiters *dlist.List[*bufferWaiter]
}

func newBufferClassPool(class BufferClass, groupID uint16, slot func(uint16) []byte, count uint16) *bufferClassPool {
	free := make([]uint16, count)
	for i := range free {
		free[i] = uint16(i)
	}
	return &bufferClassPool{class: class, groupID: groupID, slot: slot, free: free, waiters: dlist.New[*bufferWaiter]()}
}

// bufferPool is the Executor's full Registered Buffer Pool: one
// bufferClassPool per BufferClass (§4.5).
type bufferPool struct {
	mu      sync.Mutex
	classes [2]*bufferClassPool
}

func newBufferPool(small, large *bufferClassPool) *bufferPool {
	return &bufferPool{classes: [2]*bufferClassPool{small, large}}
}

func (p *bufferPool) classOf(c BufferClass) *bufferClassPool {
	return p.classes[c]
}

// tryClaim attempts a non-blocking claim, returning ok=false if the class is
// exhausted.
func (p *bufferPool) tryClaim(class BufferClass) (*Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := p.classOf(class)
	if len(cp.free) == 0 {
		return nil, false
	}
	id := cp.free[len(cp.free)-1]
	cp.free = cp.free[:len(cp.free)-1]
	return &Buffer{class: class, groupID: cp.groupID, id: id, data: cp.slot(id)}, true
}

// enqueueWaiter registers task as waiting for a buffer of class, boosting
// its effective CPU priority for the duration of the wait to avoid the
// priority inversion described in §4.5.
func (p *bufferPool) enqueueWaiter(class BufferClass, task *Task) {
	restore := task.boostCPUPriority()
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := p.classOf(class)
	cp.waiters.PushBack(&bufferWaiter{task: task, restore: restore})
}

// release returns buf to its pool. If a task is waiting (FIFO order), the
// buffer is handed directly to it and onReady is invoked to reschedule that
// task instead of the buffer ever touching the free list.
func (p *bufferPool) release(buf *Buffer, onReady func(*Task, *Buffer)) {
	p.mu.Lock()
	cp := p.classOf(buf.class)
	node := cp.waiters.PopFront()
	if node == nil {
		cp.free = append(cp.free, buf.id)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	w := node.Value()
	w.restore()
	onReady(w.task, buf)
}
