package cosched

import "github.com/cosched/cosched/internal/dlist"

// IOStatus identifies one in-flight (or just-completed) I/O operation. Its
// address is its identity: once initiated, an IOStatus must not move or be
// reused until Completed reports it's done — the executor holds a
// pointer to it for the lifetime of the operation (§4, I/O-status record).
//
// The caller owns the storage; typically it's a field embedded in whatever
// struct the task is using to track the operation, often the Task itself.
type IOStatus struct {
	// node is the list node this status is currently linked on (a task's
	// submitted or completed list), so it can be unlinked in O(1) without a
	// scan. Nil when the status isn't on any list.
	node *dlist.Node[*IOStatus]

	cancel func(*Task, *IOStatus) error

	// result aliases owningTask while the operation is in flight: once
	// submitted, Result is meaningless until Completed() is true, at which
	// point it holds the CQE outcome. owningTask is tracked separately in Go
	// (no need for the C union's memory trick) but the two are mutually
	// exclusive by construction, mirroring monad_async_io_status's result/
	// task_ union.
	owningTask *Task
	flags      uint32
	bufferID   uint16
	hasBuffer  bool

	// userData is the user_data value the operation identified by this
	// status was submitted with, recorded so Cancel can target the right
	// in-flight SQE by user_data rather than by address.
	userData uint64

	result Result

	// cqeFlags is the raw completion-queue-entry flags word from the
	// completion that satisfied this status, kept around so a
	// kernel-selected-buffer read can hand it to BufferGroup.Take.
	cqeFlags uint32

	initiated tickCount
	completed tickCount
	reaped    tickCount
}

// Result is the outcome of a completed operation: a byte count on success,
// or an error wrapping the errno the kernel or the cancellation protocol
// produced.
type Result struct {
	N   int32
	Err error
}

const ioInProgress = ^uint32(0)

// NewIOStatus constructs a status record owned by task, with cancel as its
// cancellation hook. NewIOStatus never submits anything: Executor.submit
// takes an *IOStatus and wires it onto the executor's tracking lists.
func NewIOStatus(task *Task, cancel func(*Task, *IOStatus) error) *IOStatus {
	return &IOStatus{owningTask: task, cancel: cancel, flags: ioInProgress}
}

// InProgress reports whether the operation has been submitted but not yet
// completed.
func (s *IOStatus) InProgress() bool {
	return s.flags == ioInProgress
}

// Completed reports whether a CQE has been demultiplexed onto this status.
func (s *IOStatus) Completed() bool {
	return !s.InProgress()
}

// OwningTask returns the task that initiated the operation, or nil if it has
// already completed (mirrors monad_async_io_status_owning_task).
func (s *IOStatus) OwningTask() *Task {
	if s.Completed() {
		return nil
	}
	return s.owningTask
}

// HasBuffer reports whether the completion carried a kernel-selected
// registered buffer (§4.5).
func (s *IOStatus) HasBuffer() bool { return s.hasBuffer }

// BufferID returns the registered buffer index the kernel selected. Only
// meaningful when HasBuffer is true.
func (s *IOStatus) BufferID() uint16 { return s.bufferID }

func (s *IOStatus) markCompleted(now tickCount, res Result, hasBuffer bool, bufferID uint16, cqeFlags uint32) {
	s.completed = now
	s.flags = 0
	s.result = res
	s.hasBuffer = hasBuffer
	s.bufferID = bufferID
	s.cqeFlags = cqeFlags
}

func (s *IOStatus) markReaped(now tickCount) {
	s.reaped = now
}

// link attaches the status to list l and remembers the resulting node so it
// can be removed in O(1) later.
func (s *IOStatus) link(l *dlist.List[*IOStatus]) {
	s.node = l.PushBack(s)
}

// unlink removes the status from whatever list it is currently on, if any.
func (s *IOStatus) unlink(l *dlist.List[*IOStatus]) {
	if s.node == nil {
		return
	}
	l.Remove(s.node)
	s.node = nil
}

// Cancel invokes the status's cancellation hook, used by the executor when
// a task is cancelled while this operation is still in flight (§4.6).
func (s *IOStatus) Cancel(owner *Task) error {
	if s.cancel == nil || s.Completed() {
		return nil
	}
	return s.cancel(owner, s)
}
