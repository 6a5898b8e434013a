package cosched

import (
	"sync/atomic"
	"time"

	"github.com/cosched/cosched/internal/dlist"
	"github.com/cosched/cosched/switcher"
)

// State is a task's position in the state machine from §4.2:
//
//	pending_launch -> running -> {suspended_*} -> running -> ... -> exited
type State int32

const (
	StatePendingLaunch State = iota
	StateRunning
	StateSuspendedAwaitingSQENonWrite
	StateSuspendedAwaitingSQEWrite
	StateSuspendedAwaitingCompletion
	StateSuspendedCompletionReady
	StateExited
)

func (s State) String() string {
	switch s {
	case StatePendingLaunch:
		return "pending_launch"
	case StateRunning:
		return "running"
	case StateSuspendedAwaitingSQENonWrite:
		return "suspended_awaiting_sqe_nonwrite"
	case StateSuspendedAwaitingSQEWrite:
		return "suspended_awaiting_sqe_write"
	case StateSuspendedAwaitingCompletion:
		return "suspended_awaiting_completion"
	case StateSuspendedCompletionReady:
		return "suspended_completion_ready"
	case StateExited:
		return "exited"
	default:
		return "invalid"
	}
}

func (s State) suspended() bool {
	switch s {
	case StateSuspendedAwaitingSQENonWrite, StateSuspendedAwaitingSQEWrite,
		StateSuspendedAwaitingCompletion, StateSuspendedCompletionReady:
		return true
	default:
		return false
	}
}

// CancelState is the cancellation protocol's own state machine (§4.6),
// tracked separately from State because a cancel request can arrive while
// the task is in any of several states and has to be reconciled with
// whatever the io_uring ring eventually reports.
type CancelState int32

const (
	CancelNotRequested CancelState = iota
	CancelRequestedNotSeen
	CancelSeenAwaitingURing
	CancelSeen
	CancelCancelled
)

// Attr configures a Task at construction (§4.2).
type Attr struct {
	CPUPriority Priority
	IOPriority  Priority
	// IORecipient optionally redirects I/O completions to a different task
	// than the one that initiated them.
	IORecipient *Task
}

// Body is the user code a Task runs. Its return value becomes Task.Result.
type Body func(t *Task) int

// Task is one cooperatively scheduled unit of work: a private Context plus
// the bookkeeping the Executor needs to order, suspend, resume, and cancel
// it (§3, §4.2).
type Task struct {
	sw   switcher.Switcher
	ctx  *switcher.Context
	body Body

	ioRecipient *Task

	cpuPriority atomic.Int32
	ioPriority  atomic.Int32

	state       atomic.Int32
	cancelState atomic.Int32

	currentExecutor atomic.Pointer[Executor]

	ticksSubmitted            tickCount
	ticksAttached             tickCount
	ticksDetached             tickCount
	ticksSuspendedAwaiting    tickCount
	ticksSuspendedCompleted   tickCount
	ticksResumed              tickCount
	totalTicksExecuted        tickCount

	ioSubmitted          atomic.Uint64
	ioCompletedNotReaped atomic.Uint64

	// submitted/completed track this task's in-flight IOStatus records so
	// Destroy/Cancel can walk and cancel them without a separate index.
	submitted *dlist.List[*IOStatus]
	completed *dlist.List[*IOStatus]

	// runNode is the node this task occupies on whichever per-priority
	// executor queue (run queue or completion-ready) currently owns it.
	runNode *dlist.Node[*Task]

	// wakeResult is set by the executor to hand this task's suspend point a
	// result: a completed IOStatus or a claimed Buffer. See executor.go's
	// demux and releaseBuffer.
	wakeResult any

	result int
	exited chan struct{}
}

// Create constructs a Task bound to sw, running body once launched. The
// Context is primed but not started: the task only begins executing once
// Attach'd to an Executor and scheduled.
func Create(sw switcher.Switcher, attr Attr, body Body) (*Task, error) {
	t := &Task{
		sw:          sw,
		body:        body,
		ioRecipient: attr.IORecipient,
		submitted:   dlist.New[*IOStatus](),
		completed:   dlist.New[*IOStatus](),
		exited:      make(chan struct{}),
	}
	t.state.Store(int32(StatePendingLaunch))
	t.cancelState.Store(int32(CancelNotRequested))
	t.cpuPriority.Store(int32(attr.CPUPriority.orNormal()))
	t.ioPriority.Store(int32(attr.IOPriority.orNormal()))
	if t.ioRecipient == nil {
		t.ioRecipient = t
	}

	ctx, err := sw.Create(t)
	if err != nil {
		return nil, newOpError("task_create", CodeConstruction, 0, err.Error())
	}
	t.ctx = ctx
	return t, nil
}

// Run is switcher.Runnable's entry point: the task's private goroutine
// invokes this once primed.
func (t *Task) Run() int {
	return t.body(t)
}

// Detach is switcher.Runnable's post-run hook.
func (t *Task) Detach(result int) {
	t.result = result
	t.state.Store(int32(StateExited))
	close(t.exited)
}

// Destroy releases a task's Context. Fatal (panics) if the task has not
// exited — callers must Cancel and drain it first, matching
// monad_async_task_destroy's EAGAIN-until-cancelled contract translated to
// a precondition instead of a retry loop, since Go has no equivalent of the
// original's "call again later" busy-destroy convention.
func (t *Task) Destroy() {
	if t.State() != StateExited {
		fatal("task_destroy", "task destroyed before it exited; Cancel and wait for exit first")
	}
	t.sw.Destroy(t.ctx)
}

// State returns the task's current position in the state machine.
func (t *Task) State() State { return State(t.state.Load()) }

// Exited reports whether the task's body has returned.
func (t *Task) Exited() bool { return t.State() == StateExited }

// Result returns the value Body returned. Only meaningful once Exited.
func (t *Task) Result() int { return t.result }

// Wait blocks until the task exits.
func (t *Task) Wait() {
	<-t.exited
}

// CPUPriority returns the task's current CPU scheduling priority.
func (t *Task) CPUPriority() Priority { return Priority(t.cpuPriority.Load()) }

// IOPriority returns the task's current I/O (ioprio) priority.
func (t *Task) IOPriority() Priority { return Priority(t.ioPriority.Load()) }

// SetPriorities updates one or both priorities; Unchanged leaves a
// dimension as-is. Safe to call from any thread (§4.2: THREADSAFE).
func (t *Task) SetPriorities(cpu, io Priority) {
	if cpu != Unchanged {
		t.cpuPriority.Store(int32(cpu))
	}
	if io != Unchanged {
		t.ioPriority.Store(int32(io))
	}
}

// boostCPUPriority temporarily raises CPU priority to High while the task
// waits on a registered buffer, to avoid the priority inversion described in
// §4.5, returning a function that restores the previous value.
func (t *Task) boostCPUPriority() (restore func()) {
	prev := Priority(t.cpuPriority.Swap(int32(High)))
	return func() { t.cpuPriority.Store(int32(prev)) }
}

// CurrentExecutor returns the Executor the task is currently attached to,
// or nil if it isn't attached to any.
func (t *Task) CurrentExecutor() *Executor {
	return t.currentExecutor.Load()
}

// CancelState reports where the cancellation protocol stands for this task.
func (t *Task) CancelState() CancelState { return CancelState(t.cancelState.Load()) }

// requestCancel moves the cancel state machine from not-requested to
// requested-not-seen, returning false if a cancel was already in flight.
func (t *Task) requestCancel() bool {
	return t.cancelState.CompareAndSwap(int32(CancelNotRequested), int32(CancelRequestedNotSeen))
}

// CompletedIO reports how many of this task's submitted operations have
// completed but not yet been reaped by the task's own code.
func (t *Task) CompletedIO() uint64 {
	return t.ioCompletedNotReaped.Load()
}

// SuspendForDuration suspends the calling task for approximately d,
// returning ECANCELED if the task was cancelled while sleeping (§4.2). Must
// be called from within the task's own Body.
func (t *Task) SuspendForDuration(d time.Duration) error {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("suspend_for_duration", "task is not attached to an executor")
	}
	return exec.suspendForDuration(t, d)
}

// SuspendUntilCompletedIO suspends until st completes, returning st's
// Result. Must be called from within the task's own Body, immediately after
// submitting the operation st identifies.
func (t *Task) SuspendUntilCompletedIO(st *IOStatus) Result {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("suspend_until_completed_io", "task is not attached to an executor")
	}
	return exec.suspendUntilCompletedIO(t, st)
}

// ClaimRegisteredBuffer blocks until a buffer of the requested size class is
// available, boosting this task's effective CPU priority for the duration
// of the wait (§4.5).
func (t *Task) ClaimRegisteredBuffer(class BufferClass) (*Buffer, error) {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("claim_registered_buffer", "task is not attached to an executor")
	}
	return exec.claimBuffer(t, class)
}

// ReleaseRegisteredBuffer returns buf to its pool, potentially waking a
// waiter blocked in ClaimRegisteredBuffer, or back to the kernel-selected
// buffer ring's own free list if buf came from ReadFromPool.
func (t *Task) ReleaseRegisteredBuffer(buf *Buffer) {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("release_registered_buffer", "task is not attached to an executor")
	}
	exec.releaseBuffer(buf)
}

// ReadFromPool is Read's provided-buffer counterpart (§4.5): instead of
// reading into caller-supplied storage, it asks the kernel to pick a buffer
// from the small-class kernel-selected ring and hands back the claimed
// Buffer alongside the byte count, to be returned via ReleaseRegisteredBuffer
// once the task is done with it. Must be called from within the task's own
// Body.
func (t *Task) ReadFromPool(fd int, length uint32, offset uint64) (*Buffer, int, error) {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("read_from_pool", "task is not attached to an executor")
	}
	return exec.readFromPool(t, fd, length, offset)
}

// Read submits a read of len(buf) bytes at offset on fd through the
// non-write ring and suspends until it completes, returning the number of
// bytes read (§2, §8.1). Must be called from within the task's own Body.
func (t *Task) Read(fd int, buf []byte, offset uint64) (int, error) {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("read", "task is not attached to an executor")
	}
	return exec.submitRW(t, fd, buf, offset, false)
}

// Write submits a write of buf at offset on fd through the write ring, which
// forces IOSQE_IO_DRAIN so it completes only after every previously
// submitted write on the same executor, and suspends until it completes
// (§2, §8.2). Must be called from within the task's own Body.
func (t *Task) Write(fd int, buf []byte, offset uint64) (int, error) {
	exec := t.CurrentExecutor()
	if exec == nil {
		fatal("write", "task is not attached to an executor")
	}
	return exec.submitRW(t, fd, buf, offset, true)
}

// Cancel requests cancellation of t (§4.2, §4.6). THREADSAFE: may be called
// from any goroutine, not just t's own executor. If t hasn't launched yet,
// it will never launch. If t is currently suspended on an operation, the
// operation is cancelled in io_uring and the suspension point returns
// ECANCELED. Does nothing if t has already exited.
func (t *Task) Cancel() error {
	exec := t.CurrentExecutor()
	if exec == nil {
		if t.Exited() {
			return nil
		}
		if !t.requestCancel() {
			return nil
		}
		t.state.Store(int32(StateExited))
		close(t.exited)
		return nil
	}
	return exec.cancelTask(t, true)
}

// IOCancel cancels a single in-flight operation identified by st without
// cancelling the whole task, returning once the cancellation has been
// requested (not necessarily completed — st.Completed() reports true once it
// has, and the result the task receives then carries the cancellation).
// Returns ENOENT if st is not in flight for t.
func (t *Task) IOCancel(st *IOStatus) error {
	if st.Completed() || st.owningTask != t {
		return ENOENT
	}
	return st.Cancel(t)
}
