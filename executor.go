package cosched

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/cosched/cosched/internal/dlist"
	"github.com/cosched/cosched/internal/logging"
	"github.com/cosched/cosched/internal/ring"
	"github.com/cosched/cosched/switcher"
)

// ExecutorConfig configures an Executor (§4).
type ExecutorConfig struct {
	// Entries sizes both rings (non-write and write); each task in flight
	// consumes at most one SQE per ring at a time.
	Entries uint32

	SmallBufferCount uint16
	SmallBufferSize  uint32
	LargeBufferCount uint16
	LargeBufferSize  uint32

	// SmallKernelSelectedCount sizes a separate small-buffer ring the kernel
	// itself chooses slots from on ReadFromPool, rather than Go-side
	// free-list bookkeeping (§4.5's "subset... additionally registered as a
	// kernel-selected buffer ring"). Zero selects the default of 16, so the
	// kernel-selected ring is always built.
	SmallKernelSelectedCount uint16

	Switcher switcher.Switcher
	Logger   *logging.Logger
	Observer Observer
	Stats    *Stats

	// OnIdle, if set, is called synchronously from Run each time it finds no
	// runnable task and no I/O in flight, just before blocking for new work.
	// Dispatcher wires this to return a freed pooled Executor to its idle set.
	OnIdle func()
}

func (c *ExecutorConfig) setDefaults() {
	if c.Entries == 0 {
		c.Entries = 256
	}
	if c.SmallBufferCount == 0 {
		c.SmallBufferCount = 64
	}
	if c.SmallBufferSize == 0 {
		c.SmallBufferSize = 4096
	}
	if c.LargeBufferCount == 0 {
		c.LargeBufferCount = 16
	}
	if c.LargeBufferSize == 0 {
		c.LargeBufferSize = 64 * 1024
	}
	if c.SmallKernelSelectedCount == 0 {
		c.SmallKernelSelectedCount = 16
	}
	if c.Switcher == nil {
		c.Switcher = switcher.NewFastSwitcher()
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	if c.Observer == nil {
		c.Observer = NoOpObserver{}
	}
	if c.Stats == nil {
		c.Stats = NewStats()
	}
}

const smallGroupID, largeGroupID, smallKernelSelectedGroupID uint16 = 0, 1, 2

// Executor drives tasks cooperatively on top of two io_uring rings (§4): one
// plain ring for everything but writes, one ring with IOSQE_IO_DRAIN forced
// on every SQE so writes submitted through it complete in submission order.
// An Executor belongs to exactly one kernel thread at a time: Run must be
// called from that thread and must not be called reentrantly.
type Executor struct {
	cfg ExecutorConfig

	nonwrite ring.Ring
	write    ring.Ring

	admitNonwrite *ring.Admission
	admitWrite    *ring.Admission

	buffers *bufferPool

	// kernelBuffers is the separate small-class ring ReadFromPool draws from;
	// the kernel itself picks a slot out of it via IOSQE_BUFFER_SELECT rather
	// than this side tracking a free list (§4.5). Nil only if
	// ExecutorConfig.SmallKernelSelectedCount is still 0 after setDefaults.
	kernelBuffers ring.BufferGroup

	clock tickClock

	// runQueues[priority] holds tasks pending-launch or otherwise ready to
	// run, highest priority first in iteration order (§5).
	runQueues [numPriorities]*dlist.List[*Task]

	// completionReady holds tasks whose suspended operation has completed
	// and are waiting for the run loop to resume them, also bucketed by
	// priority.
	completionReady [numPriorities]*dlist.List[*Task]

	mu      sync.Mutex
	wake    chan struct{}
	running bool
	closed  bool

	// userData counters tag every SQE so CQEs can be demultiplexed back to
	// the IOStatus that initiated them.
	nextUserData uint64
	inflight     map[uint64]*pendingOp

	logger *logging.Logger
	stats  *Stats
	obs    Observer
	onIdle func()
}

// pendingOp is what an in-flight SQE's userdata key maps to: enough to
// demultiplex its CQE back to the waiting task and IOStatus.
type pendingOp struct {
	task   *Task
	status *IOStatus
	kind   opKind
}

type opKind int

const (
	opGeneric opKind = iota
	opTimeout
	opCancel
)

// NewExecutor creates an Executor with both rings, its buffer pool, and its
// cancellation/wake plumbing ready to go. It does not start running tasks
// until Run is called.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	cfg.setDefaults()

	nonwrite, err := ring.New(ring.Config{Kind: ring.NonWrite, Entries: cfg.Entries})
	if err != nil {
		return nil, newOpError("executor_create", CodeConstruction, 0, err.Error())
	}
	write, err := ring.New(ring.Config{Kind: ring.Write, Entries: cfg.Entries})
	if err != nil {
		nonwrite.Close()
		return nil, newOpError("executor_create", CodeConstruction, 0, err.Error())
	}

	smallGroup, err := nonwrite.NewBufferGroup(smallGroupID, cfg.SmallBufferCount, cfg.SmallBufferSize)
	if err != nil {
		nonwrite.Close()
		write.Close()
		return nil, newOpError("executor_create", CodeConstruction, 0, err.Error())
	}
	largeGroup, err := nonwrite.NewBufferGroup(largeGroupID, cfg.LargeBufferCount, cfg.LargeBufferSize)
	if err != nil {
		nonwrite.Close()
		write.Close()
		return nil, newOpError("executor_create", CodeConstruction, 0, err.Error())
	}

	var kernelGroup ring.BufferGroup
	if cfg.SmallKernelSelectedCount > 0 {
		kernelGroup, err = nonwrite.NewBufferGroup(smallKernelSelectedGroupID, cfg.SmallKernelSelectedCount, cfg.SmallBufferSize)
		if err != nil {
			nonwrite.Close()
			write.Close()
			return nil, newOpError("executor_create", CodeConstruction, 0, err.Error())
		}
	}

	small := newBufferClassPool(SmallBuffer, smallGroupID, smallGroup.Slot, cfg.SmallBufferCount)
	large := newBufferClassPool(LargeBuffer, largeGroupID, largeGroup.Slot, cfg.LargeBufferCount)

	e := &Executor{
		cfg:           cfg,
		nonwrite:      nonwrite,
		write:         write,
		admitNonwrite: ring.NewAdmission(int(cfg.Entries)),
		admitWrite:    ring.NewAdmission(int(cfg.Entries)),
		buffers:       newBufferPool(small, large),
		kernelBuffers: kernelGroup,
		wake:          make(chan struct{}, 1),
		inflight:      make(map[uint64]*pendingOp),
		logger:        cfg.Logger,
		stats:         cfg.Stats,
		obs:           cfg.Observer,
		onIdle:        cfg.OnIdle,
	}
	for p := 0; p < numPriorities; p++ {
		e.runQueues[p] = dlist.New[*Task]()
		e.completionReady[p] = dlist.New[*Task]()
	}
	return e, nil
}

// Close tears down both rings. Fatal if any task is still attached.
func (e *Executor) Close() {
	e.mu.Lock()
	for p := 0; p < numPriorities; p++ {
		if !e.runQueues[p].Empty() || !e.completionReady[p].Empty() {
			e.mu.Unlock()
			fatal("executor_close", "executor closed with tasks still attached")
		}
	}
	e.closed = true
	e.mu.Unlock()

	if !e.stats.Balanced() {
		fatal("executor_close", "executor closed with submitted/completed I/O counts out of balance")
	}

	e.stats.Stop()
	e.nonwrite.Close()
	e.write.Close()
}

// Attach schedules task to launch on this Executor the next time Run
// processes its pending-launch queue (§4.2). THREADSAFE.
func (e *Executor) Attach(task *Task, reparent switcher.Switcher) error {
	if task.CurrentExecutor() != nil {
		return newOpError("attach", CodeProtocol, 0, "task already attached to an executor")
	}
	if reparent != nil {
		task.sw = reparent
	}
	task.currentExecutor.Store(e)
	task.state.Store(int32(StatePendingLaunch))
	task.ticksAttached = e.clock.now()

	e.mu.Lock()
	task.runNode = e.runQueues[task.CPUPriority().index()].PushBack(task)
	e.mu.Unlock()

	e.obs.ObserveTaskLaunched()
	e.Wake()
	return nil
}

// Wake interrupts a sleeping Run loop, e.g. after Attach or Cancel posts new
// work from another thread (§4.3 Phase A).
func (e *Executor) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Executor) allocUserData(task *Task, status *IOStatus, kind opKind) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextUserData++
	ud := e.nextUserData
	e.inflight[ud] = &pendingOp{task: task, status: status, kind: kind}
	return ud
}

func (e *Executor) takeUserData(ud uint64) (*pendingOp, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	op, ok := e.inflight[ud]
	if ok {
		delete(e.inflight, ud)
	}
	return op, ok
}

// Run executes the scheduling loop until stop is signalled (closing stop,
// or nil to run forever). Phases, per §4.3:
//
//	A. drain a pending cross-thread wake signal
//	B. resume one task whose completion is ready, highest priority first
//	C. launch/resume one task from the per-priority run queues, highest first
//	D. poll the write ring for completions
//	E. poll the non-write ring for completions (skipped this pass if D found any)
//	F. demultiplex completions onto their owning tasks' status records
//	G. if nothing ran or completed: sleep up to 1ms while I/O is in flight,
//	   otherwise call OnIdle and block until woken or stopped; then loop
func (e *Executor) Run(stop <-chan struct{}) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		fatal("run", "executor.Run called reentrantly")
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		e.stats.TotalTicksInRun.Add(1)
		e.clock.advance()

		// Phase A: drain the wake channel (non-blocking; Attach/Cancel
		// already pushed work onto the relevant queues under e.mu).
		select {
		case <-e.wake:
		default:
		}

		// Phase B: resume tasks whose completion is ready.
		resumedAny := e.runReadyByPriority(e.completionReady)

		// Phase C: launch/resume from the run queues.
		resumedAny = e.runReadyByPriority(e.runQueues) || resumedAny

		// Phase D/E/F: poll both rings and demultiplex.
		progressed := e.pollCompletions(e.write) || e.pollCompletions(e.nonwrite)

		if !resumedAny && !progressed {
			if e.anyPending() {
				e.stats.TotalTicksSleeping.Add(1)
				e.sleepUntilWork(stop)
				continue
			}
			// Nothing runnable and nothing in flight: this executor is free
			// of work. Tell whoever is pooling us before blocking on the wake
			// channel for the next external Attach/Cancel.
			if e.onIdle != nil {
				e.onIdle()
			}
			select {
			case <-e.wake:
			case <-stop:
				return nil
			}
		}
	}
}

func (e *Executor) anyPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admitNonwrite.InFlight() > 0 || e.admitWrite.InFlight() > 0
}

// runReadyByPriority resumes one task from the highest-priority non-empty
// queue, if any, and reports whether it did.
func (e *Executor) runReadyByPriority(queues [numPriorities]*dlist.List[*Task]) bool {
	e.mu.Lock()
	var task *Task
	for p := 0; p < numPriorities; p++ {
		if node := queues[p].PopFront(); node != nil {
			task = node.Value()
			break
		}
	}
	e.mu.Unlock()
	if task == nil {
		return false
	}
	e.resumeTask(task)
	return true
}

// resumeTask hands control to task's context, running it until it suspends
// again or exits.
func (e *Executor) resumeTask(task *Task) {
	task.state.Store(int32(StateRunning))
	task.ticksResumed = e.clock.now()

	exited := task.sw.Resume(task.sw.Root(), task.ctx)
	if exited {
		task.currentExecutor.Store(nil)
		e.stats.TotalTasksExited.Add(1)
		e.obs.ObserveTaskExited()
	}
}

// pollCompletions drains ready CQEs from r and demultiplexes each onto the
// task/IOStatus that submitted it, moving that task onto completionReady.
func (e *Executor) pollCompletions(r ring.Ring) bool {
	var buf [64]ring.Result
	n := r.PeekCompletions(buf[:])
	for i := 0; i < n; i++ {
		e.demux(buf[i])
	}
	if n > 0 {
		admission := e.admitNonwrite
		if r.Kind() == ring.Write {
			admission = e.admitWrite
		}
		for i := 0; i < n; i++ {
			admission.Release()
		}
	}
	return n > 0
}

func (e *Executor) demux(res ring.Result) {
	op, ok := e.takeUserData(res.UserData)
	if !ok {
		return // stale cancellation completion, or a probe with no owner
	}
	now := e.clock.advance()
	e.stats.TotalIOCompleted.Add(1)

	if op.status != nil {
		hasBuffer := res.HasBuffer()
		var bufID uint16
		if hasBuffer {
			bufID = res.BufferID()
		}
		op.status.markCompleted(now, Result{N: res.Res, Err: res.Err()}, hasBuffer, bufID, res.Flags)
		op.task.ioCompletedNotReaped.Add(1)
	}

	if op.kind == opCancel {
		return
	}

	task := op.task
	task.wakeResult = op.status
	task.state.Store(int32(StateSuspendedCompletionReady))

	e.mu.Lock()
	task.runNode = e.completionReady[task.CPUPriority().index()].PushBack(task)
	e.mu.Unlock()
}

// sleepUntilWork blocks the run loop until the wake channel fires, stop is
// closed, or a 1ms poll interval elapses, whichever comes first (§4.3 Phase
// G). It does not wait on either ring.
func (e *Executor) sleepUntilWork(stop <-chan struct{}) {
	select {
	case <-e.wake:
	case <-stop:
	case <-time.After(time.Millisecond):
		// Bounded poll interval: avoids needing a second OS thread blocked
		// in io_uring_enter just to wake this one on completion. A
		// production deployment would instead register an eventfd on both
		// rings and multiplex with the wake channel via the poller in
		// internal/ring; see DESIGN.md.
	}
}

// submit admits one SQE on the appropriate ring for op, suspending the
// calling task if the ring is at capacity rather than ever returning
// ErrRingFull to user code (§4.4).
func (e *Executor) submit(task *Task, status *IOStatus, kind opKind, write bool, prep func(userData uint64) error) error {
	// Cancellation points check the bit on entry and return before issuing any
	// ring traffic (§4.2 "Cancellation semantics"). Cancel SQEs themselves are
	// exempt: cancelOp must still be able to submit while the target task's
	// own cancel is in flight.
	if kind != opCancel && task.CancelState() != CancelNotRequested {
		return ECANCELED
	}

	r := e.nonwrite
	admission := e.admitNonwrite
	nextState := StateSuspendedAwaitingSQENonWrite
	if write {
		r = e.write
		admission = e.admitWrite
		nextState = StateSuspendedAwaitingSQEWrite
	}

	for !admission.TryAdmit() {
		task.state.Store(int32(nextState))
		task.ticksSuspendedAwaiting = e.clock.now()
		e.mu.Lock()
		task.runNode = e.runQueues[task.CPUPriority().index()].PushBack(task)
		e.mu.Unlock()
		task.sw.SuspendAndCallResume(task.ctx, nil)
		if kind != opCancel && task.CancelState() != CancelNotRequested {
			return ECANCELED
		}
	}

	ud := e.allocUserData(task, status, kind)
	if err := prep(ud); err != nil {
		admission.Release()
		e.takeUserData(ud)
		return err
	}
	if status != nil {
		status.initiated = e.clock.now()
		status.userData = ud
	}
	task.ioSubmitted.Add(1)
	e.stats.TotalIOSubmitted.Add(1)

	if _, err := r.Submit(); err != nil {
		return wrapErrno("submit", err)
	}
	return nil
}

// suspendUntilCompletedIO suspends task until st completes, returning its
// Result. Unlike submit/claimBuffer, this is never a safe point to bail out
// of early on a pending cancellation: st has already been admitted into the
// kernel ring, so the only way to keep total I/O counts balanced is to wait
// for its real completion, escalating to an explicit cancel SQE the moment
// the cancellation bit is observed rather than swallowing it.
func (e *Executor) suspendUntilCompletedIO(task *Task, st *IOStatus) Result {
	st.link(task.submitted)
	for !st.Completed() {
		task.state.Store(int32(StateSuspendedAwaitingCompletion))
		task.ticksSuspendedAwaiting = e.clock.now()
		if task.CancelState() == CancelRequestedNotSeen {
			task.cancelState.Store(int32(CancelSeenAwaitingURing))
			_ = st.Cancel(task)
		}
		task.sw.SuspendAndCallResume(task.ctx, nil)
	}
	st.unlink(task.submitted)
	st.link(task.completed)
	task.state.Store(int32(StateRunning))
	st.markReaped(e.clock.now())
	task.ioCompletedNotReaped.Add(^uint64(0)) // decrement
	st.unlink(task.completed)

	if task.CancelState() == CancelSeenAwaitingURing {
		task.cancelState.Store(int32(CancelCancelled))
		if err := st.result.Err; IsErrno(err, syscall.EALREADY) || IsErrno(err, ENOENT) || IsErrno(err, ETIME) {
			st.result.Err = ECANCELED
		}
	}
	return st.result
}

// suspendForDuration submits a timeout SQE and suspends until it fires or
// the task is cancelled.
func (e *Executor) suspendForDuration(task *Task, d time.Duration) error {
	if task.CancelState() != CancelNotRequested {
		return ECANCELED
	}
	st := NewIOStatus(task, func(owner *Task, s *IOStatus) error {
		return e.cancelOp(s)
	})
	err := e.submit(task, st, opTimeout, false, func(ud uint64) error {
		return e.nonwrite.Timeout(ud, d)
	})
	if err != nil {
		return err
	}
	res := e.suspendUntilCompletedIO(task, st)
	if IsErrno(res.Err, ETIME) {
		// A timeout CQE that fires on its own completes with -ETIME.
		return nil
	}
	return res.Err
}

// submitRW is Task.Read/Task.Write's executor-side half: it submits a single
// read or write SQE through the appropriate ring's admission gate and
// suspends the calling task until it completes. The individual opcode
// wrapper (internal/ring's Read/Write) is the "thin adapter" of §1; this is
// the generic submit-and-suspend entry point every such adapter goes
// through.
func (e *Executor) submitRW(task *Task, fd int, buf []byte, offset uint64, write bool) (int, error) {
	st := NewIOStatus(task, func(owner *Task, s *IOStatus) error {
		return e.cancelOp(s)
	})
	err := e.submit(task, st, opGeneric, write, func(ud uint64) error {
		if write {
			return e.write.Write(ud, fd, buf, offset)
		}
		return e.nonwrite.Read(ud, fd, buf, offset)
	})
	if err != nil {
		return 0, err
	}
	res := e.suspendUntilCompletedIO(task, st)
	if res.Err != nil {
		return 0, res.Err
	}
	return int(res.N), nil
}

// cancelOp submits an async cancel SQE targeting the operation behind st.
func (e *Executor) cancelOp(st *IOStatus) error {
	target := st.userData
	return e.submit(st.owningTask, nil, opCancel, false, func(ud uint64) error {
		return e.nonwrite.Cancel(ud, target)
	})
}

// cancelTask drives the cancellation protocol (§4.2, §4.6) for an attached
// task: set the cancellation bit, then act according to the task's current
// state.
func (e *Executor) cancelTask(task *Task, explicit bool) error {
	if task.Exited() {
		return nil
	}
	if !task.requestCancel() {
		return nil // already in flight
	}
	e.obs.ObserveCancel(explicit)
	if explicit {
		e.stats.TotalCancelsExplicit.Add(1)
	} else {
		e.stats.TotalCancelsImplicit.Add(1)
	}

	switch task.State() {
	case StatePendingLaunch:
		// Never got to run: dequeue it from wherever it's staged and mark it
		// exited directly, exactly as cancelling an unattached task does.
		e.mu.Lock()
		if task.runNode != nil {
			for p := 0; p < numPriorities; p++ {
				e.runQueues[p].Remove(task.runNode)
			}
			task.runNode = nil
		}
		e.mu.Unlock()
		task.cancelState.Store(int32(CancelCancelled))
		task.currentExecutor.Store(nil)
		task.state.Store(int32(StateExited))
		close(task.exited)
		return nil

	case StateRunning:
		// A task's own executor thread is the only thing allowed to advance
		// it while it's running; a cross-thread cancel landing here means the
		// caller raced the task's own suspend point, which this single
		// -threaded executor model does not support.
		fatal("cancel", "cannot cancel a task while it is running on its own executor")
		return nil

	case StateSuspendedAwaitingSQENonWrite, StateSuspendedAwaitingSQEWrite:
		// No SQE has been submitted yet, so there's nothing in flight to
		// cancel in io_uring. submit's admission-wait loop observes the bit
		// the next time this task wakes and returns ECANCELED itself.
		task.cancelState.Store(int32(CancelRequestedNotSeen))
		return EAGAIN

	case StateSuspendedAwaitingCompletion:
		task.cancelState.Store(int32(CancelSeenAwaitingURing))
		var target *IOStatus
		task.submitted.Each(func(n *dlist.Node[*IOStatus]) {
			if target == nil {
				target = n.Value()
			}
		})
		if target == nil {
			// Suspended waiting on something with no in-flight IOStatus, e.g.
			// a registered-buffer claim: nothing to cancel in io_uring: the
			// bit is set and is observed whenever the wait resolves.
			return EAGAIN
		}
		if err := target.Cancel(task); err != nil {
			return err
		}
		return EAGAIN

	case StateSuspendedCompletionReady:
		// The CQE already arrived; overwrite the stored result so the task
		// sees cancellation the moment it's resumed, without disturbing the
		// dispatch order the completion earned.
		task.cancelState.Store(int32(CancelRequestedNotSeen))
		if st, ok := task.wakeResult.(*IOStatus); ok {
			st.result = Result{Err: ECANCELED}
		}
		return nil

	default:
		return ENOENT
	}
}

// claimBuffer is Task.ClaimRegisteredBuffer's executor-side half.
func (e *Executor) claimBuffer(task *Task, class BufferClass) (*Buffer, error) {
	if task.CancelState() != CancelNotRequested {
		return nil, ECANCELED
	}
	if buf, ok := e.buffers.tryClaim(class); ok {
		return buf, nil
	}
	e.buffers.enqueueWaiter(class, task)
	task.state.Store(int32(StateSuspendedAwaitingCompletion))
	task.sw.SuspendAndCallResume(task.ctx, nil)
	buf, ok := task.wakeResult.(*Buffer)
	if !ok {
		fatal("claim_registered_buffer", fmt.Sprintf("unexpected wake result %T", task.wakeResult))
	}
	task.state.Store(int32(StateRunning))
	return buf, nil
}

// releaseBuffer is Task.ReleaseRegisteredBuffer's executor-side half. A
// buffer claimed out of the kernel-selected ring (ReadFromPool) has no
// Go-side waiter queue to satisfy: it goes straight back to the io_uring
// buffer-ring via an incrementing advance (§4.5).
func (e *Executor) releaseBuffer(buf *Buffer) {
	if e.kernelBuffers != nil && buf.groupID == e.kernelBuffers.GroupID() {
		e.kernelBuffers.Release(buf.id)
		return
	}
	e.buffers.release(buf, func(task *Task, b *Buffer) {
		task.wakeResult = b
		task.state.Store(int32(StateSuspendedCompletionReady))
		e.mu.Lock()
		task.runNode = e.completionReady[task.CPUPriority().index()].PushBack(task)
		e.mu.Unlock()
		e.Wake()
	})
}

// readFromPool is Task.ReadFromPool's executor-side half: it submits a read
// with IOSQE_BUFFER_SELECT against the kernel-selected small-buffer ring
// instead of caller-supplied storage, suspends until it completes, and
// resolves the CQE's chosen-buffer indication into a claimed Buffer (§4.5).
func (e *Executor) readFromPool(task *Task, fd int, length uint32, offset uint64) (*Buffer, int, error) {
	if e.kernelBuffers == nil {
		return nil, 0, newOpError("read_from_pool", CodeConstruction, 0, "no kernel-selected buffer ring configured")
	}
	if task.CancelState() != CancelNotRequested {
		return nil, 0, ECANCELED
	}
	st := NewIOStatus(task, func(owner *Task, s *IOStatus) error {
		return e.cancelOp(s)
	})
	groupID := e.kernelBuffers.GroupID()
	err := e.submit(task, st, opGeneric, false, func(ud uint64) error {
		return e.nonwrite.ReadSelectBuffer(ud, fd, length, offset, groupID)
	})
	if err != nil {
		return nil, 0, err
	}
	res := e.suspendUntilCompletedIO(task, st)
	if res.Err != nil {
		return nil, 0, res.Err
	}
	if !st.HasBuffer() {
		fatal("read_from_pool", "kernel-selected read completed without a buffer indication")
	}
	data, id := e.kernelBuffers.Take(res.N, st.cqeFlags)
	return &Buffer{class: SmallBuffer, groupID: groupID, id: id, data: data}, len(data), nil
}
