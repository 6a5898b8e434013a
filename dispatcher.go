package cosched

import (
	"errors"
	"sync"

	"github.com/cosched/cosched/internal/dlist"
	"github.com/cosched/cosched/internal/logging"
)

// DispatcherConfig configures a Dispatcher (§6).
type DispatcherConfig struct {
	// Executors is how many Executor/kernel-thread pairs the dispatcher
	// pools. Each gets its own goroutine running Executor.Run.
	Executors int
	// SpinBudget is stored on the config (default 1000). Nothing in the
	// dispatcher reads it: pooled executors do not spin before blocking.
	SpinBudget int

	ExecutorConfig ExecutorConfig
	Logger         *logging.Logger
}

func (c *DispatcherConfig) setDefaults() {
	if c.Executors <= 0 {
		c.Executors = 1
	}
	if c.SpinBudget <= 0 {
		c.SpinBudget = 1000
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
}

type pooledExecutor struct {
	exec *Executor
	stop chan struct{}
	done chan struct{}
}

// Dispatcher is the Work Dispatcher (§6): it pools several Executors, each
// pinned to its own goroutine standing in for a kernel thread, and places
// newly-submitted tasks onto whichever pooled executor is idle. Tasks
// already attached to a specific executor bypass the dispatcher entirely
// (an attached task only ever runs on its own executor's thread).
type Dispatcher struct {
	cfg DispatcherConfig

	mu      sync.Mutex
	cond    *sync.Cond
	idle    []*pooledExecutor
	working map[*pooledExecutor]bool
	all     []*pooledExecutor

	// awaitingDispatch holds tasks submitted before any executor claimed
	// them, bucketed by priority so a High-priority submission jumps ahead
	// of queued Normal/Low ones once an executor frees up.
	awaitingDispatch [numPriorities]*dlist.List[*Task]

	quit bool
}

// NewDispatcher constructs and starts a Dispatcher with cfg.Executors
// pooled Executors, each running in its own goroutine.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	cfg.setDefaults()

	d := &Dispatcher{cfg: cfg, working: make(map[*pooledExecutor]bool)}
	d.cond = sync.NewCond(&d.mu)
	for p := 0; p < numPriorities; p++ {
		d.awaitingDispatch[p] = dlist.New[*Task]()
	}

	var errs []error
	for i := 0; i < cfg.Executors; i++ {
		pe := &pooledExecutor{stop: make(chan struct{}), done: make(chan struct{})}
		execCfg := cfg.ExecutorConfig
		execCfg.OnIdle = func() { d.markIdle(pe) }

		exec, err := NewExecutor(execCfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pe.exec = exec
		d.all = append(d.all, pe)
		d.idle = append(d.idle, pe)
		go d.runExecutor(pe)
	}
	if len(d.all) == 0 {
		return nil, errors.Join(errs...)
	}
	if len(errs) > 0 {
		cfg.Logger.Warnf("dispatcher started with %d/%d executors: %v", len(d.all), cfg.Executors, errors.Join(errs...))
	}
	return d, nil
}

func (d *Dispatcher) runExecutor(pe *pooledExecutor) {
	defer close(pe.done)
	if err := pe.exec.Run(pe.stop); err != nil {
		d.cfg.Logger.Errorf("executor run loop exited with error: %v", err)
	}
}

// Submit attaches body to whichever Executor is idle, or queues it for the
// next one to free up if all are busy (§6). Returns the Task handle once it
// has been admitted somewhere; the task may not have launched yet.
func (d *Dispatcher) Submit(attr Attr, body Body) (*Task, error) {
	d.mu.Lock()
	if d.quit {
		d.mu.Unlock()
		return nil, newOpError("submit", CodeProtocol, 0, "dispatcher is shutting down")
	}

	var pe *pooledExecutor
	if len(d.idle) > 0 {
		pe = d.idle[len(d.idle)-1]
		d.idle = d.idle[:len(d.idle)-1]
		d.working[pe] = true
	}
	d.mu.Unlock()

	if pe == nil {
		return d.queueForNextIdle(attr, body)
	}
	return d.attachTo(pe, attr, body)
}

func (d *Dispatcher) attachTo(pe *pooledExecutor, attr Attr, body Body) (*Task, error) {
	task, err := Create(d.cfg.ExecutorConfig.Switcher, attr, body)
	if err != nil {
		d.markIdle(pe)
		return nil, err
	}
	if err := pe.exec.Attach(task, nil); err != nil {
		d.markIdle(pe)
		return nil, err
	}
	return task, nil
}

// queueForNextIdle is used when every pooled executor was busy at Submit
// time; it is a simplification of the original C++ dispatcher's full
// awaiting_dispatch reshuffle (there, any executor can steal the highest
// priority waiting task the instant it goes idle). Here the task is handed
// to whichever executor calls markIdle first, honoring priority order
// within the waiting set but not preempting an executor already mid-task.
func (d *Dispatcher) queueForNextIdle(attr Attr, body Body) (*Task, error) {
	task, err := Create(d.cfg.ExecutorConfig.Switcher, attr, body)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.awaitingDispatch[attr.CPUPriority.orNormal().index()].PushBack(task)
	d.mu.Unlock()
	return task, nil
}

// markIdle returns pe to the idle set, first handing it the
// highest-priority task waiting in awaitingDispatch if there is one. It is
// called both from attachTo's error paths and from Executor.Run itself
// (via ExecutorConfig.OnIdle) every time that executor's run loop finds
// itself with nothing left to do; the d.working check makes repeated calls
// for an executor that's already idle (or already queued here) a no-op.
func (d *Dispatcher) markIdle(pe *pooledExecutor) {
	d.mu.Lock()
	if !d.working[pe] {
		d.mu.Unlock()
		return
	}
	var task *Task
	for p := 0; p < numPriorities; p++ {
		if node := d.awaitingDispatch[p].PopFront(); node != nil {
			task = node.Value()
			break
		}
	}
	if task == nil {
		delete(d.working, pe)
		d.idle = append(d.idle, pe)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if err := pe.exec.Attach(task, nil); err != nil {
		d.cfg.Logger.Errorf("dispatcher: attach from awaiting-dispatch queue failed: %v", err)
	}
	d.markIdle(pe)
}

// Wait blocks until every pooled executor's run loop has returned, used
// during shutdown after Quit.
func (d *Dispatcher) Wait() {
	for _, pe := range d.all {
		<-pe.done
	}
}

// Quit signals every pooled executor to stop after its current tick and
// waits for them to exit.
func (d *Dispatcher) Quit() {
	d.mu.Lock()
	d.quit = true
	d.mu.Unlock()

	for _, pe := range d.all {
		close(pe.stop)
	}
	d.Wait()
	for _, pe := range d.all {
		pe.exec.Close()
	}
}
