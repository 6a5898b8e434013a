// Package switcher implements the context-switcher abstraction (§4.1): the
// strategy object a Task uses to suspend and resume its own execution.
//
// Go has no setjmp/ucontext exposed to user code, so "a private stack" here
// is a private goroutine, and "suspend" is hand-off of a single baton of
// control across a pair of rendezvous channels rather than a register save.
// At most one goroutine per Switcher's root is ever runnable at a time, which
// is what keeps the scheduler cooperative (§5) rather than preemptive: a
// Context never runs unless something explicitly resumed it, and it never
// stops running until it explicitly suspends.
package switcher

import "fmt"

// Kind identifies which concrete strategy a Context or Switcher belongs to.
// Reparenting a Context across Switcher instances of the same Kind is
// allowed while suspended (§4.2); reparenting across Kinds is a fatal
// programmer error.
type Kind int

const (
	KindNone Kind = iota
	KindChannel
	KindFast
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindChannel:
		return "channel"
	case KindFast:
		return "fast"
	default:
		return "invalid"
	}
}

// Runnable is the body a Context runs once primed. Task implements this; the
// switcher package never imports the scheduler package, so this interface is
// the seam that breaks the dependency cycle.
type Runnable interface {
	// Run is the task's user code. Its return value is the task's result.
	Run() int
	// Detach is the base runner's post-suspend hook (§4.1 step iv): called
	// exactly once, after Run returns, with Run's result.
	Detach(result int)
}

// Switcher is the capability set every context-switcher variant implements.
type Switcher interface {
	// Kind identifies the strategy for reparenting/fatal-error checks.
	Kind() Kind

	// Create allocates a new Context bound to this Switcher instance, primed
	// to run body on its first Resume. Fails with an error for allocation
	// failures; never partially constructs a Context.
	Create(body Runnable) (*Context, error)

	// Destroy releases ctx. Fatal if ctx has not exited.
	Destroy(ctx *Context)

	// SuspendAndCallResume suspends the calling Context (which must be
	// `current`) and transfers control to `next`, or — if next is nil — back
	// to whoever most recently resumed `current`. Tolerates current and next
	// belonging to different Switcher instances of the same Kind; the Fast
	// switcher additionally tolerates different Kinds by detouring through a
	// scratch Context.
	SuspendAndCallResume(current, next *Context)

	// Resume is the restricted entry point used by the executor's run loop
	// to hand control to a Context for the first time or after it suspended
	// toward the caller. current and next must share this Switcher instance.
	// Returns true once next has run to completion (Run returned and Detach
	// was called).
	Resume(current, next *Context) (exited bool)

	// ResumeMany runs fn with the Context to use as `current` when resuming
	// many tasks in a row, so callers don't need a fresh root per
	// suspension. Every variant in this package calls fn once with its Root.
	ResumeMany(fn func(root *Context)) error

	// Root returns the Context identity representing "the caller of Resume",
	// i.e. the executor's own run loop, for this Switcher instance.
	Root() *Context

	// LiveContexts returns the number of Contexts created but not yet
	// destroyed. Switchers have no teardown method, and nothing in this
	// package refuses an operation based on this count.
	LiveContexts() int
}

type contextState int

const (
	stateInit contextState = iota
	statePrimed
	stateRunning
	stateSuspended
	stateExited
)

// Context is the switchable unit of execution: one goroutine (except for the
// no-switch variant, which runs bodies inline) plus whatever rendezvous
// primitive its Switcher kind uses to hand off control.
type Context struct {
	kind     Kind
	owner    Switcher
	isRoot   bool
	body     Runnable
	state    contextState
	resumedBy *Context

	// wake is signalled by whoever is resuming this Context; newChannelPerSuspend
	// controls whether SuspendAndCallResume allocates a fresh one per call
	// (the "setjmp" cost model) or reuses `wake` for the Context's lifetime
	// (the "fcontext" cost model). Root contexts use wake as their
	// "something suspended back to me" signal.
	wake                 chan struct{}
	newChannelPerSuspend bool

	result int
}

func newContext(kind Kind, owner Switcher, body Runnable, newChannelPerSuspend bool) *Context {
	return &Context{
		kind:                 kind,
		owner:                owner,
		body:                 body,
		state:                stateInit,
		wake:                 make(chan struct{}),
		newChannelPerSuspend: newChannelPerSuspend,
	}
}

func newRoot(kind Kind, owner Switcher) *Context {
	return &Context{kind: kind, owner: owner, isRoot: true, state: stateRunning, wake: make(chan struct{})}
}

// Kind reports which Switcher strategy owns this Context.
func (c *Context) Kind() Kind { return c.kind }

// Exited reports whether the Context's body has returned.
func (c *Context) Exited() bool { return c.state == stateExited }

// Result returns the value the body returned. Only meaningful once Exited.
func (c *Context) Result() int { return c.result }

// reparent moves ctx to a new Switcher instance of the same Kind. Fatal if
// the Kind differs or ctx is not currently suspended.
func reparent(ctx *Context, newOwner Switcher) {
	if ctx.kind != newOwner.Kind() {
		panic(fmt.Sprintf("switcher: cannot reparent a %s context onto a %s switcher", ctx.kind, newOwner.Kind()))
	}
	if ctx.state != stateSuspended && ctx.state != stateInit {
		panic("switcher: cannot reparent a running or exited context")
	}
	ctx.owner = newOwner
}
