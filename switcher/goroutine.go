package switcher

import "sync/atomic"

// goroutineSwitcher is the shared baton-passing core behind ChannelSwitcher
// and FastSwitcher. Both spawn one goroutine per Context at Create and hand
// control back and forth over a rendezvous channel; the only difference
// between the two variants is whether that channel is reallocated on every
// suspend (ChannelSwitcher, mirroring setjmp's per-call save) or reused for
// the Context's lifetime (FastSwitcher, mirroring fcontext's amortized
// save/restore), plus whether cross-Kind resume is tolerated.
type goroutineSwitcher struct {
	kind                 Kind
	newChannelPerSuspend bool
	crossKindDetour      bool
	live                 atomic.Int64
	root                 *Context
}

func newGoroutineSwitcher(kind Kind, newChannelPerSuspend, crossKindDetour bool) *goroutineSwitcher {
	s := &goroutineSwitcher{
		kind:                 kind,
		newChannelPerSuspend: newChannelPerSuspend,
		crossKindDetour:      crossKindDetour,
	}
	s.root = newRoot(kind, s)
	return s
}

func (s *goroutineSwitcher) Kind() Kind { return s.kind }

func (s *goroutineSwitcher) Root() *Context { return s.root }

func (s *goroutineSwitcher) LiveContexts() int { return int(s.live.Load()) }

// Create spawns the Context's goroutine immediately, leaving it primed and
// blocked on its first wake (§4.1 step i-ii). Unlike a real setjmp/fcontext
// prime, which captures a save point by actually switching to the new stack
// once before anything else can run on it, a freshly spawned goroutine has
// nothing to capture — it's already a runnable unit of control. So the first
// external Resume drives the goroutine straight into body.Run(), with no
// extra internal suspend consuming that resume first.
func (s *goroutineSwitcher) Create(body Runnable) (*Context, error) {
	ctx := newContext(s.kind, s, body, s.newChannelPerSuspend)
	ctx.state = statePrimed
	s.live.Add(1)

	go func() {
		<-ctx.wake // wait for the first external resume

		ctx.state = stateRunning
		result := ctx.body.Run()
		ctx.result = result
		ctx.body.Detach(result)
		ctx.state = stateExited

		// Hand control back to whoever resumed this final leg. No receive
		// follows: the goroutine's work is done and it simply returns,
		// rather than parking on a channel nothing will ever signal again.
		target := ctx.resumedBy
		if target == nil {
			panic("switcher: exit with no resumer recorded")
		}
		target.wake <- struct{}{}
	}()

	return ctx, nil
}

func (s *goroutineSwitcher) Destroy(ctx *Context) {
	if ctx.state != stateExited {
		panic("switcher: destroy of a context that has not exited")
	}
	s.live.Add(-1)
}

// waitCh returns the channel `current` should block on to be resumed again,
// reallocating it first when this variant re-captures a save point per call.
func (s *goroutineSwitcher) waitCh(current *Context) chan struct{} {
	if current.newChannelPerSuspend && !current.isRoot {
		current.wake = make(chan struct{})
	}
	return current.wake
}

func (s *goroutineSwitcher) SuspendAndCallResume(current, next *Context) {
	if current.isRoot {
		panic("switcher: root context cannot suspend")
	}
	target := next
	if target == nil {
		target = current.resumedBy
		if target == nil {
			panic("switcher: suspend with no resumer recorded and no explicit target")
		}
	} else if target.kind != current.kind {
		if !s.crossKindDetour {
			panic("switcher: cannot switch directly between different switcher kinds")
		}
		// The fast switcher tolerates this by treating the handoff as a
		// plain resume-and-wait rather than a direct goroutine-to-goroutine
		// baton pass: current's goroutine calls target's owning switcher's
		// Resume with that switcher's root as the scratch resumer, blocks on
		// the root's channel until target suspends or exits, then returns.
		target.owner.Resume(target.owner.Root(), target)
		return
	}
	target.resumedBy = current
	current.state = stateSuspended
	ch := s.waitCh(current)
	target.wake <- struct{}{}
	<-ch
	current.state = stateRunning
}

func (s *goroutineSwitcher) Resume(current, next *Context) bool {
	if next.owner != Switcher(s) {
		panic("switcher: resume target does not belong to this switcher instance")
	}
	next.resumedBy = current
	next.wake <- struct{}{}
	<-current.wake
	return next.state == stateExited
}

func (s *goroutineSwitcher) ResumeMany(fn func(root *Context)) error {
	fn(s.root)
	return nil
}
