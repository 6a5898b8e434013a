package switcher

import "sync/atomic"

// NoSwitchSwitcher runs every Context's body inline on the resuming
// goroutine. It never allocates a goroutine or a channel, so it is the
// cheapest variant, but it can only host tasks that never call
// SuspendAndCallResume — attempting to suspend a no-switch context is a
// programmer error (§4.1: "no-switch (inline, non-suspending)").
type NoSwitchSwitcher struct {
	live atomic.Int64
	root *Context
}

// NewNoSwitch constructs a no-switch Switcher.
func NewNoSwitch() *NoSwitchSwitcher {
	s := &NoSwitchSwitcher{}
	s.root = newRoot(KindNone, s)
	return s
}

func (s *NoSwitchSwitcher) Kind() Kind { return KindNone }

func (s *NoSwitchSwitcher) Create(body Runnable) (*Context, error) {
	ctx := newContext(KindNone, s, body, false)
	ctx.state = statePrimed
	s.live.Add(1)
	return ctx, nil
}

func (s *NoSwitchSwitcher) Destroy(ctx *Context) {
	if ctx.state != stateExited {
		panic("switcher: destroy of a no-switch context that has not exited")
	}
	s.live.Add(-1)
}

func (s *NoSwitchSwitcher) SuspendAndCallResume(current, next *Context) {
	panic("switcher: no-switch context cannot suspend")
}

func (s *NoSwitchSwitcher) Resume(current, next *Context) bool {
	if next.state == stateExited {
		panic("switcher: resume of an already-exited context")
	}
	next.state = stateRunning
	result := next.body.Run()
	next.result = result
	next.body.Detach(result)
	next.state = stateExited
	return true
}

func (s *NoSwitchSwitcher) ResumeMany(fn func(root *Context)) error {
	fn(s.root)
	return nil
}

func (s *NoSwitchSwitcher) Root() *Context { return s.root }

func (s *NoSwitchSwitcher) LiveContexts() int { return int(s.live.Load()) }

var _ Switcher = (*NoSwitchSwitcher)(nil)
