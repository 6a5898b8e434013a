package switcher

import (
	"testing"
)

type funcRunnable struct {
	run      func() int
	detached int
	gotDetach bool
}

func (f *funcRunnable) Run() int { return f.run() }
func (f *funcRunnable) Detach(result int) {
	f.gotDetach = true
	f.detached = result
}

func TestNoSwitchRunsInlineAndDetaches(t *testing.T) {
	sw := NewNoSwitch()
	r := &funcRunnable{run: func() int { return 7 }}
	ctx, err := sw.Create(r)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	exited := sw.Resume(sw.Root(), ctx)
	if !exited {
		t.Fatalf("no-switch context should always exit on first resume")
	}
	if !r.gotDetach || r.detached != 7 {
		t.Fatalf("detach not called with result: %+v", r)
	}
	if sw.LiveContexts() != 1 {
		t.Fatalf("expected 1 live context, got %d", sw.LiveContexts())
	}
	sw.Destroy(ctx)
	if sw.LiveContexts() != 0 {
		t.Fatalf("expected 0 live contexts after destroy")
	}
}

func TestNoSwitchPanicsOnSuspend(t *testing.T) {
	sw := NewNoSwitch()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic suspending a no-switch context")
		}
	}()
	ctx, _ := sw.Create(&funcRunnable{run: func() int { return 0 }})
	sw.SuspendAndCallResume(ctx, nil)
}

type suspendingRunnable struct {
	sw      Switcher
	ctx     *Context
	suspends int
	result  int
}

func (r *suspendingRunnable) Run() int {
	r.sw.SuspendAndCallResume(r.ctx, nil)
	r.suspends++
	return r.result
}

func (r *suspendingRunnable) Detach(int) {}

func testSuspendResume(t *testing.T, sw Switcher) {
	t.Helper()
	r := &suspendingRunnable{sw: sw, result: 42}
	ctx, err := sw.Create(r)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r.ctx = ctx

	if exited := sw.Resume(sw.Root(), ctx); exited {
		t.Fatalf("context should not have exited before its own suspend resumed")
	}
	if exited := sw.Resume(sw.Root(), ctx); !exited {
		t.Fatalf("context should have exited after being resumed past its suspend")
	}
	if ctx.Result() != 42 {
		t.Fatalf("expected result 42, got %d", ctx.Result())
	}
	sw.Destroy(ctx)
}

func TestChannelSwitcherSuspendAndResume(t *testing.T) {
	testSuspendResume(t, NewChannelSwitcher())
}

func TestFastSwitcherSuspendAndResume(t *testing.T) {
	testSuspendResume(t, NewFastSwitcher())
}

func TestChannelSwitcherAllocatesFreshChannelPerSuspend(t *testing.T) {
	sw := NewChannelSwitcher()
	r := &suspendingRunnable{sw: sw, result: 1}
	ctx, _ := sw.Create(r)
	r.ctx = ctx

	before := ctx.wake
	sw.Resume(sw.Root(), ctx)
	after := ctx.wake
	if before == after {
		t.Fatalf("expected channel switcher to reallocate its channel on suspend")
	}
}

func TestFastSwitcherReusesChannelAcrossSuspend(t *testing.T) {
	sw := NewFastSwitcher()
	r := &suspendingRunnable{sw: sw, result: 1}
	ctx, _ := sw.Create(r)
	r.ctx = ctx

	before := ctx.wake
	sw.Resume(sw.Root(), ctx)
	after := ctx.wake
	if before != after {
		t.Fatalf("expected fast switcher to reuse its channel across suspends")
	}
}

func TestDestroyPanicsOnLiveContext(t *testing.T) {
	sw := NewChannelSwitcher()
	r := &suspendingRunnable{sw: sw, result: 1}
	ctx, _ := sw.Create(r)
	r.ctx = ctx

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic destroying a non-exited context")
		}
	}()
	sw.Destroy(ctx)
}

func TestReparentAcrossDifferentKindsPanics(t *testing.T) {
	chSw := NewChannelSwitcher()
	fastSw := NewFastSwitcher()
	ctx, _ := chSw.Create(&funcRunnable{run: func() int { return 0 }})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic reparenting across switcher kinds")
		}
	}()
	reparent(ctx, fastSw)
}
