package switcher

// FastSwitcher is the fcontext analogue (§4.1): one goroutine per Context,
// same as ChannelSwitcher, but the rendezvous channel is allocated once at
// Create and reused for every suspend of that Context's lifetime. This
// amortizes the allocation that ChannelSwitcher repeats on every suspend,
// which is where the ~2x throughput difference between the two variants
// comes from in practice. FastSwitcher additionally tolerates a direct
// SuspendAndCallResume between Contexts of different Kinds by detouring
// through the target's own Switcher's Resume entry point instead of
// handing the baton over directly.
type FastSwitcher struct {
	*goroutineSwitcher
}

// NewFastSwitcher constructs an fcontext-analogue Switcher.
func NewFastSwitcher() *FastSwitcher {
	return &FastSwitcher{goroutineSwitcher: newGoroutineSwitcher(KindFast, false, true)}
}

var _ Switcher = (*FastSwitcher)(nil)
