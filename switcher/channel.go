package switcher

// ChannelSwitcher is the setjmp analogue (§4.1): one goroutine per Context,
// with a fresh rendezvous channel allocated on every suspend. This mirrors
// setjmp's per-call save cost and is the baseline variant: correct and
// simple, but the per-suspend allocation makes it the slower of the two
// suspending switchers under load (see FastSwitcher).
type ChannelSwitcher struct {
	*goroutineSwitcher
}

// NewChannelSwitcher constructs a setjmp-analogue Switcher.
func NewChannelSwitcher() *ChannelSwitcher {
	return &ChannelSwitcher{goroutineSwitcher: newGoroutineSwitcher(KindChannel, true, false)}
}

var _ Switcher = (*ChannelSwitcher)(nil)
