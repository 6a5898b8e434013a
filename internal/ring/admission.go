package ring

import "sync"

// Admission enforces the raw capacity constraint behind SQE admission
// control (§4.4): never let more SQEs be in flight on a ring than it has
// entries for, so GetSQE never actually needs to report ErrRingFull in
// practice. The executor's priority ordering of which task gets to submit
// next is layered on top of this in the scheduler, not here; this type only
// knows about a counter and a limit.
type Admission struct {
	mu       sync.Mutex
	limit    int
	inFlight int
}

// NewAdmission creates an admission gate for a ring with the given entry
// count.
func NewAdmission(limit int) *Admission {
	return &Admission{limit: limit}
}

// TryAdmit reserves one in-flight slot, reporting false if the ring is
// already at capacity.
func (a *Admission) TryAdmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight >= a.limit {
		return false
	}
	a.inFlight++
	return true
}

// Release frees one in-flight slot, called when a CQE for that SQE has been
// demultiplexed.
func (a *Admission) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight > 0 {
		a.inFlight--
	}
}

// InFlight reports the current number of admitted, not-yet-completed SQEs.
func (a *Admission) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

// Available reports free capacity.
func (a *Admission) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit - a.inFlight
}
