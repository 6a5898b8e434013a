// Package ioprio maps the scheduler's three-level priority onto the kernel's
// IOPRIO_CLASS values consumed by an SQE's ioprio field.
package ioprio

// Class values from linux/ioprio.h. golang.org/x/sys/unix does not export
// these as of the pinned version, so they are named here the way the kernel
// header does.
const (
	classRT   = 1
	classBE   = 2
	classIdle = 3

	classShift = 13
)

// Value returns the packed ioprio value for class/data as the kernel expects
// it in an SQE's ioprio field. A CPU/task priority of High maps to RT at the
// highest priority data (0); Normal maps to the best-effort class at the
// kernel default data (4); Low maps to the idle class.
func Value(class int, data int) uint16 {
	return uint16(class<<classShift | (data & ((1 << classShift) - 1)))
}

// RT returns the realtime-class ioprio value used for High-priority I/O.
func RT() uint16 { return Value(classRT, 0) }

// BestEffort returns the kernel-default best-effort ioprio value used for
// Normal-priority I/O.
func BestEffort() uint16 { return Value(classBE, 4) }

// Idle returns the idle-class ioprio value used for Low-priority I/O.
func Idle() uint16 { return Value(classIdle, 7) }

// FromPriority is the canonical mapping from a scheduling Priority (encoded
// by the caller as an int to avoid an import cycle with the root package)
// to an ioprio value: 0=High, 1=Normal, 2=Low.
func FromPriority(p int) uint16 {
	switch p {
	case 0:
		return RT()
	case 2:
		return Idle()
	default:
		return BestEffort()
	}
}
