// Package ring wraps github.com/pawelgaczynski/giouring with the two
// properties the executor needs and the raw library doesn't give for free:
// a uniform Result type CQEs get demultiplexed into, and SQE acquisition
// that submits and retries once when the queue is full before reporting
// ErrRingFull.
package ring

import (
	"errors"
	"time"

	"github.com/pawelgaczynski/giouring"
)

// ErrRingFull is returned when the submission queue stays full across a
// submit-and-retry cycle. Under the executor's admission control (§4.4) this
// should never surface: depth is sized so the number of in-flight SQEs never
// exceeds ring capacity.
var ErrRingFull = errors.New("ring: submission queue full")

// Kind distinguishes the two rings an Executor owns (§4). The write ring
// enforces IOSQE_IO_DRAIN on every SQE it accepts so writes submitted to it
// complete in the order they were submitted; the non-write ring carries
// everything else — reads, sockets, timeouts, cancellations, and the
// multishot eventfd poll used to wake a sleeping executor.
type Kind int

const (
	NonWrite Kind = iota
	Write
)

func (k Kind) String() string {
	if k == Write {
		return "write"
	}
	return "nonwrite"
}

// Config configures a Ring.
type Config struct {
	Kind    Kind
	Entries uint32
	// SQPoll is recorded but not passed to ring setup: every Ring created
	// by New runs in non-polled mode regardless of its value.
	SQPoll bool
}

// Result is one demultiplexed CQE (§4, I/O-status record result field).
type Result struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// Err turns a negative Res into the errno it encodes, or nil on success.
func (r Result) Err() error {
	if r.Res < 0 {
		return syscallErrno(-r.Res)
	}
	return nil
}

// More reports whether a multishot SQE that produced this CQE is still
// armed and will produce further completions.
func (r Result) More() bool {
	return r.Flags&giouring.CQEFMore != 0
}

// BufferID extracts the kernel-selected buffer index from a CQE that used a
// registered buffer ring, valid only when HasBuffer is true.
func (r Result) BufferID() uint16 {
	return uint16(r.Flags >> giouring.CQEBufferShift)
}

// HasBuffer reports whether the completion carries a kernel-selected buffer.
func (r Result) HasBuffer() bool {
	return r.Flags&giouring.CQEFBuffer != 0
}

// Ring is the set of io_uring operations an Executor needs from one of its
// two rings (§4): SQE preparation for every opcode the scheduler issues,
// submission, and completion draining. giouring_ring.go is the only
// production implementation, backed by github.com/pawelgaczynski/giouring;
// tests that want to exercise Executor scheduling logic without a real
// kernel can supply any other Ring.
type Ring interface {
	Close() error
	Kind() Kind

	// NewBufferGroup registers a slab of entries*bufLen bytes as a
	// kernel-selectable buffer ring under groupID (§4.5).
	NewBufferGroup(groupID uint16, entries uint16, bufLen uint32) (BufferGroup, error)

	// Submit flushes prepared SQEs without waiting for completions.
	Submit() (uint32, error)
	// SubmitAndWait flushes prepared SQEs and blocks until at least waitNr
	// completions are available.
	SubmitAndWait(waitNr uint32) (uint32, error)
	// PeekCompletions drains up to len(out) ready CQEs into out without
	// blocking, and returns the count filled.
	PeekCompletions(out []Result) int
	// RegisterEventfd arms fd so the kernel signals it on every completion.
	RegisterEventfd(fd int) error

	Nop(userData uint64) error
	Timeout(userData uint64, d time.Duration) error
	Cancel(userData, targetUserData uint64) error
	Read(userData uint64, fd int, buf []byte, offset uint64) error
	ReadSelectBuffer(userData uint64, fd int, length uint32, offset uint64, groupID uint16) error
	Write(userData uint64, fd int, buf []byte, offset uint64) error
	PollMultishotEventfd(userData uint64, eventfd int) error
}

// BufferGroup is one size class of the Registered Buffer Pool (§4.5): a
// slab sliced into equal-size entries, handed to the kernel as a buffer
// ring so a read SQE can ask for "any free buffer from group N" instead of
// carrying its own iovec.
type BufferGroup interface {
	// GroupID reports the buffer group index SQEs should reference.
	GroupID() uint16
	// Take returns the slice the kernel selected for a completion, given the
	// CQE res (byte count) and flags.
	Take(res int32, flags uint32) ([]byte, uint16)
	// Slot returns the full backing slice for buffer index id, used when a
	// buffer is claimed directly rather than selected by the kernel.
	Slot(id uint16) []byte
	// Release hands a buffer back to the kernel once a task is done with it.
	Release(id uint16)
}

// New creates a Ring of the given Kind and entry count, backed by a real
// io_uring instance.
func New(cfg Config) (Ring, error) {
	return newGiouringRing(cfg)
}
