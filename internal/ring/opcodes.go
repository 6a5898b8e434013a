package ring

import (
	"time"

	"github.com/pawelgaczynski/giouring"
)

// Nop prepares a no-op SQE, used in tests to exercise a submit/complete
// round trip without touching a real fd.
func (r *giouringRing) Nop(userData uint64) error {
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareNop()
	})
}

// Timeout prepares a relative timeout SQE, backing Task.SuspendForDuration.
func (r *giouringRing) Timeout(userData uint64, d time.Duration) error {
	ts := giouring.Timespec{
		Sec:  int64(d / time.Second),
		Nsec: int64(d % time.Second),
	}
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareTimeout(&ts, 0, 0)
	})
}

// Cancel prepares a cancellation SQE targeting the SQE tagged with
// targetUserData, backing the cancellation protocol in §4.6.
func (r *giouringRing) Cancel(userData, targetUserData uint64) error {
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareCancel64(targetUserData, 0)
	})
}

// Read prepares a read against fd into buf at offset.
func (r *giouringRing) Read(userData uint64, fd int, buf []byte, offset uint64) error {
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareRead(fd, ptr(buf), uint32(len(buf)), offset)
	})
}

// ReadSelectBuffer prepares a read against fd that asks the kernel to pick a
// buffer out of the given registered buffer group instead of carrying its
// own destination, the provided-buffer mode the Registered Buffer Pool uses
// (§4.5).
func (r *giouringRing) ReadSelectBuffer(userData uint64, fd int, length uint32, offset uint64, groupID uint16) error {
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareRead(fd, 0, length, offset)
		sqe.Flags |= giouring.SqeBufferSelect
		sqe.BufIG = groupID
	})
}

// Write prepares a write against fd from buf at offset. Always submitted on
// the write ring, which forces IOSQE_IO_DRAIN (Ring.Prepare does this based
// on Kind), giving writes a total order (§4, invariant: writes never
// reorder relative to each other).
func (r *giouringRing) Write(userData uint64, fd int, buf []byte, offset uint64) error {
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareWrite(fd, ptr(buf), uint32(len(buf)), offset)
	})
}

// PollMultishotEventfd arms a multishot poll on an eventfd so the non-write
// ring produces one CQE per wake signal without needing to be re-armed.
func (r *giouringRing) PollMultishotEventfd(userData uint64, eventfd int) error {
	return r.Prepare(userData, func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareMultishotPollAdd(eventfd, giouring.POLLIN)
	})
}
