package cosched

import (
	"errors"
	"fmt"
	"syscall"
)

// Synthetic errno values layered onto the POSIX set (§3, §6). These are
// ordinary syscall.Errno values the kernel would not otherwise hand back for
// these operations, reused here so every fallible call in this package
// returns something comparable with errors.Is against a syscall.Errno, the
// same shape a real io_uring CQE result has.
const (
	// ETIME means a wait expired; io_uring reports this via a timeout CQE.
	ETIME = syscall.ETIME
	// ECANCELED means the operation was cancelled.
	ECANCELED = syscall.ECANCELED
	// EAGAIN from Task.Cancel means cancellation was accepted but not yet
	// observed; the caller must keep pumping the executor.
	EAGAIN = syscall.EAGAIN
	// ENOENT from Task.Cancel or Task.IOCancel means the named identity is
	// not presently in a cancellable state.
	ENOENT = syscall.ENOENT
)

// Code is a high-level error category, independent of the specific errno,
// used to classify construction and protocol failures (§7).
type Code string

const (
	CodeConstruction Code = "construction failed"
	CodeProtocol     Code = "protocol violation"
	CodeOperational  Code = "operational error"
)

// Error is a structured scheduler error: the operation that failed, a
// high-level category, and the errno it maps to if any.
type Error struct {
	Op    string        // operation that failed, e.g. "attach", "claim_buffer"
	Code  Code          // high-level category
	Errno syscall.Errno // 0 if not errno-shaped
	Msg   string        // human-readable detail
	Inner error         // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Errno != 0 {
		msg = e.Errno.Error()
	}
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("cosched: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("cosched: %s", msg)
}

func (e *Error) Unwrap() error {
	if e.Inner != nil {
		return e.Inner
	}
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code && e.Errno == te.Errno
	}
	if errno, ok := target.(syscall.Errno); ok {
		return e.Errno == errno
	}
	return false
}

// newOpError builds an *Error for a protocol/construction failure.
func newOpError(op string, code Code, errno syscall.Errno, msg string) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: msg}
}

// wrapErrno folds an arbitrary error into the errno-shaped result a
// suspending call returns: a bare syscall.Errno when one can be recovered,
// an *Error otherwise, or nil.
func wrapErrno(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return newOpError(op, CodeOperational, 0, err.Error())
}

// IsCode reports whether err is a structured *Error carrying code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsErrno reports whether err unwraps to the given errno, covering both bare
// syscall.Errno values and *Error wrappers.
func IsErrno(err error, errno syscall.Errno) bool {
	if err == nil {
		return false
	}
	var e syscall.Errno
	if errors.As(err, &e) {
		return e == errno
	}
	return false
}

// fatal reports a programmer error per §7: destroying a running task,
// destroying an executor with outstanding I/O, reparenting across switcher
// kinds, suspending the no-switch variant. These indicate memory-safety
// relevant bugs and are never returned to a task as a result.
func fatal(op, msg string) {
	panic(&Error{Op: op, Code: CodeProtocol, Msg: msg})
}
