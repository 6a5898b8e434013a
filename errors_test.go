package cosched

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError(t *testing.T) {
	err := newOpError("attach", CodeProtocol, 0, "task already attached")

	assert.Equal(t, "attach", err.Op)
	assert.Equal(t, CodeProtocol, err.Code)
	assert.Equal(t, "cosched: attach: task already attached", err.Error())
}

func TestErrorUnwrapsErrno(t *testing.T) {
	err := newOpError("claim_buffer", CodeOperational, syscall.ENOMEM, "")

	assert.True(t, errors.Is(err, syscall.ENOMEM))
	assert.Equal(t, "cosched: claim_buffer: cannot allocate memory", err.Error())
}

func TestWrapErrno(t *testing.T) {
	wrapped := wrapErrno("suspend_for_duration", syscall.ETIME)
	assert.True(t, errors.Is(wrapped, ETIME))

	var errno syscall.Errno
	assert.True(t, errors.As(wrapped, &errno))
}

func TestWrapErrnoNonErrno(t *testing.T) {
	inner := errors.New("boom")
	wrapped := wrapErrno("cancel", inner)

	assert.True(t, IsCode(wrapped, CodeOperational))
	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "boom", e.Msg)
}

func TestIsCode(t *testing.T) {
	err := newOpError("run", CodeProtocol, 0, "reentrant run")

	assert.True(t, IsCode(err, CodeProtocol))
	assert.False(t, IsCode(err, CodeOperational))
	assert.False(t, IsCode(nil, CodeProtocol))
}

func TestIsErrno(t *testing.T) {
	err := newOpError("io_cancel", CodeOperational, syscall.ENOENT, "")

	assert.True(t, IsErrno(err, syscall.ENOENT))
	assert.False(t, IsErrno(err, syscall.EBUSY))
	assert.False(t, IsErrno(nil, syscall.ENOENT))
}

func TestFatalPanics(t *testing.T) {
	assert.Panics(t, func() {
		fatal("destroy", "task still running")
	})
}
