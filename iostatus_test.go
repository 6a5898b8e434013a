package cosched

import (
	"errors"
	"testing"

	"github.com/cosched/cosched/internal/dlist"
	"github.com/stretchr/testify/assert"
)

func TestIOStatusLifecycle(t *testing.T) {
	task := &Task{}
	cancelCalls := 0
	st := NewIOStatus(task, func(owner *Task, s *IOStatus) error {
		cancelCalls++
		return nil
	})

	assert.True(t, st.InProgress())
	assert.False(t, st.Completed())
	assert.Equal(t, task, st.OwningTask())

	st.markCompleted(7, Result{N: 512}, true, 3, 0)
	assert.True(t, st.Completed())
	assert.Nil(t, st.OwningTask())
	assert.True(t, st.HasBuffer())
	assert.Equal(t, uint16(3), st.BufferID())

	assert.NoError(t, st.Cancel(task))
	assert.Equal(t, 0, cancelCalls, "cancel is a no-op once completed")
}

func TestIOStatusCancelWhileInProgress(t *testing.T) {
	task := &Task{}
	wantErr := errors.New("cancel failed")
	st := NewIOStatus(task, func(owner *Task, s *IOStatus) error {
		return wantErr
	})

	assert.Equal(t, wantErr, st.Cancel(task))
}

func TestIOStatusLinkUnlink(t *testing.T) {
	l := dlist.New[*IOStatus]()
	st := NewIOStatus(&Task{}, nil)

	st.link(l)
	assert.Equal(t, 1, l.Len())

	st.unlink(l)
	assert.Equal(t, 0, l.Len())

	// unlinking twice is a no-op
	st.unlink(l)
	assert.Equal(t, 0, l.Len())
}
