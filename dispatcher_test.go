package cosched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, executors int) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherConfig{
		Executors:      executors,
		ExecutorConfig: ExecutorConfig{Entries: 32},
	})
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	t.Cleanup(d.Quit)
	return d
}

func TestDispatcherSubmitRunsOnIdleExecutor(t *testing.T) {
	d := newTestDispatcher(t, 1)

	done := make(chan int, 1)
	task, err := d.Submit(Attr{}, func(t *Task) int {
		done <- 42
		return 42
	})
	require.NoError(t, err)
	require.NotNil(t, task)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestDispatcherQueuesWhenAllExecutorsBusy(t *testing.T) {
	d := newTestDispatcher(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := d.Submit(Attr{}, func(t *Task) int {
		close(started)
		<-release
		return 0
	})
	require.NoError(t, err)

	<-started

	secondDone := make(chan struct{})
	_, err = d.Submit(Attr{}, func(t *Task) int {
		close(secondDone)
		return 0
	})
	require.NoError(t, err)

	select {
	case <-secondDone:
		t.Fatal("second task should not run before the first releases the only executor")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case <-secondDone:
	case <-time.After(2 * time.Second):
		t.Fatal("second task never ran after first released")
	}
}
