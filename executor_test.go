package cosched

import (
	"testing"
	"time"

	"github.com/cosched/cosched/switcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	exec, err := NewExecutor(ExecutorConfig{Entries: 32, Switcher: switcher.NewFastSwitcher()})
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	return exec
}

func TestExecutorRunsAttachedTaskToCompletion(t *testing.T) {
	exec := newTestExecutor(t)

	task, err := Create(exec.cfg.Switcher, Attr{}, func(t *Task) int { return 5 })
	require.NoError(t, err)
	require.NoError(t, exec.Attach(task, nil))

	stop := make(chan struct{})
	go func() {
		task.Wait()
		close(stop)
	}()

	assert.NoError(t, exec.Run(stop))
	assert.True(t, task.Exited())
	assert.Equal(t, 5, task.Result())

	task.Destroy()
	exec.Close()
}

func TestExecutorSuspendForDuration(t *testing.T) {
	exec := newTestExecutor(t)

	var sleepErr error
	task, err := Create(exec.cfg.Switcher, Attr{}, func(t *Task) int {
		sleepErr = t.SuspendForDuration(5 * time.Millisecond)
		return 1
	})
	require.NoError(t, err)
	require.NoError(t, exec.Attach(task, nil))

	stop := make(chan struct{})
	go func() {
		task.Wait()
		close(stop)
	}()

	assert.NoError(t, exec.Run(stop))
	assert.True(t, task.Exited())
	assert.NoError(t, sleepErr)

	task.Destroy()
	exec.Close()
}

func TestExecutorCancelBeforeLaunchNeverRuns(t *testing.T) {
	exec := newTestExecutor(t)

	ran := false
	task, err := Create(exec.cfg.Switcher, Attr{}, func(t *Task) int {
		ran = true
		return 0
	})
	require.NoError(t, err)

	assert.NoError(t, task.Cancel())
	assert.True(t, task.Exited())

	assert.False(t, ran)
	exec.Close()
}

func TestExecutorAttachTwiceFails(t *testing.T) {
	exec := newTestExecutor(t)
	task, err := Create(exec.cfg.Switcher, Attr{}, func(t *Task) int { return 0 })
	require.NoError(t, err)
	require.NoError(t, exec.Attach(task, nil))

	assert.Error(t, exec.Attach(task, nil))

	stop := make(chan struct{})
	go func() {
		task.Wait()
		close(stop)
	}()
	assert.NoError(t, exec.Run(stop))

	task.Destroy()
	exec.Close()
}
