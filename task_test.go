package cosched

import (
	"testing"

	"github.com/cosched/cosched/switcher"
	"github.com/stretchr/testify/assert"
)

func TestTaskCreateRunsBodyAndExits(t *testing.T) {
	sw := switcher.NewNoSwitch()
	task, err := Create(sw, Attr{}, func(t *Task) int { return 99 })
	assert.NoError(t, err)
	assert.Equal(t, StatePendingLaunch, task.State())

	sw.Resume(sw.Root(), task.ctx)

	assert.True(t, task.Exited())
	assert.Equal(t, 99, task.Result())
	task.Destroy()
}

func TestTaskDefaultPriorities(t *testing.T) {
	sw := switcher.NewNoSwitch()
	task, _ := Create(sw, Attr{}, func(t *Task) int { return 0 })
	assert.Equal(t, Normal, task.CPUPriority())
	assert.Equal(t, Normal, task.IOPriority())
}

func TestTaskSetPrioritiesUnchangedLeavesDimensionAlone(t *testing.T) {
	sw := switcher.NewNoSwitch()
	task, _ := Create(sw, Attr{CPUPriority: High, IOPriority: Low}, func(t *Task) int { return 0 })

	task.SetPriorities(Unchanged, High)
	assert.Equal(t, High, task.CPUPriority())
	assert.Equal(t, High, task.IOPriority())
}

func TestTaskCancelBeforeAttachPreventsLaunch(t *testing.T) {
	sw := switcher.NewNoSwitch()
	task, _ := Create(sw, Attr{}, func(t *Task) int { return 1 })

	assert.NoError(t, task.Cancel())
	assert.True(t, task.Exited())
	assert.Equal(t, CancelRequestedNotSeen, task.CancelState())
}

func TestTaskDestroyBeforeExitPanics(t *testing.T) {
	sw := switcher.NewChannelSwitcher()
	task, _ := Create(sw, Attr{}, func(t *Task) int { return 0 })

	assert.Panics(t, func() {
		task.Destroy()
	})
}
