package cosched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsBalanced(t *testing.T) {
	s := NewStats()
	assert.True(t, s.Balanced())

	s.TotalIOSubmitted.Add(3)
	assert.False(t, s.Balanced())

	s.TotalIOCompleted.Add(3)
	assert.True(t, s.Balanced())
}

func TestStatsObserverRecordsCompletionLatency(t *testing.T) {
	s := NewStats()
	obs := NewStatsObserver(s)

	obs.ObserveCompletion(500)
	obs.ObserveCompletion(5_000_000)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.TotalIOCompleted)
	assert.Equal(t, uint64(1), snap.LatencyHistogram[0]) // 500ns <= 1us bucket
	assert.True(t, snap.LatencyHistogram[3] >= 1)         // 500ns <= 1ms bucket (5ms is not)
}

func TestStatsObserverCancelCounters(t *testing.T) {
	s := NewStats()
	obs := NewStatsObserver(s)

	obs.ObserveCancel(true)
	obs.ObserveCancel(false)
	obs.ObserveCancel(true)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.TotalCancelsExplicit)
	assert.Equal(t, uint64(1), snap.TotalCancelsImplicit)
}

func TestNoOpObserverDoesNothing(t *testing.T) {
	var o NoOpObserver
	o.ObserveCompletion(1)
	o.ObserveCancel(true)
	o.ObserveTaskLaunched()
	o.ObserveTaskExited()
}
