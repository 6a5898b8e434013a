package cosched

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Stats tracks the per-executor tick/count statistics from §3 and the
// invariants §8 checks at teardown. Every field is an atomic counter because
// the run loop updates them from the owning thread while Snapshot may be
// called from any thread for monitoring.
type Stats struct {
	TotalTicksInRun      atomic.Uint64 // scheduling events processed by Run
	TotalTicksSleeping   atomic.Uint64 // Run iterations that slept in sleepUntilWork
	TotalIOSubmitted     atomic.Uint64 // SQEs successfully admitted
	TotalIOCompleted     atomic.Uint64 // CQEs demultiplexed to a task or status
	TotalTasksLaunched   atomic.Uint64
	TotalTasksExited     atomic.Uint64
	TotalCancelsExplicit atomic.Uint64 // Task.Cancel calls that took effect
	TotalCancelsImplicit atomic.Uint64 // non-explicit cancels; Task.Destroy panics on a live task rather than cancelling it, so no caller here records one

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewStats creates a stats block with StartTime stamped to now.
func NewStats() *Stats {
	s := &Stats{}
	s.StartTime.Store(time.Now().UnixNano())
	return s
}

func (s *Stats) recordLatency(latencyNs uint64) {
	s.TotalLatencyNs.Add(latencyNs)
	s.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			s.LatencyBuckets[i].Add(1)
		}
	}
}

// RecordCompletion records one demultiplexed CQE's service latency.
func (s *Stats) RecordCompletion(latencyNs uint64) {
	s.TotalIOCompleted.Add(1)
	s.recordLatency(latencyNs)
}

// Stop stamps StopTime; used by Executor teardown.
func (s *Stats) Stop() {
	s.StopTime.Store(time.Now().UnixNano())
}

// Balanced reports the §8 teardown invariant: submitted I/O equals completed
// I/O, meaning no SQE was leaked without a matching CQE.
func (s *Stats) Balanced() bool {
	return s.TotalIOSubmitted.Load() == s.TotalIOCompleted.Load()
}

// Snapshot is a point-in-time copy of Stats safe to read without races.
type Snapshot struct {
	TotalTicksInRun      uint64
	TotalTicksSleeping   uint64
	TotalIOSubmitted     uint64
	TotalIOCompleted     uint64
	TotalTasksLaunched   uint64
	TotalTasksExited     uint64
	TotalCancelsExplicit uint64
	TotalCancelsImplicit uint64
	AvgLatencyNs         uint64
	UptimeNs             uint64
	LatencyHistogram     [numLatencyBuckets]uint64
}

// Snapshot takes a consistent-enough point-in-time copy for monitoring.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		TotalTicksInRun:      s.TotalTicksInRun.Load(),
		TotalTicksSleeping:   s.TotalTicksSleeping.Load(),
		TotalIOSubmitted:     s.TotalIOSubmitted.Load(),
		TotalIOCompleted:     s.TotalIOCompleted.Load(),
		TotalTasksLaunched:   s.TotalTasksLaunched.Load(),
		TotalTasksExited:     s.TotalTasksExited.Load(),
		TotalCancelsExplicit: s.TotalCancelsExplicit.Load(),
		TotalCancelsImplicit: s.TotalCancelsImplicit.Load(),
	}

	totalLatencyNs := s.TotalLatencyNs.Load()
	opCount := s.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := s.StartTime.Load()
	stopTime := s.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = s.LatencyBuckets[i].Load()
	}
	return snap
}

// Observer is a pluggable sink for scheduler events, the hook the run loop
// calls so telemetry never lives inline in the scheduling hot path.
type Observer interface {
	ObserveCompletion(latencyNs uint64)
	ObserveCancel(explicit bool)
	ObserveTaskLaunched()
	ObserveTaskExited()
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCompletion(uint64)  {}
func (NoOpObserver) ObserveCancel(bool)        {}
func (NoOpObserver) ObserveTaskLaunched()      {}
func (NoOpObserver) ObserveTaskExited()        {}

// StatsObserver implements Observer by recording into a Stats block.
type StatsObserver struct {
	stats *Stats
}

// NewStatsObserver creates an observer that records into s.
func NewStatsObserver(s *Stats) *StatsObserver {
	return &StatsObserver{stats: s}
}

func (o *StatsObserver) ObserveCompletion(latencyNs uint64) {
	o.stats.RecordCompletion(latencyNs)
}

func (o *StatsObserver) ObserveCancel(explicit bool) {
	if explicit {
		o.stats.TotalCancelsExplicit.Add(1)
	} else {
		o.stats.TotalCancelsImplicit.Add(1)
	}
}

func (o *StatsObserver) ObserveTaskLaunched() { o.stats.TotalTasksLaunched.Add(1) }
func (o *StatsObserver) ObserveTaskExited()   { o.stats.TotalTasksExited.Add(1) }

var _ Observer = (*StatsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
