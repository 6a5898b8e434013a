package cosched

import (
	"os"
	"sync"
	"testing"
)

// TempFile creates a zero-filled temporary file of size bytes for tests that
// exercise the write ring's total-order guarantee or the random-offset read
// loop (§8). The file and its backing descriptor are removed via tb.Cleanup.
func TempFile(tb testing.TB, size int64) *os.File {
	tb.Helper()

	f, err := os.CreateTemp("", "cosched-test-*")
	if err != nil {
		tb.Fatalf("cosched: TempFile: %v", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(f.Name())
		tb.Fatalf("cosched: TempFile: truncate: %v", err)
	}
	tb.Cleanup(func() {
		f.Close()
		os.Remove(f.Name())
	})
	return f
}

// TaskProbe wraps a Body, recording how many times it ran and in what order
// relative to other probes sharing the same order slice. It is the
// scheduler-testing analog of counting mock-backend calls: rather than
// tracking ReadAt/WriteAt invocations, it tracks task-body invocations.
type TaskProbe struct {
	mu    sync.Mutex
	runs  int
	order *[]int
	id    int
	body  func(t *Task) int
}

// NewTaskProbe wraps body so tests can assert it ran, and how many times.
func NewTaskProbe(body func(t *Task) int) *TaskProbe {
	return &TaskProbe{body: body}
}

// NewOrderedTaskProbe wraps body and, each time it runs, appends id to order
// — used by tests asserting the write ring's submission-order guarantee
// (§8.2), where order is a single slice shared across every probe in the
// batch.
func NewOrderedTaskProbe(id int, order *[]int, body func(t *Task) int) *TaskProbe {
	return &TaskProbe{id: id, order: order, body: body}
}

// Body returns the wrapped Body, suitable for passing to Create or
// Dispatcher.Submit.
func (p *TaskProbe) Body() Body {
	return func(t *Task) int {
		p.mu.Lock()
		p.runs++
		if p.order != nil {
			*p.order = append(*p.order, p.id)
		}
		p.mu.Unlock()
		return p.body(t)
	}
}

// Runs reports how many times the wrapped body has run so far.
func (p *TaskProbe) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

// Ran reports whether the wrapped body has run at least once.
func (p *TaskProbe) Ran() bool {
	return p.Runs() > 0
}
