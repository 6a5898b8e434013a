// Command cosched-bench drives the random-offset read loop from §8.1: it
// launches a fixed number of tasks against a single executor, each reading a
// fixed-size page from a random offset of a scratch file and immediately
// reinitiating from a new random offset, for a fixed duration.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosched/cosched"
	"github.com/cosched/cosched/internal/logging"
	"github.com/cosched/cosched/switcher"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 32, "number of concurrent reader tasks")
		duration    = flag.Duration("duration", 5*time.Second, "how long to run")
		fileSize    = flag.Int64("file-size", 1<<20, "scratch file size in bytes")
		pageSize    = flag.Int("page-size", 4096, "read size per operation")
		entries     = flag.Uint("entries", 256, "io_uring ring entries")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	f, err := os.CreateTemp("", "cosched-bench-*")
	if err != nil {
		logger.Error("failed to create scratch file", "error", err)
		os.Exit(1)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := f.Truncate(*fileSize); err != nil {
		logger.Error("failed to size scratch file", "error", err)
		os.Exit(1)
	}

	stats := cosched.NewStats()
	sw := switcher.NewFastSwitcher()
	exec, err := cosched.NewExecutor(cosched.ExecutorConfig{
		Entries:  uint32(*entries),
		Switcher: sw,
		Logger:   logger,
		Observer: cosched.NewStatsObserver(stats),
		Stats:    stats,
	})
	if err != nil {
		logger.Error("failed to create executor", "error", err)
		os.Exit(1)
	}
	defer exec.Close()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var ioErrors atomic.Uint64
	var tasks []*cosched.Task

	fd := int(f.Fd())
	for i := 0; i < *concurrency; i++ {
		seed := int64(i) + 1
		task, err := cosched.Create(sw, cosched.Attr{}, func(t *cosched.Task) int {
			rnd := rand.New(rand.NewSource(seed))
			buf := make([]byte, *pageSize)
			reads := 0
			for {
				select {
				case <-stop:
					return reads
				default:
				}
				maxOffset := *fileSize - int64(*pageSize)
				if maxOffset < 0 {
					maxOffset = 0
				}
				offset := uint64(rnd.Int63n(maxOffset + 1))
				if _, err := t.Read(fd, buf, offset); err != nil {
					ioErrors.Add(1)
					return reads
				}
				reads++
			}
		})
		if err != nil {
			logger.Error("failed to create task", "error", err)
			os.Exit(1)
		}
		if err := exec.Attach(task, nil); err != nil {
			logger.Error("failed to attach task", "error", err)
			os.Exit(1)
		}
		tasks = append(tasks, task)
		wg.Add(1)
		go func(t *cosched.Task) {
			defer wg.Done()
			t.Wait()
		}(task)
	}

	runDone := make(chan error, 1)
	runStop := make(chan struct{})
	go func() { runDone <- exec.Run(runStop) }()

	time.Sleep(*duration)
	close(stop)
	wg.Wait()
	close(runStop)
	if err := <-runDone; err != nil {
		logger.Error("run loop exited with error", "error", err)
	}

	for _, t := range tasks {
		t.Destroy()
	}

	snap := stats.Snapshot()
	fmt.Printf("submitted=%d completed=%d balanced=%t io_errors=%d avg_latency=%s\n",
		snap.TotalIOSubmitted, snap.TotalIOCompleted, stats.Balanced(), ioErrors.Load(),
		time.Duration(snap.AvgLatencyNs))
}
