// Package multithread runs the same timed region on N goroutines that are
// released together each iteration.
package multithread

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/23skdu/longbow-bench/internal/timer"
)

// Thread is handed to the body once per iteration.
type Thread struct {
	Index int
	Timer *timer.Timer

	barrier *sync.RWMutex
	ready   *sync.WaitGroup
	once    sync.Once
}

func (t *Thread) markReady() {
	t.once.Do(t.ready.Done)
}

// Wait blocks until every thread of the iteration reached it. Work done
// before Wait is untimed setup; bodies start their timer right after it.
func (t *Thread) Wait() {
	t.markReady()
	t.barrier.RLock()
	t.barrier.RUnlock()
}

// Body is one thread's share of an iteration.
type Body func(ctx context.Context, t *Thread) error

// Run executes warmup untimed rounds and then iterations timed rounds of
// threads goroutines each. It returns the per-iteration average of the
// threads' timers.
//
// The coordinator holds the write lock while it launches a round and
// releases it once every thread is waiting on the read lock, so all threads
// leave Wait at about the same time.
func Run(ctx context.Context, threads, iterations, warmup int, body Body) ([]time.Duration, error) {
	if threads <= 0 {
		return nil, fmt.Errorf("thread count must be positive, got %d", threads)
	}
	timers := make([]*timer.Timer, threads)
	for i := range timers {
		timers[i] = timer.New()
	}

	averages := make([]time.Duration, 0, iterations)
	for round := 0; round < warmup+iterations; round++ {
		if err := runRound(ctx, timers, body); err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		if round < warmup {
			continue
		}
		var total time.Duration
		for _, t := range timers {
			total += t.Get()
		}
		averages = append(averages, total/time.Duration(threads))
	}
	return averages, nil
}

func runRound(ctx context.Context, timers []*timer.Timer, body Body) error {
	var barrier sync.RWMutex
	var ready sync.WaitGroup

	barrier.Lock()
	released := false
	defer func() {
		if !released {
			barrier.Unlock()
		}
	}()

	ready.Add(len(timers))
	g, ctx := errgroup.WithContext(ctx)
	for i, tm := range timers {
		th := &Thread{Index: i, Timer: tm, barrier: &barrier, ready: &ready}
		g.Go(func() error {
			defer th.markReady()
			return body(ctx, th)
		})
	}

	ready.Wait()
	barrier.Unlock()
	released = true
	return g.Wait()
}
