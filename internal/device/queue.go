package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/23skdu/longbow-bench/internal/metrics"
)

// Kernel runs once per work item.
type Kernel func(item WorkItem)

// WorkItem identifies one invocation of a kernel.
type WorkItem struct {
	GlobalID  int
	LocalID   int
	GroupID   int
	GroupSize int
	Buffer    *Buffer
	Args      []uint64
}

// Launch describes a kernel dispatch.
type Launch struct {
	Kernel         string
	WorkgroupCount int
	WorkgroupSize  int
	Buffer         *Buffer
	Args           []uint64
}

type QueueKind int

const (
	QueueCompute QueueKind = iota
	QueueCopy
)

// Event completes when its command finished. Timestamps are taken on the
// executing goroutine.
type Event struct {
	done  chan struct{}
	err   error
	start time.Time
	end   time.Time
	prof  bool
}

func newEvent(profiling bool) *Event {
	return &Event{done: make(chan struct{}), prof: profiling}
}

func (e *Event) complete(err error) {
	e.err = err
	close(e.done)
}

// Wait blocks until the command finished and returns its error.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Done reports completion without blocking.
func (e *Event) Done() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// ProfilingDuration is the device-side execution time.
func (e *Event) ProfilingDuration() (time.Duration, error) {
	if !e.prof {
		return 0, fmt.Errorf("event profiling: %w", ErrNotCapable)
	}
	if err := e.Wait(); err != nil {
		return 0, err
	}
	return e.end.Sub(e.start), nil
}

// Queue is in-order. An immediate queue executes on Submit; otherwise
// commands run in the background one after another.
type Queue struct {
	dev       *Device
	kind      QueueKind
	immediate bool
	profiling bool

	mu   sync.Mutex
	tail *Event
}

// NewQueue creates a queue. A copy queue needs the CopyQueue capability.
func (d *Device) NewQueue(kind QueueKind, immediate bool) (*Queue, error) {
	if kind == QueueCopy && !d.caps.CopyQueue {
		return nil, fmt.Errorf("copy queue: %w", ErrNotCapable)
	}
	return &Queue{dev: d, kind: kind, immediate: immediate, profiling: d.caps.Timestamps}, nil
}

func (q *Queue) Kind() QueueKind { return q.kind }

func (q *Queue) enqueue(ctx context.Context, fn func(context.Context) error) *Event {
	ev := newEvent(q.profiling)

	q.mu.Lock()
	prev := q.tail
	q.tail = ev
	q.mu.Unlock()

	run := func() {
		if prev != nil {
			<-prev.done
		}
		ev.start = time.Now()
		err := fn(ctx)
		ev.end = time.Now()
		ev.complete(err)
	}

	if q.immediate {
		run()
	} else {
		go run()
	}
	return ev
}

// Submit dispatches a kernel. Workgroups run on the device's worker pool.
func (q *Queue) Submit(ctx context.Context, l Launch) (*Event, error) {
	if q.kind == QueueCopy {
		return nil, fmt.Errorf("kernel on copy queue: %w", ErrNotCapable)
	}
	if l.WorkgroupCount <= 0 || l.WorkgroupSize <= 0 {
		return nil, fmt.Errorf("invalid launch %dx%d", l.WorkgroupCount, l.WorkgroupSize)
	}
	if limit := q.dev.caps.MaxWorkgroupSize; limit > 0 && l.WorkgroupSize > limit {
		return nil, fmt.Errorf("workgroup size %d: %w", l.WorkgroupSize, ErrNotCapable)
	}
	k, err := q.dev.kernel(l.Kernel)
	if err != nil {
		return nil, err
	}

	return q.enqueue(ctx, func(ctx context.Context) error {
		start := time.Now()
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(q.dev.workers)
		for group := 0; group < l.WorkgroupCount; group++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				for local := 0; local < l.WorkgroupSize; local++ {
					k(WorkItem{
						GlobalID:  group*l.WorkgroupSize + local,
						LocalID:   local,
						GroupID:   group,
						GroupSize: l.WorkgroupSize,
						Buffer:    l.Buffer,
						Args:      l.Args,
					})
				}
				return nil
			})
		}
		err := g.Wait()
		metrics.RecordKernelLaunch(l.Kernel, time.Since(start))
		return err
	}), nil
}

// Copy moves size bytes from src to dst.
func (q *Queue) Copy(ctx context.Context, dst, src *Buffer, size uint64) (*Event, error) {
	if size > dst.Size() || size > src.Size() {
		return nil, fmt.Errorf("copy %d bytes exceeds buffer size", size)
	}
	return q.enqueue(ctx, func(context.Context) error {
		copy(dst.data[:size], src.data[:size])
		return nil
	}), nil
}

// Fill writes pattern into the whole buffer.
func (q *Queue) Fill(ctx context.Context, dst *Buffer, pattern byte) (*Event, error) {
	return q.enqueue(ctx, func(context.Context) error {
		for i := range dst.data {
			dst.data[i] = pattern
		}
		return nil
	}), nil
}

// Finish waits for every submitted command.
func (q *Queue) Finish() error {
	q.mu.Lock()
	tail := q.tail
	q.mu.Unlock()
	if tail == nil {
		return nil
	}
	return tail.Wait()
}
