// Package timer measures host-side elapsed time of a benchmark region.
package timer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func tracer() trace.Tracer { return otel.Tracer("longbow-bench.timer") }

// Timer measures one region at a time. When marking is enabled every
// Start/End pair also emits a trace span so the region shows up in a trace
// viewer next to the rest of the run.
type Timer struct {
	ctx   context.Context
	name  string
	mark  bool
	start time.Time
	end   time.Time
	span  trace.Span
}

// New returns a timer without marking.
func New() *Timer {
	return &Timer{ctx: context.Background(), name: "timer"}
}

// NewMarked returns a timer that emits a span named name per region when
// mark is true.
func NewMarked(ctx context.Context, name string, mark bool) *Timer {
	return &Timer{ctx: ctx, name: name, mark: mark}
}

func (t *Timer) Start() {
	if t.mark {
		_, t.span = tracer().Start(t.ctx, t.name)
	}
	t.start = time.Now()
}

func (t *Timer) End() {
	t.end = time.Now()
	if t.span != nil {
		t.span.End()
		t.span = nil
	}
}

// Get is the duration of the last Start/End region.
func (t *Timer) Get() time.Duration {
	return t.end.Sub(t.start)
}

// Measure times fn.
func (t *Timer) Measure(fn func()) time.Duration {
	t.Start()
	fn()
	t.End()
	return t.Get()
}
