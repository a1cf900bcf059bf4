package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMeasure(t *testing.T) {
	tm := New()
	d := tm.Measure(func() { time.Sleep(2 * time.Millisecond) })
	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.Equal(t, d, tm.Get())
}

func TestMarkedTimerEmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	tm := NewMarked(context.Background(), "SubmitKernel", true)
	for i := 0; i < 3; i++ {
		tm.Start()
		tm.End()
	}
	unmarked := NewMarked(context.Background(), "Ignored", false)
	unmarked.Start()
	unmarked.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "SubmitKernel", spans[0].Name)
}
