// Package export ships finished test runs to external sinks: an Arrow IPC
// file, an Arrow Flight server and InfluxDB.
package export

import (
	"context"
	"errors"
	"time"

	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
)

// Record is one completed test run.
type Record struct {
	RunID     string
	Benchmark string
	Test      string
	// Name is the rendered "Test(api=.. k=v)" form.
	Name      string
	Api       string
	Config    string
	Result    result.Result
	Timestamp time.Time
	Warmup    int
	Series    []stats.Series
}

// Exporter receives records as tests finish.
type Exporter interface {
	Name() string
	Export(ctx context.Context, records []Record) error
	Close() error
}

// Multi fans records out to every exporter. A failing exporter is logged and
// counted; it never stops the benchmark.
type Multi struct {
	exporters []Exporter
}

func NewMulti(exporters ...Exporter) *Multi {
	return &Multi{exporters: exporters}
}

func (m *Multi) Add(e Exporter) { m.exporters = append(m.exporters, e) }

func (m *Multi) Len() int { return len(m.exporters) }

func (m *Multi) Export(ctx context.Context, records []Record) {
	if len(records) == 0 {
		return
	}
	for _, e := range m.exporters {
		if err := e.Export(ctx, records); err != nil {
			logger.Log.Error("Export failed", "exporter", e.Name(), "error", err)
			metrics.RecordExportError(e.Name())
		}
	}
}

// Close closes every exporter and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.exporters = nil
	return errors.Join(errs...)
}
