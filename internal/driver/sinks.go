package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/23skdu/longbow-bench/internal/export"
	"github.com/23skdu/longbow-bench/internal/history"
	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// openSinks enables every output selected by flags: trace file, exporters,
// history store, metrics endpoint and metrics file. The returned func
// closes them in reverse order.
func (d *Driver) openSinks(ctx context.Context) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (func(), error) {
		closeAll()
		return nil, err
	}
	cfg := d.cfg

	if path := cfg.TraceFile.Value(); path != "" {
		shutdown, err := setupTracing(path, d.info.Name, d.info.Version)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, shutdown)
	}

	if path := cfg.ArrowFile.Value(); path != "" {
		e, err := export.NewFile(path)
		if err != nil {
			return fail(err)
		}
		d.exporter.Add(e)
	}
	if addr := cfg.FlightAddr.Value(); addr != "" {
		e, err := export.NewFlight(addr)
		if err != nil {
			return fail(err)
		}
		d.exporter.Add(e)
	}
	if url := cfg.InfluxURL.Value(); url != "" {
		d.exporter.Add(export.NewInflux(url, cfg.InfluxToken.Value(), cfg.InfluxOrg.Value(), cfg.InfluxBucket.Value()))
	}
	closers = append(closers, func() {
		if err := d.exporter.Close(); err != nil {
			logger.Log.Error("Closing exporters failed", "error", err)
		}
	})

	if dir := cfg.HistoryDir.Value(); dir != "" && d.history == nil {
		store, err := history.Open(dir)
		if err != nil {
			return fail(err)
		}
		d.history = store
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Log.Error("Closing history failed", "error", err)
			}
			d.history = nil
		})
	}

	if addr := cfg.MetricsAddr.Value(); addr != "" {
		if err := d.monitor.Start(addr); err != nil {
			return fail(fmt.Errorf("start metrics endpoint: %w", err))
		}
		logger.Log.Info("Serving metrics", "addr", d.monitor.Addr(), "run_id", d.runID)
		closers = append(closers, func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := d.monitor.Stop(stopCtx); err != nil {
				logger.Log.Error("Stopping metrics endpoint failed", "error", err)
			}
		})
	}

	if path := cfg.MetricsFile.Value(); path != "" {
		closers = append(closers, func() {
			if err := metrics.WriteTextfile(path); err != nil {
				logger.Log.Error("Writing metrics file failed", "path", path, "error", err)
			}
		})
	}
	return closeAll, nil
}

// setupTracing installs a tracer provider writing every span to path.
func setupTracing(path, name, version string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", name),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Log.Error("Flushing traces failed", "error", err)
		}
		f.Close()
	}, nil
}
