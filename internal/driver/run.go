package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/export"
	"github.com/23skdu/longbow-bench/internal/history"
	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// Name renders "Test(api=x k=v ...)".
func Name(test string, a api.Api, args testcase.Arguments) string {
	var b strings.Builder
	b.WriteString(test)
	b.WriteString("(api=")
	b.WriteString(a.String())
	if cfg := args.ArgumentContainer().String(); cfg != "" {
		b.WriteByte(' ')
		b.WriteString(cfg)
	}
	b.WriteByte(')')
	return b.String()
}

// CommandLine renders the invocation that reproduces one run in
// single-test mode.
func CommandLine(test string, a api.Api, args testcase.Arguments) string {
	line := "--test=" + test + " --api=" + a.String()
	if cfg := args.ArgumentContainer().CommandLine(); cfg != "" {
		line += " " + cfg
	}
	return line
}

// Run executes one (test, arguments, api) combination and reports it.
func (d *Driver) Run(ctx context.Context, decl testcase.Declaration, args testcase.Arguments, a api.Api, single bool) result.Result {
	name := Name(decl.Name(), a, args)
	dump := d.cfg.DumpCommandLines.Value()
	if dump {
		name = CommandLine(decl.Name(), a, args)
	}

	ctx, span := tracer().Start(ctx, decl.Name(), trace.WithAttributes(
		attribute.String("test", decl.Name()),
		attribute.String("api", a.String()),
		attribute.String("config", args.ArgumentContainer().String()),
	))
	defer span.End()

	s := d.cfg.NewStatistics()
	start := time.Now()
	impl, r := d.prepare(decl, args, a)
	if r == result.Success {
		if dump {
			// resolvable combinations are listed, not run
			fmt.Fprintln(d.out, name)
			span.SetAttributes(attribute.String("result", "Listed"))
			return r
		}
		if !single {
			d.checkNameWidth(name)
		}
		r = d.invoke(ctx, impl, args, a, single, name, s)
	}
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("result", r.String()))
	if r != result.Success && r != result.Nooped && !r.Info().WasTestSkipped {
		span.SetStatus(codes.Error, r.String())
	}

	if d.report(name, r, s, single) {
		d.record(ctx, decl, a, name, args, r, s, elapsed)
	}
	return r
}

// prepare walks the checks that happen before any device work: filters,
// API selection, argument validation and implementation lookup.
func (d *Driver) prepare(decl testcase.Declaration, args testcase.Arguments, a api.Api) (testcase.Implementation, result.Result) {
	if !matchesTestFilter(decl.Name(), d.cfg.TestFilter.Value()) {
		return nil, result.FilteredOut
	}
	if !matchesArgFilter(args.ArgumentContainer(), d.cfg.ArgFilter.Value()) {
		return nil, result.FilteredOut
	}
	if selected := d.cfg.SelectedApi(); selected != api.All && selected != a {
		return nil, result.SkippedApi
	}
	if !d.registry.Supports(a) {
		return nil, result.UnsupportedApi
	}
	if !args.ArgumentContainer().Validate() {
		return nil, result.InvalidArgs
	}
	return d.registry.Resolve(decl.Name(), a, d.cfg.NoIntelExtensions.Value())
}

func (d *Driver) invoke(ctx context.Context, impl testcase.Implementation, args testcase.Arguments, a api.Api, single bool, name string, s stats.Sink) result.Result {
	env := testcase.Env{
		Api:                 a,
		Iterations:          d.cfg.IterationCount(),
		Noop:                d.cfg.Noop.Value(),
		NoIntelExtensions:   d.cfg.NoIntelExtensions.Value(),
		MarkTimers:          d.cfg.MarkTimers.Value(),
		SubDeviceSelection:  d.cfg.SubDeviceSelection.Value(),
		IsSingleTestMode:    single,
		DoNotPrintBandwidth: d.cfg.DoNotPrintBandwidth.Value(),
	}
	interactive := d.cfg.InteractivePrints.Value()
	if interactive {
		d.printer.BeforeTest(name)
	}
	r := impl.Run(ctx, env, args, s)
	if interactive {
		d.printer.ClearLine()
	}
	return r
}

// report prints the outcome of one run. It returns whether anything was
// printed; runs that print nothing are not recorded either.
func (d *Driver) report(name string, r result.Result, s *stats.Statistics, single bool) bool {
	switch r {
	case result.Success:
		if !s.IsFull() {
			developerWarning("test did not generate as many values as expected", "test", name)
		}
		d.printer.Print(name, s)
		return true
	case result.Nooped:
		d.printer.Print(name, s)
		return true
	}

	info := r.Info()
	if info.WasTestSkipped && !s.IsEmpty() {
		developerWarning("test was skipped but generated some values", "test", name)
	}
	if d.cfg.DumpErrorsImmediately.Value() && !info.WasTestSkipped {
		logger.Log.Error("Test failed", "test", name, "result", r.String())
	}
	printed := info.PrintInAll
	if single {
		printed = info.PrintInSingle
	}
	if printed {
		d.printer.Message(name, info.Message)
	}
	return printed
}

func developerWarning(msg string, kv ...interface{}) {
	logger.Log.DeveloperWarning(msg, kv...)
	metrics.RecordDeveloperWarning()
}

func (d *Driver) checkNameWidth(name string) {
	if !d.cfg.Verbose.Value() || len(name) <= d.info.NameWidth || len(name) <= d.widestName {
		return
	}
	d.widestName = len(name)
	logger.Log.Warn("TestCase column is too narrow for the test name", "width", d.info.NameWidth, "suggested", d.widestName)
}

func (d *Driver) record(ctx context.Context, decl testcase.Declaration, a api.Api, name string, args testcase.Arguments, r result.Result, s *stats.Statistics, elapsed time.Duration) {
	metrics.RecordTestRun(decl.Name(), a.String(), r.String(), elapsed)
	d.monitor.RecordRun(name, r)
	if r == result.Nooped {
		return
	}

	rec := export.Record{
		RunID:     d.runID,
		Benchmark: d.info.Name,
		Test:      decl.Name(),
		Name:      name,
		Api:       a.String(),
		Config:    args.ArgumentContainer().String(),
		Result:    r,
		Timestamp: time.Now().UTC(),
		Warmup:    d.cfg.Warmup.Int(),
		Series:    s.Snapshot(),
	}
	for _, series := range rec.Series {
		metrics.RecordSamples(decl.Name(), series.Unit.String(), series.Values)
	}
	d.exporter.Export(ctx, []export.Record{rec})

	if d.history == nil {
		return
	}
	if r == result.Success && d.cfg.CompareBaseline.Value() {
		d.compareBaseline(rec)
	}
	if err := d.history.Put(rec); err != nil {
		logger.Log.Error("Storing result history failed", "test", name, "error", err)
	}
}

func (d *Driver) compareBaseline(rec export.Record) {
	baseline, ok, err := d.history.Last(rec.Benchmark, rec.Name)
	if err != nil {
		logger.Log.Error("Loading baseline failed", "test", rec.Name, "error", err)
		return
	}
	if !ok {
		logger.Log.Info("No baseline", "test", rec.Name)
		return
	}
	for _, delta := range history.Compare(baseline, history.NewEntry(rec)) {
		key := rec.Name
		if delta.Label != "" {
			key += " " + delta.Label
		}
		metrics.RecordBaselineDelta(key, delta.Ratio)
		logger.Log.Info("Baseline comparison",
			"test", rec.Name,
			"label", delta.Label,
			"unit", delta.Unit,
			"baseline", delta.Baseline,
			"current", delta.Current,
			"change_pct", 100*(delta.Ratio-1),
			"baseline_run", baseline.RunID)
	}
}

// Filters starting with '!' are negated. Every filter has to be met.
func matchesTestFilter(name string, filters []string) bool {
	for _, f := range filters {
		filter, negated := strings.CutPrefix(f, "!")
		if (name == filter) == negated {
			return false
		}
	}
	return true
}

// An argument filter is a rendered "key=value". A positive filter needs
// one argument to match, a negated one needs none to.
func matchesArgFilter(c *argument.Container, filters []string) bool {
	for _, f := range filters {
		filter, negated := strings.CutPrefix(f, "!")
		matched := false
		for _, a := range c.Arguments() {
			if argument.Render(a) == filter {
				matched = true
				break
			}
		}
		if matched == negated {
			return false
		}
	}
	return true
}
