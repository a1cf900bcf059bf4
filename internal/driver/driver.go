// Package driver is the entry point shared by every benchmark binary. It
// parses the global flags, then runs one test with arguments from the
// command line, every test over its built-in matrix, or a suite file.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/config"
	"github.com/23skdu/longbow-bench/internal/export"
	"github.com/23skdu/longbow-bench/internal/history"
	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/monitoring"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/suite"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// tracer is looked up per run so a provider installed after start-up is
// picked up.
func tracer() trace.Tracer { return otel.Tracer("longbow-bench.driver") }

// Info identifies a benchmark binary.
type Info struct {
	Name        string
	Description string
	// Filename is used in the help examples.
	Filename  string
	Version   string
	NameWidth int
	// HwInfo prints the devices the benchmark can run on.
	HwInfo func(w io.Writer)
}

type Driver struct {
	info     Info
	registry *testcase.Registry
	out      io.Writer
	errOut   io.Writer
	runID    string

	cfg      *config.Configuration
	printer  *stats.Printer
	exporter *export.Multi
	history  *history.Store
	monitor  *monitoring.HealthMonitor

	widestName int
}

type Option func(*Driver)

// WithOutput redirects the result stream and the error stream.
func WithOutput(out, errOut io.Writer) Option {
	return func(d *Driver) {
		d.out = out
		d.errOut = errOut
	}
}

func WithRunID(id string) Option {
	return func(d *Driver) { d.runID = id }
}

// WithExporter adds an exporter on top of the ones enabled by flags.
func WithExporter(e export.Exporter) Option {
	return func(d *Driver) { d.exporter.Add(e) }
}

// WithHistory uses an already opened store instead of --historyDir.
func WithHistory(s *history.Store) Option {
	return func(d *Driver) { d.history = s }
}

func New(info Info, registry *testcase.Registry, opts ...Option) *Driver {
	if info.NameWidth <= 0 {
		info.NameWidth = stats.DefaultNameWidth
	}
	d := &Driver{
		info:     info,
		registry: registry,
		out:      os.Stdout,
		errOut:   os.Stderr,
		runID:    uuid.NewString(),
		exporter: export.NewMulti(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.monitor = monitoring.NewHealthMonitor(info.Version, d.runID)
	return d
}

// RunID identifies every record this driver exports.
func (d *Driver) RunID() string { return d.runID }

// Main runs the benchmark with argv (without the program name) and returns
// the exit code.
func (d *Driver) Main(ctx context.Context, argv []string) int {
	cl, err := argument.ParseCommandLine(argv)
	if err != nil {
		fmt.Fprintln(d.errOut, err)
		return 1
	}
	cfg := config.Default()
	if err := cfg.Parse(cl); err != nil {
		fmt.Fprintln(d.errOut, "Error parsing command line:", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(d.errOut, "Error parsing command line:", err)
		return 1
	}
	logger.Setup(cfg.LogLevel.Value(), cfg.LogFormat.Value())
	d.Configure(cfg)

	switch {
	case cfg.GenerateDocs.Value():
		return d.GenerateDocs()
	case cfg.HwInfo.Value():
		d.printHwInfo()
		return 0
	case cfg.Help.Value():
		d.PrintHelp()
		return 0
	case cfg.Version.Value():
		return d.printVersion(true, "")
	}

	closeSinks, err := d.openSinks(ctx)
	if err != nil {
		logger.Log.Error("Setting up result sinks failed", "error", err)
		return 1
	}
	defer closeSinks()

	if !cfg.NoHeaders.Value() {
		d.printHwInfo()
		d.printVersion(false, "Benchmark version: ")
	}

	switch {
	case cfg.Test.Value() != "":
		return d.RunSingle(ctx, cfg.Test.Value(), cl)
	case cfg.Suite.Value() != "":
		return d.RunSuite(ctx, cfg.Suite.Value(), cl)
	default:
		return d.RunAll(ctx, cl)
	}
}

// Configure installs cfg without going through Main. Tests use it to run
// single invocations.
func (d *Driver) Configure(cfg *config.Configuration) {
	d.cfg = cfg
	d.printer = &stats.Printer{
		W:         d.out,
		Type:      cfg.PrintType(),
		NameWidth: d.info.NameWidth,
		Warmup:    cfg.Warmup.Int(),
	}
}

// RunSingle runs name once per API with arguments taken from cl. Every
// argument of the test has to be given.
func (d *Driver) RunSingle(ctx context.Context, name string, cl *argument.CommandLine) int {
	decl, ok := d.registry.Lookup(name)
	if !ok {
		fmt.Fprintln(d.errOut, "Unknown test case")
		return 1
	}
	args := decl.NewArguments()
	if !d.parseTestArguments(args, cl) {
		fmt.Fprintln(d.errOut, "Error parsing command line")
		return 1
	}

	d.printHeader()
	for _, a := range api.Concrete() {
		d.Run(ctx, decl, args, a, true)
	}
	return 0
}

func (d *Driver) parseTestArguments(args testcase.Arguments, cl *argument.CommandLine) bool {
	c := args.ArgumentContainer()
	if err := c.Parse(cl); err != nil {
		fmt.Fprintln(d.errOut, err)
		return false
	}
	ok := true
	if ignored := cl.UnprocessedKeys(); len(ignored) > 0 {
		fmt.Fprintln(d.errOut, "Following command line arguments were ignored:", strings.Join(ignored, ", "))
		ok = false
	}
	if unparsed := c.Unparsed(); len(unparsed) > 0 {
		keys := make([]string, len(unparsed))
		for i, a := range unparsed {
			keys[i] = a.Key()
		}
		fmt.Fprintln(d.errOut, "Following arguments were not set:", strings.Join(keys, ", "))
		ok = false
	}
	return ok
}

// RunAll runs every test over its built-in argument matrix.
func (d *Driver) RunAll(ctx context.Context, cl *argument.CommandLine) int {
	if ignored := cl.UnprocessedKeys(); len(ignored) > 0 {
		fmt.Fprintln(d.errOut, "Following command line arguments were ignored:", strings.Join(ignored, ", "))
		return 1
	}

	d.printHeader()
	for _, decl := range d.registry.Declarations() {
		for _, args := range decl.Configurations() {
			for _, a := range api.Concrete() {
				d.Run(ctx, decl, args, a, false)
			}
		}
	}
	return 0
}

// RunSuite runs every invocation listed in a suite file. Invocations are
// reported like single-test runs. A malformed invocation is logged and
// skipped, and makes the exit code 1.
func (d *Driver) RunSuite(ctx context.Context, path string, cl *argument.CommandLine) int {
	if ignored := cl.UnprocessedKeys(); len(ignored) > 0 {
		fmt.Fprintln(d.errOut, "Following command line arguments were ignored:", strings.Join(ignored, ", "))
		return 1
	}
	s, err := suite.Load(path)
	if err != nil {
		fmt.Fprintln(d.errOut, err)
		return 1
	}

	d.printHeader()
	code := 0
	for _, inv := range s.Invocations() {
		decl, ok := d.registry.Lookup(inv.Test)
		if !ok {
			logger.Log.Error("Unknown test case in suite", "suite", path, "test", inv.Test)
			code = 1
			continue
		}
		invCl, err := argument.ParseCommandLine(inv.Args)
		if err != nil {
			logger.Log.Error("Invalid suite arguments", "suite", path, "test", inv.Test, "error", err)
			code = 1
			continue
		}
		args := decl.NewArguments()
		if !d.parseTestArguments(args, invCl) {
			logger.Log.Error("Invalid suite arguments", "suite", path, "test", inv.Test, "args", inv.Args)
			code = 1
			continue
		}
		d.Run(ctx, decl, args, inv.Api, true)
	}
	return code
}

func (d *Driver) printHeader() {
	if !d.cfg.NoColumnNames.Value() {
		d.printer.Header()
	}
}
