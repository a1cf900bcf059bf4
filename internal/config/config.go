package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/stats"
)

// Configuration holds the flags shared by every benchmark binary. It is
// built once in main and passed down explicitly.
type Configuration struct {
	Args argument.Container

	Help         *argument.BooleanFlag
	Version      *argument.BooleanFlag
	HwInfo       *argument.BooleanFlag
	GenerateDocs *argument.BooleanFlag

	Test       *argument.String
	Api        *argument.Enum[api.Api]
	Iterations *argument.Integer
	Warmup     *argument.Integer

	Csv                   *argument.BooleanFlag
	Verbose               *argument.BooleanFlag
	Noop                  *argument.BooleanFlag
	NoIntelExtensions     *argument.BooleanFlag
	DumpCommandLines      *argument.BooleanFlag
	NoHeaders             *argument.BooleanFlag
	NoColumnNames         *argument.BooleanFlag
	DoNotPrintBandwidth   *argument.BooleanFlag
	DumpErrorsImmediately *argument.BooleanFlag
	InteractivePrints     *argument.BooleanFlag
	MarkTimers            *argument.BooleanFlag

	ArgFilter          *argument.StringList
	TestFilter         *argument.StringList
	SubDeviceSelection *argument.String

	LogLevel   *argument.String
	LogFormat  *argument.String
	ConfigFile *argument.String
	Suite      *argument.String

	ArrowFile       *argument.String
	FlightAddr      *argument.String
	InfluxURL       *argument.String
	InfluxToken     *argument.String
	InfluxOrg       *argument.String
	InfluxBucket    *argument.String
	HistoryDir      *argument.String
	CompareBaseline *argument.BooleanFlag
	MetricsFile     *argument.String
	MetricsAddr     *argument.String
	TraceFile       *argument.String
}

// Default returns a configuration with every flag at its default value.
func Default() *Configuration {
	c := &Configuration{}
	a := &c.Args

	c.Help = argument.NewBooleanFlag(a, "help", "Print help message")
	c.Version = argument.NewBooleanFlag(a, "version", "Print version")
	c.HwInfo = argument.NewBooleanFlag(a, "hwInfo", "Print device information")
	c.GenerateDocs = argument.NewBooleanFlag(a, "generateDocs", "Print test case documentation as name;help lines")

	c.Test = argument.NewString(a, "test", "Run a single test case with its arguments given on the command line")
	c.Api = api.NewArgument(a, "api", "Select the API to run")
	c.Iterations = argument.NewPositiveInteger(a, "iterations", "Number of timed iterations of each test")
	c.Warmup = argument.NewNonNegativeInteger(a, "warmupIterations", "Leading iterations excluded from printed metrics")

	c.Csv = argument.NewBooleanFlag(a, "csv", "Print results as CSV")
	c.Verbose = argument.NewBooleanFlag(a, "verbose", "Print individual samples")
	c.Noop = argument.NewBooleanFlag(a, "noop", "Skip device work and only list test configurations")
	c.NoIntelExtensions = argument.NewBooleanFlag(a, "noIntelExtensions", "Disable tests that require vendor extensions")
	c.DumpCommandLines = argument.NewBooleanFlag(a, "dumpCommandLines", "Print each test as a command line")
	c.NoHeaders = argument.NewBooleanFlag(a, "noHeaders", "Do not print the benchmark header")
	c.NoColumnNames = argument.NewBooleanFlag(a, "noColumnNames", "Do not print column names")
	c.DoNotPrintBandwidth = argument.NewBooleanFlag(a, "doNotPrintBandwidth", "Report bandwidth tests as time in us")
	c.DumpErrorsImmediately = argument.NewBooleanFlag(a, "dumpErrorsImmediately", "Log failures as they happen")
	c.InteractivePrints = argument.NewBooleanFlag(a, "interactivePrints", "Print the running test name before it finishes")
	c.MarkTimers = argument.NewBooleanFlag(a, "markTimers", "Emit a trace span around every timed region")

	c.ArgFilter = argument.NewStringList(a, "argFilter", "Only run configurations with matching key=value arguments, ! negates")
	c.TestFilter = argument.NewStringList(a, "testFilter", "Only run matching test names, ! negates")
	c.SubDeviceSelection = argument.NewString(a, "subDeviceSelection", "Sub-device to run on")

	c.LogLevel = argument.NewString(a, "logLevel", "Log level (debug, info, warn, error)")
	c.LogFormat = argument.NewString(a, "logFormat", "Log format (console or json)")
	c.ConfigFile = argument.NewString(a, "config", "YAML file with default flag values")
	c.Suite = argument.NewString(a, "suite", "YAML file with argument matrices to run")

	c.ArrowFile = argument.NewString(a, "arrowFile", "Write results to an Arrow IPC file")
	c.FlightAddr = argument.NewString(a, "flightAddr", "Upload results to an Arrow Flight server")
	c.InfluxURL = argument.NewString(a, "influxUrl", "InfluxDB URL for result points")
	c.InfluxToken = argument.NewString(a, "influxToken", "InfluxDB token")
	c.InfluxOrg = argument.NewString(a, "influxOrg", "InfluxDB organization")
	c.InfluxBucket = argument.NewString(a, "influxBucket", "InfluxDB bucket")
	c.HistoryDir = argument.NewString(a, "historyDir", "Directory of the result history store")
	c.CompareBaseline = argument.NewBooleanFlag(a, "compareBaseline", "Compare results with the last stored run")
	c.MetricsFile = argument.NewString(a, "metricsFile", "Write Prometheus metrics to this file at exit")
	c.MetricsAddr = argument.NewString(a, "metricsAddr", "Serve /metrics and /health on this address while running")
	c.TraceFile = argument.NewString(a, "traceFile", "Write trace spans to this file")

	c.Api.Assign(api.All)
	c.Iterations.Assign(10)
	c.Warmup.Assign(0)
	c.LogLevel.Assign("info")
	c.LogFormat.Assign("console")

	return c
}

// Parse applies command line tokens. When --config names a file, values
// from it fill every flag that was not given on the command line.
func (c *Configuration) Parse(cl *argument.CommandLine) error {
	if err := c.Args.Parse(cl); err != nil {
		return err
	}
	if path := c.ConfigFile.Value(); path != "" {
		if err := c.LoadFile(path, cl); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML map of flag keys to values. Keys present in cl are
// skipped so the command line wins.
func (c *Configuration) LoadFile(path string, cl *argument.CommandLine) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var values map[string]interface{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	for key, value := range values {
		if cl != nil && cl.Lookup(key) != nil {
			continue
		}
		a := c.Args.Lookup(key)
		if a == nil {
			return fmt.Errorf("config %s: unknown key %q", path, key)
		}
		if err := a.Set(YAMLValue(value)); err != nil {
			return fmt.Errorf("config %s: key %q: %w", path, key, err)
		}
	}
	return nil
}

// YAMLValue renders a decoded YAML scalar or list the way it would be typed
// on the command line.
func YAMLValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "1"
		}
		return "0"
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// Validate checks cross-flag constraints.
func (c *Configuration) Validate() error {
	if !c.Iterations.Validate() {
		return fmt.Errorf("invalid iterations: %d (must be positive)", c.Iterations.Value())
	}
	if !c.Warmup.Validate() {
		return fmt.Errorf("invalid warmupIterations: %d (must be non-negative)", c.Warmup.Value())
	}
	if c.Warmup.Value() >= c.Iterations.Value() {
		return fmt.Errorf("invalid warmupIterations: %d (must be < iterations: %d)", c.Warmup.Value(), c.Iterations.Value())
	}
	if c.Csv.Value() && c.Verbose.Value() {
		return fmt.Errorf("csv and verbose cannot be used together")
	}
	if !c.Api.Validate() {
		return fmt.Errorf("invalid api")
	}
	switch strings.ToLower(c.LogFormat.Value()) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logFormat: %q (must be console or json)", c.LogFormat.Value())
	}
	if c.InfluxURL.Value() != "" && (c.InfluxOrg.Value() == "" || c.InfluxBucket.Value() == "") {
		return fmt.Errorf("influxUrl requires influxOrg and influxBucket")
	}
	if c.CompareBaseline.Value() && c.HistoryDir.Value() == "" {
		return fmt.Errorf("compareBaseline requires historyDir")
	}
	return nil
}

// PrintType derives the output mode. No-op wins over CSV and verbose.
func (c *Configuration) PrintType() stats.PrintType {
	switch {
	case c.Noop.Value():
		return stats.PrintNoop
	case c.Csv.Value():
		return stats.PrintCsv
	case c.Verbose.Value():
		return stats.PrintDefaultWithVerbose
	default:
		return stats.PrintDefault
	}
}

// Iteration count as an int.
func (c *Configuration) IterationCount() int {
	return c.Iterations.Int()
}

// SelectedApi is the --api value.
func (c *Configuration) SelectedApi() api.Api {
	return c.Api.Value()
}

// NewStatistics builds a sink sized for one test run.
func (c *Configuration) NewStatistics() *stats.Statistics {
	return stats.New(c.IterationCount(), stats.WithoutBandwidth(c.DoNotPrintBandwidth.Value()))
}
