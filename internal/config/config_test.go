package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/stats"
)

func parse(t *testing.T, args ...string) (*Configuration, *argument.CommandLine) {
	t.Helper()
	cl, err := argument.ParseCommandLine(args)
	require.NoError(t, err)
	cfg := Default()
	require.NoError(t, cfg.Parse(cl))
	return cfg, cl
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10, cfg.IterationCount())
	assert.Equal(t, api.All, cfg.SelectedApi())
	assert.Equal(t, stats.PrintDefault, cfg.PrintType())
	assert.Equal(t, "info", cfg.LogLevel.Value())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"valid", []string{"--iterations=5", "--csv"}, false},
		{"zero iterations", []string{"--iterations=0"}, true},
		{"csv and verbose", []string{"--csv", "--verbose"}, true},
		{"warmup too large", []string{"--iterations=3", "--warmupIterations=3"}, true},
		{"bad log format", []string{"--logFormat=xml"}, true},
		{"influx without bucket", []string{"--influxUrl=http://localhost:8086", "--influxOrg=perf"}, true},
		{"influx complete", []string{"--influxUrl=http://localhost:8086", "--influxOrg=perf", "--influxBucket=bench"}, false},
		{"baseline without history", []string{"--compareBaseline"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := parse(t, tt.args...)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrintTypePrecedence(t *testing.T) {
	tests := []struct {
		args []string
		want stats.PrintType
	}{
		{nil, stats.PrintDefault},
		{[]string{"--verbose"}, stats.PrintDefaultWithVerbose},
		{[]string{"--csv"}, stats.PrintCsv},
		{[]string{"--csv", "--noop"}, stats.PrintNoop},
		{[]string{"--verbose", "--noop"}, stats.PrintNoop},
	}
	for _, tt := range tests {
		cfg, _ := parse(t, tt.args...)
		assert.Equal(t, tt.want, cfg.PrintType(), tt.args)
	}
}

func TestParseLeavesForeignTokens(t *testing.T) {
	cfg, cl := parse(t, "--api=ocl", "--size=1KB", "--testFilter=UsmCopy,!SubmitKernel")

	assert.Equal(t, api.OpenCL, cfg.SelectedApi())
	assert.Equal(t, []string{"UsmCopy", "!SubmitKernel"}, cfg.TestFilter.Value())
	assert.Equal(t, []string{"size"}, cl.UnprocessedKeys())
}

func TestParseRejectsBadApi(t *testing.T) {
	cl, err := argument.ParseCommandLine([]string{"--api=cuda"})
	require.NoError(t, err)
	assert.Error(t, Default().Parse(cl))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	content := `iterations: 25
csv: true
api: l0
testFilter:
  - UsmCopy
  - SubmitKernel
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, _ := parse(t, "--config="+path, "--iterations=7")

	assert.Equal(t, 7, cfg.IterationCount(), "command line wins over the file")
	assert.True(t, cfg.Csv.Value())
	assert.Equal(t, api.L0, cfg.SelectedApi())
	assert.Equal(t, []string{"UsmCopy", "SubmitKernel"}, cfg.TestFilter.Value())
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("bogus: 1\n"), 0o644))
	assert.Error(t, Default().LoadFile(unknown, nil))

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("iterations: [\n"), 0o644))
	assert.Error(t, Default().LoadFile(malformed, nil))

	assert.Error(t, Default().LoadFile(filepath.Join(dir, "missing.yaml"), nil))
}

func TestNewStatistics(t *testing.T) {
	cfg, _ := parse(t, "--iterations=3", "--doNotPrintBandwidth")
	s := cfg.NewStatistics()
	assert.Equal(t, 3, s.MaxSamples())
}
