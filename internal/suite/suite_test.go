package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bench/internal/api"
)

const validSuite = `
name: nightly
entries:
  - test: SubmitKernel
    api: l0
    arguments:
      - {inOrderQueue: 1, measureCompletion: 0}
      - {inOrderQueue: 0, measureCompletion: true}
  - test: UsmCopy
    api: OCL
    arguments:
      - {size: 1MB, usmMemoryPlacement: [Host, Device]}
`

func TestParseAndExpand(t *testing.T) {
	s, err := Parse([]byte(validSuite))
	require.NoError(t, err)
	assert.Equal(t, "nightly", s.Name)

	inv := s.Invocations()
	require.Len(t, inv, 3)
	assert.Equal(t, Invocation{
		Test: "SubmitKernel",
		Api:  api.L0,
		Args: []string{"--inOrderQueue=1", "--measureCompletion=0"},
	}, inv[0])
	assert.Equal(t, []string{"--inOrderQueue=0", "--measureCompletion=1"}, inv[1].Args)
	assert.Equal(t, api.OpenCL, inv[2].Api)
	assert.Equal(t, []string{"--size=1MB", "--usmMemoryPlacement=Host,Device"}, inv[2].Args)
}

func TestParseRejectsInvalidSuites(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no entries", "name: empty\n"},
		{"missing test", "entries:\n  - api: l0\n    arguments: [{a: 1}]\n"},
		{"unknown api", "entries:\n  - test: T\n    api: cuda\n    arguments: [{a: 1}]\n"},
		{"no argument sets", "entries:\n  - test: T\n    api: l0\n"},
		{"empty argument set", "entries:\n  - test: T\n    api: l0\n    arguments: [{}]\n"},
		{"illegal test name", "entries:\n  - test: \"T x\"\n    api: l0\n    arguments: [{a: 1}]\n"},
		{"not yaml", "entries: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSuite), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Entries, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMustRegister(t *testing.T) {
	v := validator.New()
	assert.NotPanics(t, func() { mustRegister(v, "api", validateApi) })
	assert.Panics(t, func() { mustRegister(v, "", validateApi) }, "empty tag")
	assert.Panics(t, func() { mustRegister(v, "api", nil) }, "nil func")
}
