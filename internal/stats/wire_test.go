package stats

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireRoundTrip(t *testing.T) {
	values := []uint64{100, 250, 99999, 1, 7}

	w := NewWire(len(values))
	for _, v := range values {
		w.PushValue(time.Duration(v), UnitUnknown, TypeUnknown, "")
	}
	require.True(t, w.IsFull())

	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "100 250 99999 1 7 ", buf.String())

	parsed, err := DecodeMeasurements(buf.String(), len(values))
	require.NoError(t, err)
	assert.Equal(t, values, parsed)
}

func TestDecodeMeasurements(t *testing.T) {
	tests := []struct {
		name     string
		blob     string
		expected int
		want     []uint64
		wantErr  bool
	}{
		{"newline separated", "1\n2\n3\n", 3, []uint64{1, 2, 3}, false},
		{"stdout fallback trailing space", "5 6  ", 2, []uint64{5, 6}, false},
		{"empty", "", 0, []uint64{}, false},
		{"too few", "1 2", 3, nil, true},
		{"too many", "1 2 3 4", 3, nil, true},
		{"not a number", "1 x 3", 3, nil, true},
		{"negative", "1 -2 3", 3, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMeasurements(tt.blob, tt.expected)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWireStatisticsRejectsMetadata(t *testing.T) {
	assert.Panics(t, func() { NewWire(1).PushValue(time.Second, Microseconds, TypeUnknown, "") })
	assert.Panics(t, func() { NewWire(1).PushValue(time.Second, UnitUnknown, Cpu, "") })
	assert.Panics(t, func() { NewWire(1).PushValue(time.Second, UnitUnknown, TypeUnknown, "time") })
	assert.Panics(t, func() { NewWire(1).PushBandwidth(time.Second, 1, GigabytesPerSecond, Gpu, "") })
	assert.Panics(t, func() {
		w := NewWire(1)
		w.PushValue(time.Second, UnitUnknown, TypeUnknown, "")
		w.PushValue(time.Second, UnitUnknown, TypeUnknown, "")
	})
}

func TestWireStatisticsEmpty(t *testing.T) {
	w := NewWire(2)
	assert.True(t, w.IsEmpty())
	w.PushUnitAndType(Microseconds, Cpu)
	assert.True(t, w.IsEmpty())
	w.PushCpuCounter(12, UnitUnknown, TypeUnknown, "")
	assert.Equal(t, []uint64{12}, w.Values())
	assert.Equal(t, "12 ", EncodeMeasurements(w.Values()))
}
