package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// EncodeMeasurements renders nanosecond samples in the measurement wire
// format: base-10 integers, each followed by a single space.
func EncodeMeasurements(values []uint64) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.FormatUint(v, 10))
		b.WriteByte(' ')
	}
	return b.String()
}

// DecodeMeasurements parses a measurement blob. The number of tokens must
// equal expected.
func DecodeMeasurements(blob string, expected int) ([]uint64, error) {
	fields := strings.Fields(blob)
	if len(fields) != expected {
		return nil, fmt.Errorf("invalid number of measurements: got %d, expected %d", len(fields), expected)
	}
	values := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("measurement %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// WireStatistics is the sink used inside a spawned worker. It accepts only
// unlabelled durations with no unit or type; the parent decides those when
// it pushes the decoded values into its own Statistics.
type WireStatistics struct {
	maxSamples int
	values     []uint64
}

func NewWire(maxSamples int) *WireStatistics {
	return &WireStatistics{maxSamples: maxSamples, values: make([]uint64, 0, maxSamples)}
}

func (w *WireStatistics) check(unit Unit, typ Type, label string) {
	if unit != UnitUnknown || typ != TypeUnknown {
		panic("worker statistics do not support setting measurement unit or type")
	}
	if label != "" {
		panic("worker statistics do not support multiple statistics groups")
	}
	if len(w.values) == w.maxSamples {
		panic(fmt.Sprintf("too many values pushed by the test (capacity %d)", w.maxSamples))
	}
}

func (w *WireStatistics) PushValue(d time.Duration, unit Unit, typ Type, label string) {
	w.check(unit, typ, label)
	w.values = append(w.values, uint64(d.Nanoseconds()))
}

func (w *WireStatistics) PushBandwidth(time.Duration, uint64, Unit, Type, string) {
	panic("worker statistics do not support bandwidth samples")
}

func (w *WireStatistics) PushCpuCounter(count uint64, unit Unit, typ Type, label string) {
	w.check(unit, typ, label)
	w.values = append(w.values, count)
}

func (w *WireStatistics) PushPercentage(value float64, unit Unit, typ Type, label string) {
	w.check(unit, typ, label)
	w.values = append(w.values, uint64(value))
}

func (w *WireStatistics) PushEnergy(value float64, unit Unit, typ Type, label string) {
	w.check(unit, typ, label)
	w.values = append(w.values, uint64(value))
}

// PushUnitAndType is accepted and ignored; the worker has no no-op output.
func (w *WireStatistics) PushUnitAndType(Unit, Type) {}

func (w *WireStatistics) IsFull() bool { return len(w.values) == w.maxSamples }
func (w *WireStatistics) IsEmpty() bool { return len(w.values) == 0 }

func (w *WireStatistics) Values() []uint64 { return w.values }

// WriteTo emits the encoded samples.
func (w *WireStatistics) WriteTo(out io.Writer) (int64, error) {
	n, err := io.WriteString(out, EncodeMeasurements(w.values))
	return int64(n), err
}
