package stats

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is the ordered sample list of one label.
type Series struct {
	Label  string
	Unit   Unit
	Type   Type
	Values []float64
}

// Statistics is the in-process sink. Samples are grouped by label; each
// label holds at most maxSamples values and keeps the unit and type of its
// first push.
type Statistics struct {
	maxSamples          int
	doNotPrintBandwidth bool

	series          map[string]*Series
	noop            *Series
	reachedInfinity bool
}

type Option func(*Statistics)

// WithoutBandwidth reports GB/s pushes as plain microsecond timings.
func WithoutBandwidth(enabled bool) Option {
	return func(s *Statistics) { s.doNotPrintBandwidth = enabled }
}

func New(maxSamples int, opts ...Option) *Statistics {
	s := &Statistics{
		maxSamples: maxSamples,
		series:     make(map[string]*Series),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Statistics) MaxSamples() int { return s.maxSamples }

func (s *Statistics) overrideUnit(unit Unit) Unit {
	if unit == GigabytesPerSecond && s.doNotPrintBandwidth {
		return Microseconds
	}
	return unit
}

func (s *Statistics) PushValue(d time.Duration, unit Unit, typ Type, label string) {
	unit = s.overrideUnit(unit)
	switch unit {
	case Nanoseconds, Latency:
		s.push(float64(d.Nanoseconds()), label, unit, typ)
	case Microseconds:
		s.push(float64(d.Nanoseconds())/1e3, label, unit, typ)
	case GigabytesPerSecond:
		panic(fmt.Sprintf("buffer size needs to be passed when unit is %v", unit))
	default:
		panic(fmt.Sprintf("unsupported measurement unit %v for a duration", unit))
	}
}

func (s *Statistics) PushBandwidth(d time.Duration, bytes uint64, unit Unit, typ Type, label string) {
	if unit != GigabytesPerSecond {
		panic("bandwidth push requires the GB/s unit")
	}
	unit = s.overrideUnit(unit)
	switch unit {
	case Microseconds:
		s.push(float64(d.Nanoseconds())/1e3, label, unit, typ)
	case GigabytesPerSecond:
		// bytes per nanosecond is gigabytes per second
		s.push(float64(bytes)/float64(d.Nanoseconds()), label, unit, typ)
	}
}

func (s *Statistics) PushCpuCounter(count uint64, unit Unit, typ Type, label string) {
	if unit != CpuHardwareCounter {
		panic(fmt.Sprintf("unsupported measurement unit %v for a cpu counter", unit))
	}
	s.push(float64(count), label, unit, typ)
}

func (s *Statistics) PushPercentage(value float64, unit Unit, typ Type, label string) {
	if unit != Percentage {
		panic(fmt.Sprintf("unsupported measurement unit %v for a percentage", unit))
	}
	s.push(value, label, unit, typ)
}

func (s *Statistics) PushEnergy(value float64, unit Unit, typ Type, label string) {
	if unit != MicroJoules && unit != Watts {
		panic(fmt.Sprintf("unsupported measurement unit %v for energy", unit))
	}
	s.push(value, label, unit, typ)
}

func (s *Statistics) PushUnitAndType(unit Unit, typ Type) {
	if s.noop != nil {
		panic("unit and type pushed more than once")
	}
	s.noop = &Series{Unit: s.overrideUnit(unit), Type: typ}
}

func (s *Statistics) push(value float64, label string, unit Unit, typ Type) {
	if unit == UnitUnknown {
		panic("concrete measurement unit has to be specified")
	}
	if typ == TypeUnknown {
		panic("concrete measurement type has to be specified")
	}

	series, ok := s.series[label]
	if !ok {
		series = &Series{Label: label, Unit: unit, Type: typ, Values: make([]float64, 0, s.maxSamples)}
		s.series[label] = series
	}
	if len(series.Values) == s.maxSamples {
		panic(fmt.Sprintf("too many values pushed by the test (label %q, capacity %d)", label, s.maxSamples))
	}
	if series.Unit != unit {
		panic(fmt.Sprintf("different units used for the same measurement %q: %v and %v", label, series.Unit, unit))
	}
	if series.Type != typ {
		panic(fmt.Sprintf("different types used for the same measurement %q: %v and %v", label, series.Type, typ))
	}

	series.Values = append(series.Values, value)
	if value >= math.MaxFloat64 {
		s.reachedInfinity = true
	}
}

// IsFull reports whether every label received exactly maxSamples values.
// A run that pushed nothing is not full.
func (s *Statistics) IsFull() bool {
	if len(s.series) == 0 {
		return false
	}
	for _, series := range s.series {
		if len(series.Values) != s.maxSamples {
			return false
		}
	}
	return true
}

func (s *Statistics) IsEmpty() bool {
	for _, series := range s.series {
		if len(series.Values) != 0 {
			return false
		}
	}
	return true
}

// Count is the number of samples over all labels.
func (s *Statistics) Count() int {
	n := 0
	for _, series := range s.series {
		n += len(series.Values)
	}
	return n
}

// Labels returns the labels in sorted order.
func (s *Statistics) Labels() []string {
	labels := make([]string, 0, len(s.series))
	for label := range s.series {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Snapshot returns a copy of every series, sorted by label.
func (s *Statistics) Snapshot() []Series {
	out := make([]Series, 0, len(s.series))
	for _, label := range s.Labels() {
		src := s.series[label]
		out = append(out, Series{
			Label:  src.Label,
			Unit:   src.Unit,
			Type:   src.Type,
			Values: append([]float64(nil), src.Values...),
		})
	}
	return out
}

// Noop returns the marker pushed in no-op mode, if any.
func (s *Statistics) Noop() (Unit, Type, bool) {
	if s.noop == nil {
		return UnitUnknown, TypeUnknown, false
	}
	return s.noop.Unit, s.noop.Type, true
}

func (s *Statistics) ReachedInfinity() bool { return s.reachedInfinity }
