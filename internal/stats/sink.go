// Package stats collects per-iteration samples pushed by benchmark bodies.
//
// Two sinks exist: Statistics keeps samples in memory for summarization and
// printing, and WireStatistics (used inside a spawned worker) serializes
// every duration onto the measurement pipe for the parent to read back.
package stats

import "time"

// Sink is the push side of a statistics collection. Every push counts
// towards a fixed capacity equal to the requested iteration count; pushing
// past it is a harness bug and panics.
type Sink interface {
	// PushValue records a duration in Microseconds, Nanoseconds or Latency.
	PushValue(d time.Duration, unit Unit, typ Type, label string)
	// PushBandwidth records bytes moved in d, converted to GigabytesPerSecond.
	PushBandwidth(d time.Duration, bytes uint64, unit Unit, typ Type, label string)
	PushCpuCounter(count uint64, unit Unit, typ Type, label string)
	PushPercentage(value float64, unit Unit, typ Type, label string)
	// PushEnergy takes MicroJoules or Watts.
	PushEnergy(value float64, unit Unit, typ Type, label string)
	// PushUnitAndType is the single marker push of a no-op run.
	PushUnitAndType(unit Unit, typ Type)

	IsFull() bool
	IsEmpty() bool
}
