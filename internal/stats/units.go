package stats

import "fmt"

// Unit is the measurement unit of a sample series.
type Unit int

const (
	UnitUnknown Unit = iota
	GigabytesPerSecond
	Microseconds
	Nanoseconds
	CpuHardwareCounter
	Percentage
	Latency
	MicroJoules
	Watts
)

var unitNames = [...]string{
	UnitUnknown:        "unknown",
	GigabytesPerSecond: "GB/s",
	Microseconds:       "us",
	Nanoseconds:        "ns",
	CpuHardwareCounter: "count",
	Percentage:         "%",
	Latency:            "clk",
	MicroJoules:        "uJ",
	Watts:              "W",
}

func (u Unit) String() string {
	if u < 0 || int(u) >= len(unitNames) {
		return fmt.Sprintf("Unit(%d)", int(u))
	}
	return unitNames[u]
}

// Type tells which side of the API call a sample measures.
type Type int

const (
	TypeUnknown Type = iota
	Cpu
	Gpu
	Wall
	Power
	Bandwidth
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	Cpu:         "cpu",
	Gpu:         "gpu",
	Wall:        "wall",
	Power:       "power",
	Bandwidth:   "bw",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// PrintType selects how statistics are rendered.
type PrintType int

const (
	PrintDefault PrintType = iota
	PrintDefaultWithVerbose
	PrintCsv
	PrintNoop
)

func (p PrintType) String() string {
	switch p {
	case PrintDefault:
		return "default"
	case PrintDefaultWithVerbose:
		return "verbose"
	case PrintCsv:
		return "csv"
	case PrintNoop:
		return "noop"
	}
	return fmt.Sprintf("PrintType(%d)", int(p))
}
