package argument

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Integer is a signed integer argument with an optional domain check.
type Integer struct {
	base
	value    int64
	typeName string
	check    func(int64) bool
}

func NewInteger(c *Container, key, help string) *Integer {
	a := &Integer{base: base{key: key, help: help}, typeName: "int"}
	c.Push(a)
	return a
}

// NewPositiveInteger declares an integer that must be greater than zero.
func NewPositiveInteger(c *Container, key, help string) *Integer {
	a := &Integer{base: base{key: key, help: help}, typeName: "positiveInt", check: func(v int64) bool { return v > 0 }}
	c.Push(a)
	return a
}

// NewNonNegativeInteger declares an integer that must be zero or more.
func NewNonNegativeInteger(c *Container, key, help string) *Integer {
	a := &Integer{base: base{key: key, help: help}, typeName: "nonNegativeInt", check: func(v int64) bool { return v >= 0 }}
	c.Push(a)
	return a
}

func (a *Integer) Set(s string) error {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	a.value = v
	a.markParsed()
	return nil
}

func (a *Integer) String() string { return strconv.FormatInt(a.value, 10) }
func (a *Integer) Type() string { return a.typeName }

func (a *Integer) Validate() bool {
	return a.check == nil || a.check(a.value)
}

func (a *Integer) Value() int64 { return a.value }
func (a *Integer) Int() int { return int(a.value) }

func (a *Integer) Assign(v int64) *Integer {
	a.value = v
	a.markParsed()
	return a
}

var byteSizeUnits = []struct {
	suffix     string
	multiplier uint64
}{
	{"kb", 1 << 10},
	{"mb", 1 << 20},
	{"gb", 1 << 30},
	{"b", 1},
}

// ByteSize is a positive byte count. It accepts an optional b/kb/mb/gb suffix
// (case-insensitive, powers of 1024) and prints the largest exact unit.
type ByteSize struct {
	base
	value uint64
}

func NewByteSize(c *Container, key, help string) *ByteSize {
	a := &ByteSize{base: base{key: key, help: help}}
	c.Push(a)
	return a
}

func (a *ByteSize) Set(s string) error {
	lower := strings.ToLower(strings.TrimSpace(s))
	multiplier := uint64(1)
	for _, unit := range byteSizeUnits {
		if strings.HasSuffix(lower, unit.suffix) {
			lower = strings.TrimSuffix(lower, unit.suffix)
			multiplier = unit.multiplier
			break
		}
	}
	v, err := strconv.ParseUint(lower, 10, 64)
	if err != nil {
		return fmt.Errorf("not a byte size: %q", s)
	}
	if v > math.MaxUint64/multiplier {
		return fmt.Errorf("byte size out of range: %q", s)
	}
	a.value = v * multiplier
	a.markParsed()
	return nil
}

func (a *ByteSize) String() string {
	if a.value == 0 {
		return "0"
	}
	units := []string{"", "KB", "MB", "GB"}
	v := a.value
	unit := 0
	for unit < len(units)-1 && v%1024 == 0 {
		v /= 1024
		unit++
	}
	return strconv.FormatUint(v, 10) + units[unit]
}

func (a *ByteSize) Type() string { return "byteSize" }
func (a *ByteSize) Validate() bool { return a.value > 0 }
func (a *ByteSize) Value() uint64 { return a.value }

func (a *ByteSize) Assign(v uint64) *ByteSize {
	a.value = v
	a.markParsed()
	return a
}

// Boolean takes an explicit 0 or 1. It stays invalid until one is given.
type Boolean struct {
	base
	value int64
}

func NewBoolean(c *Container, key, help string) *Boolean {
	if help == "" {
		help = "(0 or 1)"
	} else {
		help += " (0 or 1)"
	}
	a := &Boolean{base: base{key: key, help: help}, value: -1}
	c.Push(a)
	return a
}

func (a *Boolean) Set(s string) error {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("expected 0 or 1, got %q", s)
	}
	a.value = v
	a.markParsed()
	return nil
}

func (a *Boolean) String() string { return strconv.FormatInt(a.value, 10) }
func (a *Boolean) Type() string { return "bool" }
func (a *Boolean) Validate() bool { return a.value == 0 || a.value == 1 }
func (a *Boolean) Value() bool { return a.value == 1 }

func (a *Boolean) Assign(v bool) *Boolean {
	a.value = 0
	if v {
		a.value = 1
	}
	a.markParsed()
	return a
}

// BooleanFlag is a switch: a bare `--key` turns it on. It is always valid and
// defaults to off.
type BooleanFlag struct {
	base
	value bool
}

func NewBooleanFlag(c *Container, key, help string) *BooleanFlag {
	a := &BooleanFlag{base: base{key: key, help: help}}
	c.Push(a)
	return a
}

func (a *BooleanFlag) Set(s string) error {
	if s == "" {
		a.value = true
		a.markParsed()
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("not a boolean: %q", s)
	}
	a.value = v
	a.markParsed()
	return nil
}

func (a *BooleanFlag) String() string {
	if a.value {
		return "1"
	}
	return "0"
}

func (a *BooleanFlag) Type() string { return "flag" }
func (a *BooleanFlag) Validate() bool { return true }
func (a *BooleanFlag) Value() bool { return a.value }

func (a *BooleanFlag) Assign(v bool) *BooleanFlag {
	a.value = v
	a.markParsed()
	return a
}

type String struct {
	base
	value string
}

func NewString(c *Container, key, help string) *String {
	a := &String{base: base{key: key, help: help}}
	c.Push(a)
	return a
}

func (a *String) Set(s string) error {
	a.value = s
	a.markParsed()
	return nil
}

func (a *String) String() string { return a.value }
func (a *String) Type() string { return "string" }
func (a *String) Validate() bool { return true }
func (a *String) Value() string { return a.value }
func (a *String) Assign(v string) *String {
	a.value = v
	a.markParsed()
	return a
}

// StringList holds comma separated values.
type StringList struct {
	base
	value []string
}

func NewStringList(c *Container, key, help string) *StringList {
	a := &StringList{base: base{key: key, help: help}}
	c.Push(a)
	return a
}

func (a *StringList) Set(s string) error {
	a.value = nil
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			a.value = append(a.value, item)
		}
	}
	a.markParsed()
	return nil
}

func (a *StringList) String() string { return strings.Join(a.value, ",") }
func (a *StringList) Type() string { return "stringList" }
func (a *StringList) Validate() bool { return true }
func (a *StringList) Value() []string { return a.value }

func (a *StringList) Assign(v ...string) *StringList {
	a.value = v
	a.markParsed()
	return a
}
