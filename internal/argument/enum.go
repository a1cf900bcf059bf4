package argument

import (
	"fmt"
	"strings"
)

// Enum accepts exactly one of a fixed set of names, compared
// case-insensitively. Unknown names fail to parse.
type Enum[T comparable] struct {
	base
	values []T
	names  []string
	value  T
	valid  bool
}

// NewEnum declares an enum argument. values and names are parallel slices.
func NewEnum[T comparable](c *Container, key, help string, values []T, names []string) *Enum[T] {
	if len(values) != len(names) {
		panic(fmt.Sprintf("argument %q: %d enum values but %d names", key, len(values), len(names)))
	}
	a := &Enum[T]{
		base:   base{key: key, help: enumHelp(help, names, " or ")},
		values: values,
		names:  names,
	}
	c.Push(a)
	return a
}

func enumHelp(prefix string, names []string, separator string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	b.WriteByte('(')
	b.WriteString(strings.Join(names, separator))
	b.WriteByte(')')
	return b.String()
}

func (a *Enum[T]) Set(s string) error {
	for i, name := range a.names {
		if strings.EqualFold(name, s) {
			a.value = a.values[i]
			a.valid = true
			a.markParsed()
			return nil
		}
	}
	a.valid = false
	return fmt.Errorf("unknown value %q, expected one of %s", s, strings.Join(a.names, ", "))
}

func (a *Enum[T]) String() string {
	for i, v := range a.values {
		if v == a.value {
			return a.names[i]
		}
	}
	return "unknown"
}

func (a *Enum[T]) Type() string { return "enum" }
func (a *Enum[T]) Validate() bool { return a.valid }
func (a *Enum[T]) Value() T { return a.value }

func (a *Enum[T]) Assign(v T) *Enum[T] {
	a.value = v
	a.valid = false
	for _, known := range a.values {
		if known == v {
			a.valid = true
		}
	}
	a.markParsed()
	return a
}

// Bits is the constraint for bitfield enums.
type Bits interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// BitfieldEnum accepts one or more names joined with '|' and ORs their
// values together. An empty or unknown component makes the whole value zero,
// which never validates.
type BitfieldEnum[T Bits] struct {
	base
	values []T
	names  []string
	value  T
}

const bitfieldSeparator = "|"

func NewBitfieldEnum[T Bits](c *Container, key, help string, values []T, names []string) *BitfieldEnum[T] {
	if len(values) != len(names) {
		panic(fmt.Sprintf("argument %q: %d enum values but %d names", key, len(values), len(names)))
	}
	a := &BitfieldEnum[T]{
		base:   base{key: key, help: enumHelp(help, names, " | ")},
		values: values,
		names:  names,
	}
	c.Push(a)
	return a
}

func (a *BitfieldEnum[T]) Set(s string) error {
	var combined T
	for _, part := range strings.Split(s, bitfieldSeparator) {
		single, ok := a.lookup(part)
		if !ok {
			a.value = 0
			return fmt.Errorf("unknown value %q in %q", part, s)
		}
		combined |= single
	}
	a.value = combined
	a.markParsed()
	return nil
}

func (a *BitfieldEnum[T]) lookup(name string) (T, bool) {
	for i, n := range a.names {
		if strings.EqualFold(n, name) {
			return a.values[i], true
		}
	}
	return 0, false
}

func (a *BitfieldEnum[T]) String() string {
	var parts []string
	for i, v := range a.values {
		if v != 0 && a.value&v == v {
			parts = append(parts, a.names[i])
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, bitfieldSeparator)
}

func (a *BitfieldEnum[T]) Type() string { return "bitfield" }
func (a *BitfieldEnum[T]) Validate() bool { return a.value != 0 }
func (a *BitfieldEnum[T]) Value() T { return a.value }

// Has reports whether every bit of flag is set.
func (a *BitfieldEnum[T]) Has(flag T) bool { return a.value&flag == flag }

func (a *BitfieldEnum[T]) Assign(v T) *BitfieldEnum[T] {
	a.value = v
	a.markParsed()
	return a
}
