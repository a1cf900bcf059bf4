package argument

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Bitmask is a string of '0' and '1' characters, most significant bit first,
// at most Size bits long.
type Bitmask struct {
	base
	size      int
	allowZero bool
	value     uint64
	valid     bool
}

func NewBitmask(c *Container, key, help string, size int, allowZero bool) *Bitmask {
	if size <= 0 || size > 64 {
		panic(fmt.Sprintf("argument %q: bitmask size %d out of range", key, size))
	}
	a := &Bitmask{base: base{key: key, help: help}, size: size, allowZero: allowZero, valid: true}
	c.Push(a)
	return a
}

func (a *Bitmask) Set(s string) error {
	a.valid = false
	if len(s) == 0 || len(s) > a.size {
		return fmt.Errorf("bitmask %q must have 1 to %d digits", s, a.size)
	}
	if strings.Trim(s, "01") != "" {
		return fmt.Errorf("bitmask %q may only contain 0 and 1", s)
	}
	v, _ := strconv.ParseUint(s, 2, 64)
	a.value = v
	a.markParsed()
	if v == 0 && !a.allowZero {
		return fmt.Errorf("bitmask %q cannot be all zeros", s)
	}
	a.valid = true
	return nil
}

func (a *Bitmask) String() string {
	return fmt.Sprintf("%0*b", a.size, a.value)
}

func (a *Bitmask) Type() string { return "bitmask" }

func (a *Bitmask) Validate() bool {
	if !a.allowZero && a.value == 0 {
		return false
	}
	return a.valid
}

func (a *Bitmask) Value() uint64 { return a.value }

// EnabledBits lists the indices of set bits, lowest first.
func (a *Bitmask) EnabledBits() []int {
	var bits []int
	for i := 0; i < a.size; i++ {
		if a.value&(1<<uint(i)) != 0 {
			bits = append(bits, i)
		}
	}
	return bits
}

func (a *Bitmask) Assign(v uint64) *Bitmask {
	a.value = v
	a.valid = true
	a.markParsed()
	return a
}

// ThreeComponent is an `x:y:z` triple of unsigned integers, used for work
// group sizes, image regions and offsets.
type ThreeComponent struct {
	base
	value    [3]uint64
	typeName string
	nonZero  bool
}

func NewThreeComponentUint(c *Container, key, help string) *ThreeComponent {
	return newThreeComponent(c, key, help, "uint3", false)
}

func NewThreeComponentOffset(c *Container, key, help string) *ThreeComponent {
	return newThreeComponent(c, key, help, "offset3", false)
}

// NewThreeComponentSize declares a triple whose components must all be positive.
func NewThreeComponentSize(c *Container, key, help string) *ThreeComponent {
	return newThreeComponent(c, key, help, "size3", true)
}

func newThreeComponent(c *Container, key, help, typeName string, nonZero bool) *ThreeComponent {
	a := &ThreeComponent{base: base{key: key, help: help}, typeName: typeName, nonZero: nonZero}
	c.Push(a)
	return a
}

func (a *ThreeComponent) Set(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return fmt.Errorf("%q is not a 3-component vector (x:y:z)", s)
	}
	var v [3]uint64
	for i, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		v[i] = n
	}
	a.value = v
	a.markParsed()
	return nil
}

func (a *ThreeComponent) String() string {
	return fmt.Sprintf("%d:%d:%d", a.value[0], a.value[1], a.value[2])
}

func (a *ThreeComponent) Type() string { return a.typeName }

func (a *ThreeComponent) Validate() bool {
	if !a.nonZero {
		return true
	}
	return a.value[0] > 0 && a.value[1] > 0 && a.value[2] > 0
}

func (a *ThreeComponent) Value() [3]uint64 { return a.value }

// Total is x*y*z.
func (a *ThreeComponent) Total() uint64 { return a.value[0] * a.value[1] * a.value[2] }

func (a *ThreeComponent) Assign(x, y, z uint64) *ThreeComponent {
	a.value = [3]uint64{x, y, z}
	a.markParsed()
	return a
}

// HexBlob is a byte string written as 0x followed by two hex digits per byte.
type HexBlob struct {
	base
	value []byte
}

func NewHexBlob(c *Container, key, help string) *HexBlob {
	a := &HexBlob{base: base{key: key, help: help}}
	c.Push(a)
	return a
}

func (a *HexBlob) Set(s string) error {
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("hex value %q must start with 0x", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return fmt.Errorf("hex value %q: %w", s, err)
	}
	a.value = raw
	a.markParsed()
	return nil
}

func (a *HexBlob) String() string {
	return "0x" + strings.ToUpper(hex.EncodeToString(a.value))
}

func (a *HexBlob) Type() string { return "hex" }
func (a *HexBlob) Validate() bool { return len(a.value) > 0 }
func (a *HexBlob) Value() []byte { return a.value }

func (a *HexBlob) Assign(v []byte) *HexBlob {
	a.value = append([]byte(nil), v...)
	a.markParsed()
	return a
}
