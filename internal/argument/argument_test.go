package argument

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerKinds(t *testing.T) {
	tests := []struct {
		name  string
		ctor  func(*Container, string, string) *Integer
		input string
		valid bool
	}{
		{"integer negative", NewInteger, "-5", true},
		{"positive zero", NewPositiveInteger, "0", false},
		{"positive one", NewPositiveInteger, "1", true},
		{"non-negative zero", NewNonNegativeInteger, "0", true},
		{"non-negative negative", NewNonNegativeInteger, "-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Container
			a := tt.ctor(&c, "count", "")
			require.NoError(t, a.Set(tt.input))
			assert.True(t, a.Parsed())
			assert.Equal(t, tt.valid, a.Validate())
		})
	}
}

func TestIntegerRejectsGarbage(t *testing.T) {
	var c Container
	a := NewPositiveInteger(&c, "count", "")
	assert.Error(t, a.Set("ten"))
	assert.False(t, a.Parsed())
}

func TestByteSize(t *testing.T) {
	tests := []struct {
		input    string
		bytes    uint64
		rendered string
	}{
		{"512", 512, "512"},
		{"4b", 4, "4"},
		{"1kb", 1024, "1KB"},
		{"2KB", 2048, "2KB"},
		{"1536", 1536, "1536"},
		{"3Mb", 3 << 20, "3MB"},
		{"1gb", 1 << 30, "1GB"},
		{"2048MB", 2 << 30, "2GB"},
		{"17179869183gb", 17179869183 << 30, "17179869183GB"},
		{"18446744073709551615", math.MaxUint64, "18446744073709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var c Container
			a := NewByteSize(&c, "size", "")
			require.NoError(t, a.Set(tt.input))
			assert.Equal(t, tt.bytes, a.Value())
			assert.Equal(t, tt.rendered, a.String())
			assert.True(t, a.Validate())
		})
	}

	var c Container
	a := NewByteSize(&c, "size", "")
	assert.Error(t, a.Set("kb"))
	assert.Error(t, a.Set("12tb"))
	require.NoError(t, a.Set("4kb"))
	for _, overflow := range []string{"17179869184gb", "18014398509481984kb", "17592186044416mb"} {
		assert.Error(t, a.Set(overflow), overflow)
		assert.Equal(t, uint64(4096), a.Value(), "a rejected value keeps the previous one")
	}
	a.Assign(0)
	assert.False(t, a.Validate())
	assert.Equal(t, "0", a.String())
}

func TestBoolean(t *testing.T) {
	var c Container
	a := NewBoolean(&c, "useEvents", "Use events")
	assert.Equal(t, "Use events (0 or 1)", a.Help())
	assert.False(t, a.Validate(), "unset boolean must not validate")

	require.NoError(t, a.Set("1"))
	assert.True(t, a.Value())
	assert.True(t, a.Validate())

	require.NoError(t, a.Set("2"))
	assert.False(t, a.Validate())

	assert.Error(t, a.Set("yes"))
}

func TestBooleanFlag(t *testing.T) {
	var c Container
	a := NewBooleanFlag(&c, "csv", "")
	assert.False(t, a.Value())
	require.NoError(t, a.Set(""))
	assert.True(t, a.Value())
	require.NoError(t, a.Set("0"))
	assert.False(t, a.Value())
}

func TestStringList(t *testing.T) {
	var c Container
	a := NewStringList(&c, "argFilter", "")
	require.NoError(t, a.Set("size=1KB, !api=ocl,,"))
	assert.Equal(t, []string{"size=1KB", "!api=ocl"}, a.Value())
	assert.Equal(t, "size=1KB,!api=ocl", a.String())
}

type placement int

const (
	placementHost placement = iota
	placementDevice
	placementShared
)

func TestEnum(t *testing.T) {
	var c Container
	a := NewEnum(&c, "placement", "Memory placement",
		[]placement{placementHost, placementDevice, placementShared},
		[]string{"Host", "Device", "Shared"})

	assert.Equal(t, "Memory placement (Host or Device or Shared)", a.Help())
	assert.False(t, a.Validate())

	require.NoError(t, a.Set("device"))
	assert.Equal(t, placementDevice, a.Value())
	assert.Equal(t, "Device", a.String())
	assert.True(t, a.Validate())

	assert.Error(t, a.Set("gpu"))
	assert.False(t, a.Validate())
}

func TestBitfieldEnum(t *testing.T) {
	var c Container
	a := NewBitfieldEnum(&c, "engines", "", []uint8{1, 2, 4}, []string{"Ccs0", "Bcs", "Rcs"})

	require.NoError(t, a.Set("ccs0|RCS"))
	assert.Equal(t, uint8(5), a.Value())
	assert.True(t, a.Has(4))
	assert.Equal(t, "Ccs0|Rcs", a.String())

	assert.Error(t, a.Set("Ccs0|Vcs"))
	assert.False(t, a.Validate())
}

func TestBitmask(t *testing.T) {
	var c Container
	a := NewBitmask(&c, "tiles", "", 4, false)

	require.NoError(t, a.Set("0101"))
	assert.Equal(t, []int{0, 2}, a.EnabledBits())
	assert.Equal(t, "0101", a.String())

	assert.Error(t, a.Set("0000"))
	assert.False(t, a.Validate())
	assert.Error(t, a.Set("10101"))
	assert.Error(t, a.Set("01a1"))
}

func TestThreeComponent(t *testing.T) {
	var c Container
	size := NewThreeComponentSize(&c, "region", "")
	offset := NewThreeComponentOffset(&c, "origin", "")

	require.NoError(t, size.Set("4:2:1"))
	assert.Equal(t, uint64(8), size.Total())
	assert.Equal(t, "4:2:1", size.String())
	assert.True(t, size.Validate())

	require.NoError(t, size.Set("4:0:1"))
	assert.False(t, size.Validate())

	require.NoError(t, offset.Set("0:0:0"))
	assert.True(t, offset.Validate())

	assert.Error(t, size.Set("1:2"))
	assert.Error(t, size.Set("1:2:3:4"))
}

func TestHexBlob(t *testing.T) {
	var c Container
	a := NewHexBlob(&c, "pattern", "")
	require.NoError(t, a.Set("0x01ab"))
	assert.Equal(t, []byte{0x01, 0xAB}, a.Value())
	assert.Equal(t, "0x01AB", a.String())

	assert.Error(t, a.Set("01ab"))
	assert.Error(t, a.Set("0x1"))
}

func TestCommandLineSyntax(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"valid", []string{"--test=UsmCopy", "--csv", "--size=1KB"}, ""},
		{"empty", nil, ""},
		{"single dash", []string{"-csv"}, "ill-formed"},
		{"bare dashes", []string{"--"}, "ill-formed"},
		{"positional", []string{"UsmCopy"}, "ill-formed"},
		{"empty key", []string{"--=5"}, "ill-formed"},
		{"duplicate", []string{"--size=1", "--size=2"}, "more than once"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := ParseCommandLine(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cl.Tokens, len(tt.args))
		})
	}
}

func TestCommandLineValueWithEquals(t *testing.T) {
	cl, err := ParseCommandLine([]string{"--argFilter=size=1KB", "--noop"})
	require.NoError(t, err)
	assert.Equal(t, "argFilter", cl.Tokens[0].Key)
	assert.Equal(t, "size=1KB", cl.Tokens[0].Value)
	assert.False(t, cl.Tokens[1].HasValue)
}

type atomicsArgs struct {
	Container
	atomicsPerCacheline *Integer
	workgroupCount      *Integer
	workgroupSize       *Integer
}

func newAtomicsArgs() *atomicsArgs {
	a := &atomicsArgs{}
	a.atomicsPerCacheline = NewPositiveInteger(&a.Container, "atomicsPerCacheline", "")
	a.workgroupCount = NewPositiveInteger(&a.Container, "wgc", "")
	a.workgroupSize = NewPositiveInteger(&a.Container, "wgs", "")
	a.Extra = func() bool {
		return a.atomicsPerCacheline.Value() <= a.workgroupCount.Value()*a.workgroupSize.Value()
	}
	return a
}

func TestContainerParseAndValidate(t *testing.T) {
	a := newAtomicsArgs()
	cl, err := ParseCommandLine([]string{"--atomicsPerCacheline=8", "--wgc=1", "--wgs=4", "--iterations=5"})
	require.NoError(t, err)

	require.NoError(t, a.Parse(cl))
	assert.Empty(t, a.Unparsed())
	assert.Equal(t, []string{"iterations"}, cl.UnprocessedKeys())
	assert.False(t, a.Validate(), "8 atomics cannot fit 1x4 work items")

	a.workgroupCount.Assign(32)
	a.workgroupSize.Assign(64)
	assert.True(t, a.Validate())
}

func TestContainerParseError(t *testing.T) {
	a := newAtomicsArgs()
	cl, err := ParseCommandLine([]string{"--wgc=many"})
	require.NoError(t, err)
	err = a.Parse(cl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--wgc")
}

func TestContainerRendering(t *testing.T) {
	a := newAtomicsArgs()
	a.atomicsPerCacheline.Assign(1)
	a.workgroupCount.Assign(2)

	assert.Equal(t, []Argument{a.workgroupSize}, a.Unparsed())
	assert.Equal(t, "atomicsPerCacheline=1 wgc=2 wgs=0", a.String())
	assert.Equal(t, "--atomicsPerCacheline=1 --wgc=2 --wgs=0", a.CommandLine())
	assert.Equal(t, []string{"--atomicsPerCacheline=1", "--wgc=2", "--wgs=0"}, a.Tokens())

	help := a.Help(2)
	assert.Equal(t, 3, strings.Count(help, "\t\t"))

	fs := a.FlagSet("SeparateAtomics")
	assert.NotNil(t, fs.Lookup("wgc"))
	assert.Contains(t, fs.FlagUsages(), "--wgs")
}

func TestEmptyContainer(t *testing.T) {
	var c Container
	cl, err := ParseCommandLine(nil)
	require.NoError(t, err)
	assert.NoError(t, c.Parse(cl))
	assert.True(t, c.Validate())
	assert.Empty(t, c.Unparsed())
	assert.Equal(t, "", c.String())
}

func TestDuplicateDeclarationPanics(t *testing.T) {
	var c Container
	NewInteger(&c, "size", "")
	assert.Panics(t, func() { NewByteSize(&c, "size", "") })
}
