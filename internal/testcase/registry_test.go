package testcase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
)

type copyArgs struct {
	Base
	Size *argument.ByteSize
}

func newCopyArgs() *copyArgs {
	a := &copyArgs{}
	a.Size = argument.NewByteSize(&a.Container, "size", "Bytes to copy")
	return a
}

type markerArgs struct {
	Base
}

func copyBody(_ context.Context, env Env, args *copyArgs, sink stats.Sink) result.Result {
	if env.SkipIfNoop(sink, stats.GigabytesPerSecond, stats.Gpu) {
		return result.Nooped
	}
	for i := 0; i < env.Iterations; i++ {
		sink.PushBandwidth(time.Microsecond, args.Size.Value(), stats.GigabytesPerSecond, stats.Gpu, "")
	}
	return result.Success
}

func TestResolve(t *testing.T) {
	r := NewRegistry(api.L0, api.OpenCL)
	r.Register(Declare("UsmCopy", "copies memory", newCopyArgs).
		Implement(api.L0, copyBody).
		ImplementWithExtensions(api.OpenCL, copyBody))

	tests := []struct {
		name         string
		test         string
		api          api.Api
		noExtensions bool
		want         result.Result
	}{
		{"registered", "UsmCopy", api.L0, false, result.Success},
		{"missing api", "UsmCopy", api.SYCL, false, result.NoImplementation},
		{"missing test", "Nope", api.L0, false, result.NoImplementation},
		{"extensions allowed", "UsmCopy", api.OpenCL, false, result.Success},
		{"extensions disabled", "UsmCopy", api.OpenCL, true, result.NoImplementation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impl, res := r.Resolve(tt.test, tt.api, tt.noExtensions)
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.want == result.Success, impl != nil)
		})
	}
}

func TestRunThroughImplementation(t *testing.T) {
	r := NewRegistry(api.L0)
	r.Register(Declare("UsmCopy", "copies memory", newCopyArgs).Implement(api.L0, copyBody))

	impl, res := r.Resolve("UsmCopy", api.L0, false)
	require.Equal(t, result.Success, res)

	args := newCopyArgs()
	args.Size.Assign(4096)
	s := stats.New(3)
	assert.Equal(t, result.Success, impl.Run(context.Background(), Env{Api: api.L0, Iterations: 3}, args, s))
	assert.True(t, s.IsFull())

	noop := stats.New(3)
	assert.Equal(t, result.Nooped, impl.Run(context.Background(), Env{Noop: true, Iterations: 3}, args, noop))
	unit, typ, ok := noop.Noop()
	assert.True(t, ok)
	assert.Equal(t, stats.GigabytesPerSecond, unit)
	assert.Equal(t, stats.Gpu, typ)
	assert.True(t, noop.IsEmpty())
}

func TestRunWithWrongArgumentTypePanics(t *testing.T) {
	tc := Declare("UsmCopy", "copies memory", newCopyArgs).Implement(api.L0, copyBody)
	impl, ok := tc.Implementation(api.L0)
	require.True(t, ok)
	assert.Panics(t, func() {
		impl.Run(context.Background(), Env{}, &markerArgs{}, stats.New(1))
	})
}

func TestRegisterPanics(t *testing.T) {
	newMarker := func() *markerArgs { return &markerArgs{} }

	tests := []struct {
		name string
		fn   func()
	}{
		{"empty name", func() { NewRegistry().Register(Declare("", "", newMarker)) }},
		{"space", func() { NewRegistry().Register(Declare("Usm Copy", "", newMarker)) }},
		{"dash", func() { NewRegistry().Register(Declare("Usm-Copy", "", newMarker)) }},
		{"equals", func() { NewRegistry().Register(Declare("Usm=Copy", "", newMarker)) }},
		{"quote", func() { NewRegistry().Register(Declare(`Usm"Copy`, "", newMarker)) }},
		{"duplicate name", func() {
			r := NewRegistry()
			r.Register(Declare("UsmCopy", "", newMarker))
			r.Register(Declare("UsmCopy", "", newCopyArgs))
		}},
		{"duplicate api", func() {
			Declare("UsmCopy", "", newCopyArgs).Implement(api.L0, copyBody).Implement(api.L0, copyBody)
		}},
		{"api all", func() { Declare("UsmCopy", "", newCopyArgs).Implement(api.All, copyBody) }},
		{"nil body", func() { Declare("UsmCopy", "", newCopyArgs).Implement(api.L0, nil) }},
		{"illegal argument key", func() {
			NewRegistry().Register(Declare("Bad", "", func() *markerArgs {
				a := &markerArgs{}
				argument.NewInteger(&a.Container, "bad-key", "")
				return a
			}))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.fn)
		})
	}
}

func TestMarkerTestCaseWithNoArguments(t *testing.T) {
	r := NewRegistry(api.L0)
	r.Register(Declare("Marker", "does nothing", func() *markerArgs { return &markerArgs{} }).
		Implement(api.L0, func(_ context.Context, _ Env, _ *markerArgs, _ stats.Sink) result.Result {
			return result.Success
		}))

	d, ok := r.Lookup("Marker")
	require.True(t, ok)
	args := d.NewArguments().ArgumentContainer()
	assert.Empty(t, args.Arguments())
	assert.True(t, args.Validate())
	assert.Empty(t, args.Unparsed())
}

func TestDeclarationsSortedAndApis(t *testing.T) {
	r := NewRegistry(api.L0, api.OpenCL)
	r.Register(Declare("Zeta", "", newCopyArgs).Implement(api.OpenCL, copyBody).Implement(api.L0, copyBody))
	r.Register(Declare("Alpha", "", newCopyArgs).WithMatrix(func() []*copyArgs {
		small, large := newCopyArgs(), newCopyArgs()
		small.Size.Assign(64)
		large.Size.Assign(1 << 20)
		return []*copyArgs{small, large}
	}))

	decls := r.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, "Alpha", decls[0].Name())
	assert.Equal(t, "Zeta", decls[1].Name())

	assert.Empty(t, decls[0].Apis())
	assert.Equal(t, []api.Api{api.L0, api.OpenCL}, decls[1].Apis())

	configs := decls[0].Configurations()
	require.Len(t, configs, 2)
	assert.Equal(t, "size=64", configs[0].ArgumentContainer().String())
	assert.Nil(t, decls[1].Configurations())

	assert.True(t, r.Supports(api.L0))
	assert.False(t, r.Supports(api.SYCL))
}
