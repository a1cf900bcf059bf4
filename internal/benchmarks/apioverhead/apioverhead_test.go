package apioverhead

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

const iterations = 3

func newRegistry(t *testing.T, opts ...device.Option) *testcase.Registry {
	t.Helper()
	dev := device.New(append([]device.Option{device.WithWorkers(2)}, opts...)...)
	t.Cleanup(dev.Free)
	r := testcase.NewRegistry(api.L0, api.OpenCL)
	Register(r, dev)
	return r
}

func run(t *testing.T, r *testcase.Registry, test string, a api.Api, args testcase.Arguments, env testcase.Env) (result.Result, *stats.Statistics) {
	t.Helper()
	decl, ok := r.Lookup(test)
	require.True(t, ok, test)
	impl, ok := decl.Implementation(a)
	require.True(t, ok, "%s has no %s implementation", test, a)
	require.True(t, args.ArgumentContainer().Validate(), "arguments of %s are invalid", test)

	env.Api = a
	if env.Iterations == 0 {
		env.Iterations = iterations
	}
	sink := stats.New(env.Iterations)
	return impl.Run(context.Background(), env, args, sink), sink
}

func TestRegisterDeclaresEveryTest(t *testing.T) {
	r := newRegistry(t)
	var names []string
	for _, decl := range r.Declarations() {
		names = append(names, decl.Name())
		assert.Equal(t, []api.Api{api.L0, api.OpenCL}, decl.Apis(), decl.Name())
		for _, args := range decl.Configurations() {
			assert.True(t, args.ArgumentContainer().Validate(), "%s(%s)", decl.Name(), args.ArgumentContainer())
			assert.Empty(t, args.ArgumentContainer().Unparsed())
		}
	}
	assert.Equal(t, []string{"KernelAndCopy", "MultithreadSubmit", "SeparateAtomics", "SubmitKernel", "UsmCopy"}, names)

	impl, _ := mustDecl(t, r, "UsmCopy").Implementation(api.OpenCL)
	assert.True(t, impl.RequiresVendorExtensions())
	impl, _ = mustDecl(t, r, "UsmCopy").Implementation(api.L0)
	assert.False(t, impl.RequiresVendorExtensions())
}

func mustDecl(t *testing.T, r *testcase.Registry, name string) testcase.Declaration {
	t.Helper()
	decl, ok := r.Lookup(name)
	require.True(t, ok)
	return decl
}

func TestSeparateAtomicsRelationalValidation(t *testing.T) {
	tests := []struct {
		perCacheline, wgc, wgs int64
		valid                  bool
	}{
		{8, 1, 4, false},
		{8, 32, 64, true},
		{8, 2, 4, true},
		{9, 2, 4, false},
	}
	for _, tt := range tests {
		args := separateAtomicsConfig(tt.perCacheline, tt.wgc, tt.wgs)
		assert.Equal(t, tt.valid, args.ArgumentContainer().Validate(), "%s", args.ArgumentContainer())
	}
}

func TestSubmitKernel(t *testing.T) {
	r := newRegistry(t)
	for _, a := range []api.Api{api.L0, api.OpenCL} {
		for _, completion := range []bool{false, true} {
			got, sink := run(t, r, "SubmitKernel", a, submitKernelConfig(4, 8, 10, completion, false), testcase.Env{})
			require.Equal(t, result.Success, got)
			assert.Equal(t, []string{labelTime}, sink.Labels())
			assert.True(t, sink.IsFull())
			assert.Equal(t, stats.Microseconds, sink.Snapshot()[0].Unit)
		}
	}
}

func TestSubmitKernelHardwareCounters(t *testing.T) {
	r := newRegistry(t)
	got, sink := run(t, r, "SubmitKernel", api.L0, submitKernelConfig(1, 1, 0, false, true), testcase.Env{})
	if got == result.ApiNotCapable {
		t.Skip("perf events are not available on this host")
	}
	require.Equal(t, result.Success, got)
	assert.Equal(t, []string{labelInstructions, labelTime}, sink.Labels())
	assert.True(t, sink.IsFull())
	for _, series := range sink.Snapshot() {
		if series.Label == labelInstructions {
			assert.Equal(t, stats.CpuHardwareCounter, series.Unit)
		}
	}
}

func TestUsmCopy(t *testing.T) {
	r := newRegistry(t)
	got, sink := run(t, r, "UsmCopy", api.L0, usmCopyConfig(64<<10, false), testcase.Env{})
	require.Equal(t, result.Success, got)
	series := sink.Snapshot()
	require.Len(t, series, 1)
	assert.Equal(t, stats.GigabytesPerSecond, series[0].Unit)
	assert.Equal(t, stats.Cpu, series[0].Type)
	assert.Len(t, series[0].Values, iterations)

	got, sink = run(t, r, "UsmCopy", api.OpenCL, usmCopyConfig(4<<10, true), testcase.Env{})
	require.Equal(t, result.Success, got)
	assert.Equal(t, stats.Gpu, sink.Snapshot()[0].Type)
}

func TestUsmCopyBandwidthDegradesToTime(t *testing.T) {
	r := newRegistry(t)
	decl := mustDecl(t, r, "UsmCopy")
	impl, _ := decl.Implementation(api.L0)
	sink := stats.New(iterations, stats.WithoutBandwidth(true))
	env := testcase.Env{Api: api.L0, Iterations: iterations, DoNotPrintBandwidth: true}
	require.Equal(t, result.Success, impl.Run(context.Background(), env, usmCopyConfig(4<<10, false), sink))
	assert.Equal(t, stats.Microseconds, sink.Snapshot()[0].Unit)
}

func TestDeviceCapabilities(t *testing.T) {
	noExtensions := device.DefaultCapabilities()
	noExtensions.VendorExtensions = false
	noTimestamps := device.DefaultCapabilities()
	noTimestamps.Timestamps = false
	noCopyQueue := device.DefaultCapabilities()
	noCopyQueue.CopyQueue = false

	tests := []struct {
		name string
		caps device.Capabilities
		test string
		api  api.Api
		args testcase.Arguments
		env  testcase.Env
		want result.Result
	}{
		{"usm in opencl needs extensions", noExtensions, "UsmCopy", api.OpenCL, usmCopyConfig(4<<10, false), testcase.Env{}, result.DeviceNotCapable},
		{"usm in level zero does not", noExtensions, "UsmCopy", api.L0, usmCopyConfig(4<<10, false), testcase.Env{}, result.Success},
		{"event profiling needs timestamps", noTimestamps, "UsmCopy", api.L0, usmCopyConfig(4<<10, true), testcase.Env{}, result.DeviceNotCapable},
		{"atomics are timed on the device", noTimestamps, "SeparateAtomics", api.L0, separateAtomicsConfig(4, 2, 8), testcase.Env{}, result.DeviceNotCapable},
		{"copy queue missing", noCopyQueue, "KernelAndCopy", api.L0, kernelAndCopyConfig(true, 4<<10, 2), testcase.Env{}, result.DeviceNotCapable},
		{"copy queue without extensions", device.DefaultCapabilities(), "KernelAndCopy", api.OpenCL, kernelAndCopyConfig(true, 4<<10, 2), testcase.Env{NoIntelExtensions: true}, result.DeviceNotCapable},
		{"compute queue copy without extensions", device.DefaultCapabilities(), "KernelAndCopy", api.OpenCL, kernelAndCopyConfig(false, 4<<10, 2), testcase.Env{NoIntelExtensions: true}, result.Success},
		{"missing tile", device.DefaultCapabilities(), "SubmitKernel", api.L0, submitKernelConfig(1, 1, 0, false, false), testcase.Env{SubDeviceSelection: "5"}, result.DeviceNotCapable},
		{"tile", device.DefaultCapabilities(), "SubmitKernel", api.L0, submitKernelConfig(1, 1, 0, false, false), testcase.Env{SubDeviceSelection: "1"}, result.Success},
		{"workgroup too large", device.DefaultCapabilities(), "SubmitKernel", api.L0, submitKernelConfig(1, 4096, 0, false, false), testcase.Env{}, result.DeviceNotCapable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t, device.WithCapabilities(tt.caps))
			got, sink := run(t, r, tt.test, tt.api, tt.args, tt.env)
			assert.Equal(t, tt.want, got)
			if got != result.Success {
				assert.True(t, sink.IsEmpty(), "skipped runs push nothing")
			}
		})
	}
}

func TestSeparateAtomicsVerifiesSum(t *testing.T) {
	r := newRegistry(t)
	got, sink := run(t, r, "SeparateAtomics", api.OpenCL, separateAtomicsConfig(4, 2, 8), testcase.Env{})
	require.Equal(t, result.Success, got)
	assert.Equal(t, stats.Gpu, sink.Snapshot()[0].Type)

	dev := device.New()
	defer dev.Free()
	buf, err := dev.Allocate(16)
	require.NoError(t, err)
	buf.AtomicAdd(0, 3)
	buf.AtomicAdd(3, 2)
	assert.NoError(t, verifyAtomics(buf, 4, 5))
	assert.ErrorIs(t, verifyAtomics(buf, 4, 6), result.ErrVerification)
}

func TestSeparateAtomicsFailsVerificationBeforeTiming(t *testing.T) {
	tests := []struct {
		name   string
		kernel device.Kernel
		want   result.Result
	}{
		{"lost additions", func(device.WorkItem) {}, result.VerificationFail},
		{"double additions", func(w device.WorkItem) {
			w.Buffer.AtomicAdd(0, 2)
		}, result.VerificationFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := device.New(device.WithWorkers(2))
			t.Cleanup(dev.Free)
			dev.RegisterKernel(device.KernelAtomicAdd, tt.kernel)
			r := testcase.NewRegistry(api.L0, api.OpenCL)
			Register(r, dev)

			got, sink := run(t, r, "SeparateAtomics", api.L0, separateAtomicsConfig(4, 2, 8), testcase.Env{})
			assert.Equal(t, tt.want, got)
			assert.True(t, sink.IsEmpty(), "nothing is timed after a failed check")
		})
	}
}

func TestMultithreadSubmit(t *testing.T) {
	r := newRegistry(t)
	got, sink := run(t, r, "MultithreadSubmit", api.L0, multithreadSubmitConfig(4, 5), testcase.Env{})
	require.Equal(t, result.Success, got)
	assert.Equal(t, iterations, sink.Count())
	assert.True(t, sink.IsFull())
}

func TestKernelAndCopy(t *testing.T) {
	r := newRegistry(t)
	for _, copyQueue := range []bool{false, true} {
		got, sink := run(t, r, "KernelAndCopy", api.L0, kernelAndCopyConfig(copyQueue, 64<<10, 4), testcase.Env{})
		require.Equal(t, result.Success, got)
		assert.True(t, sink.IsFull())
	}
}

func TestNoopPushesMarkerOnly(t *testing.T) {
	r := newRegistry(t)
	tests := []struct {
		test string
		args testcase.Arguments
		unit stats.Unit
		typ  stats.Type
	}{
		{"SubmitKernel", submitKernelConfig(1, 1, 0, false, true), stats.Microseconds, stats.Cpu},
		{"UsmCopy", usmCopyConfig(1<<20, true), stats.GigabytesPerSecond, stats.Gpu},
		{"SeparateAtomics", separateAtomicsConfig(1, 1, 1), stats.Microseconds, stats.Gpu},
		{"MultithreadSubmit", multithreadSubmitConfig(2, 1), stats.Microseconds, stats.Cpu},
		{"KernelAndCopy", kernelAndCopyConfig(true, 1<<20, 1), stats.Microseconds, stats.Cpu},
	}
	for _, tt := range tests {
		t.Run(tt.test, func(t *testing.T) {
			got, sink := run(t, r, tt.test, api.OpenCL, tt.args, testcase.Env{Noop: true})
			require.Equal(t, result.Nooped, got)
			unit, typ, ok := sink.Noop()
			require.True(t, ok)
			assert.Equal(t, tt.unit, unit)
			assert.Equal(t, tt.typ, typ)
			assert.Zero(t, sink.Count())
		})
	}
}
