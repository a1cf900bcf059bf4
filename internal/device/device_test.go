package device

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/result"
)

func TestAllocationTracking(t *testing.T) {
	d := New()
	before := AllocatedBytes()

	a, err := d.Allocate(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, before+1<<20, AllocatedBytes())
	assert.Equal(t, float64(AllocatedBytes()), testutil.ToFloat64(metrics.DeviceMemoryAllocated))

	a.Bytes()[0] = 7
	d.Release(a)
	d.Release(a)

	b, err := d.Allocate(1 << 20)
	require.NoError(t, err)
	assert.Same(t, a, b, "released buffer of the same size is reused")
	assert.Equal(t, byte(0), b.Bytes()[0], "reused buffer is zeroed")
	assert.Equal(t, before+1<<20, AllocatedBytes())

	d.Free()
	assert.Equal(t, before, AllocatedBytes())
}

func TestAllocateLimits(t *testing.T) {
	caps := DefaultCapabilities()
	caps.MaxAllocation = 1024
	d := New(WithCapabilities(caps))

	_, err := d.Allocate(0)
	assert.Error(t, err)

	_, err = d.Allocate(4096)
	assert.ErrorIs(t, err, ErrNotCapable)
	assert.Equal(t, result.DeviceNotCapable, result.FromError(err))
}

func TestSubmitRunsEveryWorkItem(t *testing.T) {
	d := New(WithWorkers(4))
	q, err := d.NewQueue(QueueCompute, false)
	require.NoError(t, err)

	buf, err := d.Allocate(64 * 4)
	require.NoError(t, err)
	defer d.Free()

	ev, err := q.Submit(context.Background(), Launch{Kernel: KernelWriteID, WorkgroupCount: 8, WorkgroupSize: 8, Buffer: buf})
	require.NoError(t, err)
	require.NoError(t, ev.Wait())
	assert.True(t, ev.Done())

	for i := 0; i < 64; i++ {
		assert.Equal(t, uint32(i), buf.Load(i))
	}

	elapsed, err := ev.ProfilingDuration()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int64(elapsed), int64(0))
}

func TestAtomicAddKernel(t *testing.T) {
	d := New()
	q, err := d.NewQueue(QueueCompute, true)
	require.NoError(t, err)

	buf, err := d.Allocate(16 * 4)
	require.NoError(t, err)
	defer d.Free()

	ev, err := q.Submit(context.Background(), Launch{Kernel: KernelAtomicAdd, WorkgroupCount: 4, WorkgroupSize: 32, Buffer: buf, Args: []uint64{4}})
	require.NoError(t, err)
	assert.True(t, ev.Done(), "immediate queue completes on submit")

	var total uint32
	for i := 0; i < 4; i++ {
		assert.Equal(t, uint32(32), buf.Load(i))
		total += buf.Load(i)
	}
	assert.Equal(t, uint32(128), total)
	assert.Equal(t, uint32(0), buf.Load(4))
}

func TestQueueIsInOrder(t *testing.T) {
	d := New()
	q, err := d.NewQueue(QueueCompute, false)
	require.NoError(t, err)

	src, _ := d.Allocate(256)
	dst, _ := d.Allocate(256)
	defer d.Free()

	_, err = q.Fill(context.Background(), src, 0xAB)
	require.NoError(t, err)
	_, err = q.Copy(context.Background(), dst, src, 256)
	require.NoError(t, err)
	require.NoError(t, q.Finish())

	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 256), dst.Bytes())
}

func TestSubmitErrors(t *testing.T) {
	caps := DefaultCapabilities()
	caps.CopyQueue = false
	caps.Timestamps = false
	caps.MaxWorkgroupSize = 64
	d := New(WithCapabilities(caps))

	_, err := d.NewQueue(QueueCopy, false)
	assert.ErrorIs(t, err, ErrNotCapable)

	q, err := d.NewQueue(QueueCompute, true)
	require.NoError(t, err)

	_, err = q.Submit(context.Background(), Launch{Kernel: "missing", WorkgroupCount: 1, WorkgroupSize: 1})
	assert.True(t, errors.Is(err, ErrKernelNotFound))
	assert.Equal(t, result.KernelNotFound, result.FromError(err))

	_, err = q.Submit(context.Background(), Launch{Kernel: KernelEmpty, WorkgroupCount: 0, WorkgroupSize: 1})
	assert.Error(t, err)

	_, err = q.Submit(context.Background(), Launch{Kernel: KernelEmpty, WorkgroupCount: 1, WorkgroupSize: 128})
	assert.ErrorIs(t, err, ErrNotCapable)

	ev, err := q.Submit(context.Background(), Launch{Kernel: KernelEmpty, WorkgroupCount: 1, WorkgroupSize: 1})
	require.NoError(t, err)
	_, err = ev.ProfilingDuration()
	assert.ErrorIs(t, err, ErrNotCapable)

	small, _ := d.Allocate(8)
	large, _ := d.Allocate(16)
	defer d.Free()
	_, err = q.Copy(context.Background(), small, large, 16)
	assert.Error(t, err)
}

func TestCanceledSubmit(t *testing.T) {
	d := New()
	q, err := d.NewQueue(QueueCompute, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev, err := q.Submit(ctx, Launch{Kernel: KernelEmpty, WorkgroupCount: 4, WorkgroupSize: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, ev.Wait(), context.Canceled)
}

func TestSubDevices(t *testing.T) {
	d := New(WithName("Emu"), WithWorkers(8))

	root, err := d.Select("")
	require.NoError(t, err)
	assert.Same(t, d, root)

	tile, err := d.Select("1")
	require.NoError(t, err)
	assert.Equal(t, "Emu (tile 1)", tile.Name())
	assert.Equal(t, 0, tile.Capabilities().SubDevices)

	_, err = tile.SubDevice(0)
	assert.ErrorIs(t, err, ErrNotCapable)
	_, err = d.Select("5")
	assert.ErrorIs(t, err, ErrNotCapable)
	_, err = d.Select("tile0")
	assert.Error(t, err)
}

func TestRegisterKernelAndInfo(t *testing.T) {
	d := New()
	hits := 0
	d.RegisterKernel("custom", func(WorkItem) { hits++ })

	q, err := d.NewQueue(QueueCompute, true)
	require.NoError(t, err)
	_, err = q.Submit(context.Background(), Launch{Kernel: "custom", WorkgroupCount: 1, WorkgroupSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, hits)

	var buf bytes.Buffer
	d.PrintInfo(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "Device: Emulated Compute Device\n"))
	assert.Contains(t, buf.String(), "custom")
	assert.Contains(t, d.Kernels(), KernelEatTime)
}
