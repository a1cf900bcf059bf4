package apioverhead

import (
	"context"
	"fmt"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

type SeparateAtomicsArguments struct {
	testcase.Base
	AtomicsPerCacheline *argument.Integer
	WorkgroupCount      *argument.Integer
	WorkgroupSize       *argument.Integer
}

func NewSeparateAtomicsArguments() *SeparateAtomicsArguments {
	a := &SeparateAtomicsArguments{}
	c := &a.Container
	a.AtomicsPerCacheline = argument.NewPositiveInteger(c, "atomicsPerCacheline", "Number of separate atomic slots sharing the work items")
	a.WorkgroupCount = argument.NewPositiveInteger(c, "wgc", "Workgroup count")
	a.WorkgroupSize = argument.NewPositiveInteger(c, "wgs", "Workgroup size")
	// every slot has to be hit by at least one work item
	c.Extra = func() bool {
		return a.AtomicsPerCacheline.Value() <= a.WorkgroupCount.Value()*a.WorkgroupSize.Value()
	}
	return a
}

func separateAtomicsConfig(perCacheline, wgc, wgs int64) *SeparateAtomicsArguments {
	a := NewSeparateAtomicsArguments()
	a.AtomicsPerCacheline.Assign(perCacheline)
	a.WorkgroupCount.Assign(wgc)
	a.WorkgroupSize.Assign(wgs)
	return a
}

func (b *bench) separateAtomics() testcase.Declaration {
	return testcase.Declare("SeparateAtomics", "measures kernel time of atomic additions spread over a number of separate slots.", NewSeparateAtomicsArguments).
		WithMatrix(func() []*SeparateAtomicsArguments {
			var configs []*SeparateAtomicsArguments
			for _, perCacheline := range []int64{1, 4, 16} {
				configs = append(configs, separateAtomicsConfig(perCacheline, 32, 64))
			}
			return configs
		}).
		Implement(api.L0, b.runSeparateAtomics).
		Implement(api.OpenCL, b.runSeparateAtomics)
}

func (b *bench) runSeparateAtomics(ctx context.Context, env testcase.Env, args *SeparateAtomicsArguments, sink stats.Sink) result.Result {
	if env.SkipIfNoop(sink, stats.Microseconds, stats.Gpu) {
		return result.Nooped
	}
	dev, err := b.device(env)
	if err != nil {
		return result.FromError(err)
	}
	slots := args.AtomicsPerCacheline.Value()
	buf, err := dev.Allocate(uint64(slots) * 4)
	if err != nil {
		return result.FromError(err)
	}
	defer dev.Release(buf)
	q, err := dev.NewQueue(device.QueueCompute, immediate(env.Api))
	if err != nil {
		return result.FromError(err)
	}

	launch := device.Launch{
		Kernel:         device.KernelAtomicAdd,
		WorkgroupCount: args.WorkgroupCount.Int(),
		WorkgroupSize:  args.WorkgroupSize.Int(),
		Buffer:         buf,
		Args:           []uint64{uint64(slots)},
	}
	perLaunch := uint64(launch.WorkgroupCount * launch.WorkgroupSize)

	// warmup, also checks the kernel adds once per work item
	ev, err := q.Submit(ctx, launch)
	if err != nil {
		return result.FromError(err)
	}
	if err := ev.Wait(); err != nil {
		return result.FromError(err)
	}
	if err := verifyAtomics(buf, int(slots), perLaunch); err != nil {
		return result.FromError(err)
	}

	for i := 0; i < env.Iterations; i++ {
		ev, err := q.Submit(ctx, launch)
		if err != nil {
			return result.FromError(err)
		}
		d, err := ev.ProfilingDuration()
		if err != nil {
			return result.FromError(err)
		}
		sink.PushValue(d, stats.Microseconds, stats.Gpu, "")
	}
	return result.Success
}

func verifyAtomics(buf *device.Buffer, slots int, expected uint64) error {
	var total uint64
	for i := 0; i < slots; i++ {
		total += uint64(buf.Load(i))
	}
	if total != expected {
		return fmt.Errorf("atomic sum %d, expected %d: %w", total, expected, result.ErrVerification)
	}
	return nil
}
