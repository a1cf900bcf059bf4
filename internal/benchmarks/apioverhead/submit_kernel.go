package apioverhead

import (
	"context"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/cpucounter"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
	"github.com/23skdu/longbow-bench/internal/timer"
)

const (
	labelTime         = "time"
	labelInstructions = "hw instructions"
)

type SubmitKernelArguments struct {
	testcase.Base
	WorkgroupCount    *argument.Integer
	WorkgroupSize     *argument.Integer
	KernelOperations  *argument.Integer
	MeasureCompletion *argument.Boolean
	HwCounters        *argument.Boolean
}

func NewSubmitKernelArguments() *SubmitKernelArguments {
	a := &SubmitKernelArguments{}
	c := &a.Container
	a.WorkgroupCount = argument.NewPositiveInteger(c, "wgc", "Workgroup count")
	a.WorkgroupSize = argument.NewPositiveInteger(c, "wgs", "Workgroup size")
	a.KernelOperations = argument.NewNonNegativeInteger(c, "kernelOperations", "Operations performed by each work item, steers kernel execution time")
	a.MeasureCompletion = argument.NewBoolean(c, "measureCompletion", "Measure until the kernel completes instead of until submission returns")
	a.HwCounters = argument.NewBoolean(c, "hwCounters", "Also count retired CPU instructions of the submission")
	return a
}

func submitKernelConfig(wgc, wgs, ops int64, completion, counters bool) *SubmitKernelArguments {
	a := NewSubmitKernelArguments()
	a.WorkgroupCount.Assign(wgc)
	a.WorkgroupSize.Assign(wgs)
	a.KernelOperations.Assign(ops)
	a.MeasureCompletion.Assign(completion)
	a.HwCounters.Assign(counters)
	return a
}

func (b *bench) submitKernel() testcase.Declaration {
	return testcase.Declare("SubmitKernel", "measures time spent in submitting a kernel to the device on the host side.", NewSubmitKernelArguments).
		WithMatrix(func() []*SubmitKernelArguments {
			var configs []*SubmitKernelArguments
			for _, completion := range []bool{false, true} {
				for _, counters := range []bool{false, true} {
					configs = append(configs,
						submitKernelConfig(1, 1, 0, completion, counters),
						submitKernelConfig(64, 256, 10, completion, counters))
				}
			}
			return configs
		}).
		Implement(api.L0, b.runSubmitKernel).
		Implement(api.OpenCL, b.runSubmitKernel)
}

func (b *bench) runSubmitKernel(ctx context.Context, env testcase.Env, args *SubmitKernelArguments, sink stats.Sink) result.Result {
	if env.SkipIfNoop(sink, stats.Microseconds, stats.Cpu) {
		return result.Nooped
	}
	dev, err := b.device(env)
	if err != nil {
		return result.FromError(err)
	}
	q, err := dev.NewQueue(device.QueueCompute, immediate(env.Api))
	if err != nil {
		return result.FromError(err)
	}

	var counter *cpucounter.Counter
	if args.HwCounters.Value() {
		if counter, err = cpucounter.Open(); err != nil {
			return result.FromError(err)
		}
		defer counter.Close()
	}

	launch := device.Launch{
		Kernel:         device.KernelEatTime,
		WorkgroupCount: args.WorkgroupCount.Int(),
		WorkgroupSize:  args.WorkgroupSize.Int(),
		Args:           []uint64{uint64(args.KernelOperations.Value())},
	}

	// warmup
	ev, err := q.Submit(ctx, launch)
	if err != nil {
		return result.FromError(err)
	}
	if err := ev.Wait(); err != nil {
		return result.FromError(err)
	}

	tm := timer.NewMarked(ctx, "SubmitKernel", env.MarkTimers)
	for i := 0; i < env.Iterations; i++ {
		if counter != nil {
			if err := counter.Start(); err != nil {
				return result.FromError(err)
			}
		}
		tm.Start()
		ev, err := q.Submit(ctx, launch)
		if err != nil {
			return result.FromError(err)
		}
		if args.MeasureCompletion.Value() {
			if err := ev.Wait(); err != nil {
				return result.FromError(err)
			}
		}
		tm.End()

		var instructions uint64
		if counter != nil {
			if instructions, err = counter.Stop(); err != nil {
				return result.FromError(err)
			}
		}
		if err := q.Finish(); err != nil {
			return result.FromError(err)
		}

		sink.PushValue(tm.Get(), stats.Microseconds, stats.Cpu, labelTime)
		if counter != nil {
			sink.PushCpuCounter(instructions, stats.CpuHardwareCounter, stats.Cpu, labelInstructions)
		}
	}
	return result.Success
}
