package apioverhead

import (
	"context"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
	"github.com/23skdu/longbow-bench/internal/timer"
)

type KernelAndCopyArguments struct {
	testcase.Base
	UseCopyQueue   *argument.Boolean
	Size           *argument.ByteSize
	WorkgroupCount *argument.Integer
}

func NewKernelAndCopyArguments() *KernelAndCopyArguments {
	a := &KernelAndCopyArguments{}
	c := &a.Container
	a.UseCopyQueue = argument.NewBoolean(c, "useCopyQueue", "Run the copy on a dedicated copy queue")
	a.Size = argument.NewByteSize(c, "size", "Size of the copied buffer")
	a.WorkgroupCount = argument.NewPositiveInteger(c, "wgc", "Workgroup count of the fill kernel")
	return a
}

func kernelAndCopyConfig(copyQueue bool, size uint64, wgc int64) *KernelAndCopyArguments {
	a := NewKernelAndCopyArguments()
	a.UseCopyQueue.Assign(copyQueue)
	a.Size.Assign(size)
	a.WorkgroupCount.Assign(wgc)
	return a
}

func (b *bench) kernelAndCopy() testcase.Declaration {
	return testcase.Declare("KernelAndCopy", "measures time of a kernel and a copy submitted together, optionally on separate queues.", NewKernelAndCopyArguments).
		WithMatrix(func() []*KernelAndCopyArguments {
			return []*KernelAndCopyArguments{
				kernelAndCopyConfig(false, 1<<20, 64),
				kernelAndCopyConfig(true, 1<<20, 64),
				kernelAndCopyConfig(true, 16<<20, 256),
			}
		}).
		Implement(api.L0, b.runKernelAndCopy).
		Implement(api.OpenCL, b.runKernelAndCopy)
}

func (b *bench) runKernelAndCopy(ctx context.Context, env testcase.Env, args *KernelAndCopyArguments, sink stats.Sink) result.Result {
	if env.SkipIfNoop(sink, stats.Microseconds, stats.Cpu) {
		return result.Nooped
	}
	// copy engines are only reachable through vendor extensions
	if env.NoIntelExtensions && args.UseCopyQueue.Value() {
		return result.DeviceNotCapable
	}
	dev, err := b.device(env)
	if err != nil {
		return result.FromError(err)
	}

	size := args.Size.Value()
	src, err := dev.Allocate(size)
	if err != nil {
		return result.FromError(err)
	}
	defer dev.Release(src)
	dst, err := dev.Allocate(size)
	if err != nil {
		return result.FromError(err)
	}
	defer dev.Release(dst)
	target, err := dev.Allocate(size)
	if err != nil {
		return result.FromError(err)
	}
	defer dev.Release(target)

	compute, err := dev.NewQueue(device.QueueCompute, false)
	if err != nil {
		return result.FromError(err)
	}
	copyQueue := compute
	if args.UseCopyQueue.Value() {
		if copyQueue, err = dev.NewQueue(device.QueueCopy, false); err != nil {
			return result.FromError(err)
		}
	}

	launch := device.Launch{
		Kernel:         device.KernelFill,
		WorkgroupCount: args.WorkgroupCount.Int(),
		WorkgroupSize:  64,
		Buffer:         target,
		Args:           []uint64{0x5A},
	}
	submit := func() error {
		if _, err := compute.Submit(ctx, launch); err != nil {
			return err
		}
		if _, err := copyQueue.Copy(ctx, dst, src, size); err != nil {
			return err
		}
		if err := compute.Finish(); err != nil {
			return err
		}
		return copyQueue.Finish()
	}

	// warmup
	if err := submit(); err != nil {
		return result.FromError(err)
	}

	tm := timer.NewMarked(ctx, "KernelAndCopy", env.MarkTimers)
	for i := 0; i < env.Iterations; i++ {
		tm.Start()
		err := submit()
		tm.End()
		if err != nil {
			return result.FromError(err)
		}
		sink.PushValue(tm.Get(), stats.Microseconds, stats.Cpu, "")
	}
	return result.Success
}
