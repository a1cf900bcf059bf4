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

type UsmCopyArguments struct {
	testcase.Base
	Size      *argument.ByteSize
	UseEvents *argument.Boolean
}

func NewUsmCopyArguments() *UsmCopyArguments {
	a := &UsmCopyArguments{}
	a.Size = argument.NewByteSize(&a.Container, "size", "Size of the copied buffer")
	a.UseEvents = argument.NewBoolean(&a.Container, "useEvents", "Measure with event profiling instead of host timer")
	return a
}

func usmCopyConfig(size uint64, useEvents bool) *UsmCopyArguments {
	a := NewUsmCopyArguments()
	a.Size.Assign(size)
	a.UseEvents.Assign(useEvents)
	return a
}

func (b *bench) usmCopy() testcase.Declaration {
	return testcase.Declare("UsmCopy", "measures bandwidth of copying between two unified shared memory allocations.", NewUsmCopyArguments).
		WithMatrix(func() []*UsmCopyArguments {
			var configs []*UsmCopyArguments
			for _, size := range []uint64{64 << 10, 1 << 20, 16 << 20} {
				configs = append(configs, usmCopyConfig(size, false), usmCopyConfig(size, true))
			}
			return configs
		}).
		Implement(api.L0, b.runUsmCopy).
		// unified shared memory is a vendor extension in OpenCL
		ImplementWithExtensions(api.OpenCL, func(ctx context.Context, env testcase.Env, args *UsmCopyArguments, sink stats.Sink) result.Result {
			if !env.Noop {
				if err := requireExtensions(b.dev); err != nil {
					return result.FromError(err)
				}
			}
			return b.runUsmCopy(ctx, env, args, sink)
		})
}

func (b *bench) runUsmCopy(ctx context.Context, env testcase.Env, args *UsmCopyArguments, sink stats.Sink) result.Result {
	typ := stats.Cpu
	if args.UseEvents.Value() {
		typ = stats.Gpu
	}
	if env.SkipIfNoop(sink, stats.GigabytesPerSecond, typ) {
		return result.Nooped
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

	q, err := dev.NewQueue(device.QueueCompute, immediate(env.Api))
	if err != nil {
		return result.FromError(err)
	}
	if ev, err := q.Fill(ctx, src, 0xAB); err != nil {
		return result.FromError(err)
	} else if err := ev.Wait(); err != nil {
		return result.FromError(err)
	}

	// warmup
	if ev, err := q.Copy(ctx, dst, src, size); err != nil {
		return result.FromError(err)
	} else if err := ev.Wait(); err != nil {
		return result.FromError(err)
	}

	tm := timer.NewMarked(ctx, "UsmCopy", env.MarkTimers)
	for i := 0; i < env.Iterations; i++ {
		tm.Start()
		ev, err := q.Copy(ctx, dst, src, size)
		if err != nil {
			return result.FromError(err)
		}
		if err := ev.Wait(); err != nil {
			return result.FromError(err)
		}
		tm.End()

		elapsed := tm.Get()
		if args.UseEvents.Value() {
			if elapsed, err = ev.ProfilingDuration(); err != nil {
				return result.FromError(err)
			}
		}
		sink.PushBandwidth(elapsed, size, stats.GigabytesPerSecond, typ, "")
	}

	if dst.Bytes()[size-1] != 0xAB {
		return result.VerificationFail
	}
	return result.Success
}
