package apioverhead

import (
	"context"
	"time"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/multithread"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

type MultithreadSubmitArguments struct {
	testcase.Base
	Threads          *argument.Integer
	KernelsPerThread *argument.Integer
}

func NewMultithreadSubmitArguments() *MultithreadSubmitArguments {
	a := &MultithreadSubmitArguments{}
	a.Threads = argument.NewPositiveInteger(&a.Container, "threads", "Number of host threads submitting at once")
	a.KernelsPerThread = argument.NewPositiveInteger(&a.Container, "kernelsPerThread", "Empty kernels each thread submits per iteration")
	return a
}

func multithreadSubmitConfig(threads, kernels int64) *MultithreadSubmitArguments {
	a := NewMultithreadSubmitArguments()
	a.Threads.Assign(threads)
	a.KernelsPerThread.Assign(kernels)
	return a
}

func (b *bench) multithreadSubmit() testcase.Declaration {
	return testcase.Declare("MultithreadSubmit", "measures average time of threads concurrently submitting empty kernels to their own queues.", NewMultithreadSubmitArguments).
		WithMatrix(func() []*MultithreadSubmitArguments {
			return []*MultithreadSubmitArguments{
				multithreadSubmitConfig(1, 10),
				multithreadSubmitConfig(4, 10),
				multithreadSubmitConfig(8, 100),
			}
		}).
		Implement(api.L0, b.runMultithreadSubmit).
		Implement(api.OpenCL, b.runMultithreadSubmit)
}

func (b *bench) runMultithreadSubmit(ctx context.Context, env testcase.Env, args *MultithreadSubmitArguments, sink stats.Sink) result.Result {
	if env.SkipIfNoop(sink, stats.Microseconds, stats.Cpu) {
		return result.Nooped
	}
	dev, err := b.device(env)
	if err != nil {
		return result.FromError(err)
	}
	launch := device.Launch{Kernel: device.KernelEmpty, WorkgroupCount: 1, WorkgroupSize: 1}
	kernels := args.KernelsPerThread.Int()

	durations, err := multithread.Run(ctx, args.Threads.Int(), env.Iterations, 1, func(ctx context.Context, t *multithread.Thread) error {
		q, err := dev.NewQueue(device.QueueCompute, immediate(env.Api))
		if err != nil {
			return err
		}
		t.Wait()
		t.Timer.Start()
		for i := 0; i < kernels; i++ {
			if _, err := q.Submit(ctx, launch); err != nil {
				return err
			}
		}
		err = q.Finish()
		t.Timer.End()
		return err
	})
	if err != nil {
		return result.FromError(err)
	}
	for _, d := range durations {
		sink.PushValue(d/time.Duration(kernels), stats.Microseconds, stats.Cpu, "")
	}
	return result.Success
}
