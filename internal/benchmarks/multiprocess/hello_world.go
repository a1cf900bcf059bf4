package multiprocess

import (
	"context"
	"fmt"

	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/timer"
	"github.com/23skdu/longbow-bench/internal/workload"
)

type HelloWorldArguments struct {
	workload.Arguments
	NumberOfElements *argument.Integer
	UseEvents        *argument.Boolean
}

func NewHelloWorldArguments() *HelloWorldArguments {
	a := &HelloWorldArguments{}
	a.Init()
	c := &a.Container
	a.NumberOfElements = argument.NewPositiveInteger(c, "numberOfElements", "Number of elements written by the kernel").Assign(256)
	a.UseEvents = argument.NewBoolean(c, "useEvents", "Measure with event profiling instead of host timer").Assign(false)
	return a
}

// HelloWorld writes every element's index with one kernel and checks the
// result on the host. Its arguments all have defaults, so it runs without
// a parent.
func HelloWorld(dev *device.Device) workload.Body[*HelloWorldArguments] {
	return func(ctx context.Context, args *HelloWorldArguments, sink stats.Sink, sync *workload.Synchronization, w *workload.Io) result.Result {
		n := args.NumberOfElements.Int()
		buf, err := dev.Allocate(uint64(n) * 4)
		if err != nil {
			return result.FromError(err)
		}
		defer dev.Release(buf)
		q, err := dev.NewQueue(device.QueueCompute, false)
		if err != nil {
			return result.FromError(err)
		}
		launch := device.Launch{Kernel: device.KernelWriteID, WorkgroupCount: n, WorkgroupSize: 1, Buffer: buf}

		tm := timer.New()
		for i := 0; i < args.Iterations.Int(); i++ {
			clear(buf.Bytes())
			if err := sync.Synchronize(w); err != nil {
				return result.Error
			}
			tm.Start()
			ev, err := q.Submit(ctx, launch)
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
			sink.PushValue(elapsed, stats.UnitUnknown, stats.TypeUnknown, "")
		}

		for i := 0; i < n; i++ {
			if got := buf.Load(i); got != uint32(i) {
				w.WriteToConsole("Element %d is %d\n", i, got)
				return result.FromError(fmt.Errorf("element %d: %w", i, result.ErrVerification))
			}
		}
		w.WriteToConsole("Hello world: %d elements verified\n", n)
		return result.Success
	}
}
