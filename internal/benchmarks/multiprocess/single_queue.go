package multiprocess

import (
	"context"
	"os"

	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/timer"
	"github.com/23skdu/longbow-bench/internal/workload"
)

type SingleQueueArguments struct {
	workload.Arguments
	OperationsCount *argument.Integer
	WorkgroupCount  *argument.Integer
	WorkgroupSize   *argument.Integer
}

func NewSingleQueueArguments() *SingleQueueArguments {
	a := &SingleQueueArguments{}
	a.Init()
	c := &a.Container
	a.OperationsCount = argument.NewPositiveInteger(c, "operationsCount", "Number of redundant operations performed in kernel to make it take longer")
	a.WorkgroupCount = argument.NewPositiveInteger(c, "wgc", "Number of workgroups enqueued")
	a.WorkgroupSize = argument.NewPositiveInteger(c, "wgs", "Size of workgroups enqueued")
	return a
}

// SingleQueue returns the body of single_queue_workload: one kernel on one
// tile, resubmitted and waited for every iteration. The tile is taken from
// ZE_AFFINITY_MASK; a device with more than one tile is refused otherwise.
func SingleQueue(dev *device.Device) workload.Body[*SingleQueueArguments] {
	return func(ctx context.Context, args *SingleQueueArguments, sink stats.Sink, sync *workload.Synchronization, w *workload.Io) result.Result {
		tile := dev
		if mask, ok := os.LookupEnv(AffinityMaskEnv); ok {
			sub, err := dev.Select(mask)
			if err != nil {
				w.WriteToConsole("Invalid affinity mask %q: %v\n", mask, err)
				return result.FromError(err)
			}
			tile = sub
		} else if dev.Capabilities().SubDevices > 1 {
			w.WriteToConsole("This workload should run on a single tile\n")
			return result.DeviceNotCapable
		}

		threads := args.WorkgroupCount.Value() * args.WorkgroupSize.Value()
		buf, err := tile.Allocate(uint64(threads) * 4)
		if err != nil {
			return result.FromError(err)
		}
		defer tile.Release(buf)
		q, err := tile.NewQueue(device.QueueCompute, false)
		if err != nil {
			return result.FromError(err)
		}
		launch := device.Launch{
			Kernel:         device.KernelEatTime,
			WorkgroupCount: args.WorkgroupCount.Int(),
			WorkgroupSize:  args.WorkgroupSize.Int(),
			Buffer:         buf,
			Args:           []uint64{uint64(args.OperationsCount.Value())},
		}

		// warmup
		if _, err := q.Submit(ctx, launch); err != nil {
			return result.FromError(err)
		}
		if err := q.Finish(); err != nil {
			return result.FromError(err)
		}

		tm := timer.New()
		for i := 0; i < args.Iterations.Int(); i++ {
			if err := sync.Synchronize(w); err != nil {
				return result.Error
			}
			tm.Start()
			if _, err := q.Submit(ctx, launch); err != nil {
				return result.FromError(err)
			}
			if err := q.Finish(); err != nil {
				return result.FromError(err)
			}
			tm.End()
			sink.PushValue(tm.Get(), stats.UnitUnknown, stats.TypeUnknown, "")
		}
		return result.Success
	}
}
