// Package multiprocess holds the test cases of multiprocess_benchmark and
// the worker bodies they spawn.
package multiprocess

import (
	"context"
	"fmt"
	"strconv"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/process"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// AffinityMaskEnv restricts a worker to one tile of the device.
const AffinityMaskEnv = "ZE_AFFINITY_MASK"

// WorkloadName is the binary spawned by MultiProcessCompute.
const WorkloadName = "single_queue_workload"

// workgroupSize of the spawned kernels.
const workgroupSize = 64

const maxTiles = 8

// Register declares every test case of the benchmark. workload is the path
// of the single_queue_workload binary.
func Register(r *testcase.Registry, dev *device.Device, workload string) {
	b := &bench{dev: dev, workload: workload}
	r.Register(b.multiProcessCompute())
}

type bench struct {
	dev      *device.Device
	workload string
}

type MultiProcessComputeArguments struct {
	testcase.Base
	Tiles                *argument.Bitmask
	ProcessesPerTile     *argument.Integer
	WorkgroupsPerProcess *argument.Integer
	Synchronize          *argument.Boolean
	OpsPerKernel         *argument.Integer
}

func NewMultiProcessComputeArguments() *MultiProcessComputeArguments {
	a := &MultiProcessComputeArguments{}
	c := &a.Container
	a.Tiles = argument.NewBitmask(c, "tiles", "Tiles for execution, lowest bit is tile 0", maxTiles, false)
	a.ProcessesPerTile = argument.NewPositiveInteger(c, "processesPerTile", "Number of processes that will be started on each of the tiles specified")
	a.WorkgroupsPerProcess = argument.NewPositiveInteger(c, "workgroupsPerProcess", "Number of workgroups that each process will start")
	a.Synchronize = argument.NewBoolean(c, "synchronize", "Synchronize all processes before each iteration")
	a.OpsPerKernel = argument.NewPositiveInteger(c, "opsPerKernel", "Operations performed in kernel, used to steer its execution time")
	return a
}

func multiProcessComputeConfig(tiles uint64, perTile, workgroups int64, synchronize bool, ops int64) *MultiProcessComputeArguments {
	a := NewMultiProcessComputeArguments()
	a.Tiles.Assign(tiles)
	a.ProcessesPerTile.Assign(perTile)
	a.WorkgroupsPerProcess.Assign(workgroups)
	a.Synchronize.Assign(synchronize)
	a.OpsPerKernel.Assign(ops)
	return a
}

func (b *bench) multiProcessCompute() testcase.Declaration {
	return testcase.Declare("MultiProcessCompute", "creates a number of separate processes for each tile specified performing a compute workload and measures average time to complete all of them. Processes use an affinity mask to select their tile.", NewMultiProcessComputeArguments).
		WithMatrix(func() []*MultiProcessComputeArguments {
			var configs []*MultiProcessComputeArguments
			for _, tiles := range []uint64{0b01, 0b11} {
				for _, perTile := range []int64{1, 4} {
					for _, synchronize := range []bool{false, true} {
						configs = append(configs, multiProcessComputeConfig(tiles, perTile, 64, synchronize, 100))
					}
				}
			}
			return configs
		}).
		Implement(api.L0, b.runMultiProcessCompute)
}

// ProcessName labels the samples of worker i.
func ProcessName(i, tile int) string {
	return fmt.Sprintf("p:%d|tile:%d", i, tile)
}

func (b *bench) runMultiProcessCompute(ctx context.Context, env testcase.Env, args *MultiProcessComputeArguments, sink stats.Sink) result.Result {
	if env.SkipIfNoop(sink, stats.Microseconds, stats.Cpu) {
		return result.Nooped
	}

	tiles := args.Tiles.EnabledBits()
	for _, tile := range tiles {
		if tile >= b.dev.Capabilities().SubDevices {
			return result.DeviceNotCapable
		}
	}
	perTile := args.ProcessesPerTile.Int()

	g := process.NewGroup(b.workload, len(tiles)*perTile)
	g.AddArgumentAll("iterations", strconv.Itoa(env.Iterations))
	g.AddArgumentAll("synchronize", args.Synchronize.String())
	g.AddArgumentAll("operationsCount", strconv.FormatInt(args.OpsPerKernel.Value(), 10))
	g.AddArgumentAll("wgc", strconv.FormatInt(args.WorkgroupsPerProcess.Value(), 10))
	g.AddArgumentAll("wgs", strconv.Itoa(workgroupSize))
	for i, p := range g.Processes() {
		tile := tiles[i/perTile]
		p.AddEnvVariable(AffinityMaskEnv, strconv.Itoa(tile))
		p.SetName(ProcessName(i, tile))
	}

	if err := g.RunAll(); err != nil {
		logger.Log.Error("Starting workers failed", "workload", b.workload, "error", err)
		g.Abort()
		g.WaitAll()
		return result.Error
	}
	if args.Synchronize.Value() {
		if err := g.SynchronizeAll(env.Iterations); err != nil {
			logger.Log.Error("Synchronizing workers failed", "error", err)
			g.Abort()
		}
	}
	g.WaitAll()
	if r := g.Result(); r != result.Success {
		return r
	}

	individual := g.Len() > 1
	g.PushMeasurements(sink, env.Iterations, stats.Microseconds, stats.Cpu, individual, true)
	return result.Success
}
