// Package workload is the child side of a multi-process benchmark: a small
// binary that parses its arguments, runs one body, and reports samples over
// the measurement pipe and its result as the exit code.
package workload

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/23skdu/longbow-bench/internal/argument"
	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/process"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// DefaultIterations is used when a worker is started by hand without
// --iterations.
const DefaultIterations = 10

// Arguments are shared by every worker. Worker argument structs embed it
// and call Init before declaring their own arguments.
type Arguments struct {
	testcase.Base

	Iterations             *argument.Integer
	Synchronize            *argument.Boolean
	SynchronizationPipeIn  *argument.Integer
	SynchronizationPipeOut *argument.Integer
	MeasurementPipe        *argument.Integer
}

func (a *Arguments) Init() {
	c := &a.Container
	a.Iterations = argument.NewPositiveInteger(c, "iterations", "Number of iterations").Assign(DefaultIterations)
	a.Synchronize = argument.NewBoolean(c, "synchronize", "Synchronize with the parent before each iteration").Assign(false)
	a.SynchronizationPipeIn = argument.NewNonNegativeInteger(c, process.ArgSynchronizationPipeIn, "Handle of the pipe releasing this worker, 0 for stdin").Assign(0)
	a.SynchronizationPipeOut = argument.NewNonNegativeInteger(c, process.ArgSynchronizationPipeOut, "Handle of the pipe signalling the parent, 0 for stdout").Assign(0)
	a.MeasurementPipe = argument.NewNonNegativeInteger(c, process.ArgMeasurementPipe, "Handle of the pipe receiving measurements, 0 for stdout").Assign(0)
}

func (a *Arguments) common() *Arguments { return a }

// Args is implemented by pointers to structs embedding Arguments.
type Args interface {
	testcase.Arguments
	common() *Arguments
}

// Body runs the workload. It pushes one unlabelled sample per iteration
// with unknown unit and type, and calls sync.Synchronize at the start of
// each timed iteration.
type Body[T Args] func(ctx context.Context, args T, sink stats.Sink, sync *Synchronization, w *Io) result.Result

// Main parses argv (without the program name) and runs body. The return
// value is the process exit code.
func Main[T Args](ctx context.Context, argv []string, args T, body Body[T]) int {
	cl, err := argument.ParseCommandLine(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	container := args.ArgumentContainer()
	if err := container.Parse(cl); err != nil {
		fmt.Fprintln(os.Stderr, "Error parsing command line:", err)
		return 1
	}

	invalid := false
	if unparsed := container.Unparsed(); len(unparsed) > 0 {
		keys := make([]string, len(unparsed))
		for i, a := range unparsed {
			keys[i] = a.Key()
		}
		fmt.Fprintln(os.Stderr, "Following arguments were not set:", strings.Join(keys, ", "))
		invalid = true
	}
	if ignored := cl.UnprocessedKeys(); len(ignored) > 0 {
		fmt.Fprintln(os.Stderr, "Following command line arguments were ignored:", strings.Join(ignored, ", "))
		invalid = true
	}
	if invalid {
		return result.InvalidArgs.ExitCode()
	}
	return Run(ctx, args, body)
}

// Run executes body against already parsed arguments.
func Run[T Args](ctx context.Context, args T, body Body[T]) int {
	common := args.common()
	iterations := common.Iterations.Int()
	w := NewIo(uint64(common.SynchronizationPipeIn.Value()), uint64(common.SynchronizationPipeOut.Value()), uint64(common.MeasurementPipe.Value()))
	defer w.Close()
	return run(ctx, args, body, iterations, common.Synchronize.Value(), w)
}

// RunIo is Run over already opened streams.
func RunIo[T Args](ctx context.Context, args T, body Body[T], w *Io) int {
	common := args.common()
	return run(ctx, args, body, common.Iterations.Int(), common.Synchronize.Value(), w)
}

func run[T Args](ctx context.Context, args T, body Body[T], iterations int, synchronize bool, w *Io) int {
	sink := stats.NewWire(iterations)
	sync := NewSynchronization(iterations, synchronize)

	r := runBody(ctx, args, body, sink, sync, w)
	if r == result.Success {
		if !sink.IsFull() {
			logger.Log.DeveloperWarning("test did not generate as many values as expected", "expected", iterations, "got", len(sink.Values()))
			metrics.RecordDeveloperWarning()
		}
		if !sync.Validate() {
			logger.Log.DeveloperWarning("test did not synchronize the correct amount of times", "expected", iterations)
			metrics.RecordDeveloperWarning()
		}
		if err := w.WriteMeasurements(stats.EncodeMeasurements(sink.Values())); err != nil {
			logger.Log.Error("Writing measurements failed", "error", err)
			return result.Error.ExitCode()
		}
	} else if err := sync.ExecuteRemaining(w); err != nil {
		logger.Log.Error("Executing remaining synchronizations failed", "error", err)
	}
	return r.ExitCode()
}

func runBody[T Args](ctx context.Context, args T, body Body[T], sink stats.Sink, sync *Synchronization, w *Io) result.Result {
	if body == nil {
		return result.NoImplementation
	}
	if !args.ArgumentContainer().Validate() {
		return result.InvalidArgs
	}
	return body(ctx, args, sink, sync, w)
}
