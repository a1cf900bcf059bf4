// single_queue_workload is spawned by multiprocess_benchmark. It runs one
// kernel on the tile named by ZE_AFFINITY_MASK and reports its timings over
// the measurement pipe.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-bench/internal/benchmarks/multiprocess"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/workload"
)

func main() {
	dev := device.New()
	code := 1
	root := &cobra.Command{
		Use:                "single_queue_workload --operationsCount=N --wgc=N --wgs=N [--iterations=N]",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code = workload.Main(cmd.Context(), args, multiprocess.NewSingleQueueArguments(), multiprocess.SingleQueue(dev))
			return nil
		},
	}
	if err := root.ExecuteContext(context.Background()); err != nil {
		code = 1
	}
	dev.Free()
	os.Exit(code)
}
