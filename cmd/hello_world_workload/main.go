// hello_world_workload writes each element's index on the device and checks
// it on the host. It runs standalone or under a benchmark parent.
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
		Use:                "hello_world_workload [--numberOfElements=N] [--useEvents=0|1] [--iterations=N]",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code = workload.Main(cmd.Context(), args, multiprocess.NewHelloWorldArguments(), multiprocess.HelloWorld(dev))
			return nil
		},
	}
	if err := root.ExecuteContext(context.Background()); err != nil {
		code = 1
	}
	dev.Free()
	os.Exit(code)
}
