package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/benchmarks/multiprocess"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/driver"
	"github.com/23skdu/longbow-bench/internal/process"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// set with -ldflags "-X main.version=..."
var version = ""

func main() {
	workload, err := process.Sibling(multiprocess.WorkloadName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	dev := device.New()
	registry := testcase.NewRegistry(api.L0)
	multiprocess.Register(registry, dev, workload)
	d := driver.New(driver.Info{
		Name:        "multiprocess_benchmark",
		Description: "Multiprocess Benchmark is a set of tests aimed at measuring how different workloads scale when run on many processes and tiles.",
		Filename:    "multiprocess_benchmark",
		Version:     version,
		HwInfo:      dev.PrintInfo,
	}, registry)

	code := 0
	root := &cobra.Command{
		Use:                "multiprocess_benchmark [--key=value ...]",
		Short:              "Measure compute workloads spread over processes and tiles",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code = d.Main(cmd.Context(), args)
			return nil
		},
	}
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}

	stop()
	dev.Free()
	os.Exit(code)
}
