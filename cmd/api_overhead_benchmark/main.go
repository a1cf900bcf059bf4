package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/benchmarks/apioverhead"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/driver"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// set with -ldflags "-X main.version=..."
var version = ""

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	dev := device.New()
	registry := testcase.NewRegistry(api.L0, api.OpenCL)
	apioverhead.Register(registry, dev)
	d := driver.New(driver.Info{
		Name:        "api_overhead_benchmark",
		Description: "Api Overhead Benchmark is a set of tests aimed at measuring CPU-side execution duration of compute API calls.",
		Filename:    "api_overhead_benchmark",
		Version:     version,
		HwInfo:      dev.PrintInfo,
	}, registry)

	code := 0
	root := &cobra.Command{
		Use:                "api_overhead_benchmark [--key=value ...]",
		Short:              "Measure host-side cost of compute API calls",
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
