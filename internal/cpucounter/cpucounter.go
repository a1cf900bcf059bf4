// Package cpucounter reads the number of instructions retired by the calling
// thread. It is used next to wall-clock timers by benchmarks that report
// "hw instructions".
package cpucounter

import "os"

// ExcludeKernelEventsEnv set to 1 counts user-space instructions only.
const ExcludeKernelEventsEnv = "BENCHMARKS_PERF_EXCLUDE_KERNEL_EVENTS"

func excludeKernelEvents() bool {
	return os.Getenv(ExcludeKernelEventsEnv) == "1"
}
