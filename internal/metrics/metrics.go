package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var totalRuns atomic.Int64

var (
	TestRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_test_runs_total",
		Help: "Test case runs by outcome",
	}, []string{"test", "api", "result"})

	TestRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bench_test_run_duration_seconds",
		Help:    "Wall time of one test case run including setup",
		Buckets: prometheus.DefBuckets,
	}, []string{"test", "api"})

	SampleValue = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bench_sample_value",
		Help:    "Pushed sample values in their reported unit",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 16),
	}, []string{"test", "unit"})

	DeviceMemoryAllocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bench_device_memory_allocated_bytes",
		Help: "Current bytes allocated on the emulated device",
	})

	KernelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bench_kernel_duration_seconds",
		Help:    "Histogram of kernel execution times",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 14),
	}, []string{"kernel"})

	KernelLaunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_kernel_launches_total",
		Help: "Kernels submitted to the emulated device",
	}, []string{"kernel"})

	ChildProcessesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_child_processes_total",
		Help: "Workload processes spawned by outcome",
	}, []string{"result"})

	SynchronizationRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bench_synchronization_rounds_total",
		Help: "Completed process group barrier rounds",
	})

	DeveloperWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bench_developer_warnings_total",
		Help: "Harness invariant violations that did not stop the run",
	})

	ExportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_export_errors_total",
		Help: "Failed result exports by exporter",
	}, []string{"exporter"})

	BaselineDelta = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bench_baseline_delta_ratio",
		Help: "Relative mean change against the stored baseline",
	}, []string{"test"})
)

func RecordTestRun(test, api, result string, duration time.Duration) {
	TestRunsTotal.WithLabelValues(test, api, result).Inc()
	TestRunDuration.WithLabelValues(test, api).Observe(duration.Seconds())
	totalRuns.Add(1)
}

func RecordSamples(test, unit string, values []float64) {
	h := SampleValue.WithLabelValues(test, unit)
	for _, v := range values {
		h.Observe(v)
	}
}

func RecordDeviceMemory(bytes int64) {
	DeviceMemoryAllocated.Set(float64(bytes))
}

func RecordKernelLaunch(name string, duration time.Duration) {
	KernelLaunchesTotal.WithLabelValues(name).Inc()
	KernelDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func RecordChildProcess(result string) {
	ChildProcessesTotal.WithLabelValues(result).Inc()
}

func RecordSynchronizationRound() {
	SynchronizationRounds.Inc()
}

func RecordDeveloperWarning() {
	DeveloperWarnings.Inc()
}

func RecordExportError(exporter string) {
	ExportErrors.WithLabelValues(exporter).Inc()
}

func RecordBaselineDelta(test string, ratio float64) {
	BaselineDelta.WithLabelValues(test).Set(ratio)
}

// TotalRuns is the number of test runs recorded by this process.
func TotalRuns() int64 {
	return totalRuns.Load()
}

// WriteTextfile dumps the default registry in text exposition format, for
// node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
