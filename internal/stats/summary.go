package stats

import (
	"math"
	"sort"
)

// Summary holds the metrics printed for one series.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	// StdDev is relative to the mean (0.05 means 5%).
	StdDev float64
}

// Summarize computes metrics over values, ignoring the first warmup samples.
// At least one sample is always kept.
func Summarize(values []float64, warmup int) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	if warmup < 0 {
		warmup = 0
	}
	if warmup >= len(values) {
		warmup = len(values) - 1
	}
	v := values[warmup:]

	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)

	var sum float64
	for _, x := range v {
		sum += x
	}
	n := float64(len(v))
	mean := sum / n

	var median float64
	if mid := len(sorted) / 2; len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	var diffSum float64
	for _, x := range v {
		d := x - mean
		diffSum += d * d
	}
	var stddev float64
	if mean != 0 {
		stddev = math.Sqrt(diffSum/n) / mean
	}

	return Summary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: median,
		StdDev: stddev,
	}
}
