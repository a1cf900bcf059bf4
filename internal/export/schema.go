package export

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-bench/internal/stats"
)

const (
	colRunID = iota
	colBenchmark
	colTest
	colName
	colApi
	colConfig
	colResult
	colTimestamp
	colLabel
	colUnit
	colType
	colMean
	colMedian
	colMin
	colMax
	colStdDev
	colSamples
)

// Schema has one row per (run, label). Runs that produced no samples get a
// single row with null metrics.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "run_id", Type: arrow.BinaryTypes.String},
	{Name: "benchmark", Type: arrow.BinaryTypes.String},
	{Name: "test", Type: arrow.BinaryTypes.String},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "api", Type: arrow.BinaryTypes.String},
	{Name: "config", Type: arrow.BinaryTypes.String},
	{Name: "result", Type: arrow.BinaryTypes.String},
	{Name: "timestamp", Type: arrow.FixedWidthTypes.Timestamp_ms},
	{Name: "label", Type: arrow.BinaryTypes.String},
	{Name: "unit", Type: arrow.BinaryTypes.String},
	{Name: "type", Type: arrow.BinaryTypes.String},
	{Name: "mean", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "median", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "min", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "max", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "stddev", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "samples", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: true},
}, nil)

// BuildRecord converts records into one Arrow batch. The caller releases it.
func BuildRecord(mem memory.Allocator, records []Record) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	for _, r := range records {
		if len(r.Series) == 0 {
			appendRow(b, r, nil)
			continue
		}
		for i := range r.Series {
			appendRow(b, r, &r.Series[i])
		}
	}
	return b.NewRecord()
}

func appendRow(b *array.RecordBuilder, r Record, s *stats.Series) {
	str := func(col int, v string) { b.Field(col).(*array.StringBuilder).Append(v) }
	str(colRunID, r.RunID)
	str(colBenchmark, r.Benchmark)
	str(colTest, r.Test)
	str(colName, r.Name)
	str(colApi, r.Api)
	str(colConfig, r.Config)
	str(colResult, r.Result.String())
	b.Field(colTimestamp).(*array.TimestampBuilder).Append(arrow.Timestamp(r.Timestamp.UnixMilli()))

	metricCols := []int{colMean, colMedian, colMin, colMax, colStdDev}
	samples := b.Field(colSamples).(*array.ListBuilder)
	if s == nil {
		str(colLabel, "")
		str(colUnit, "")
		str(colType, "")
		for _, col := range metricCols {
			b.Field(col).(*array.Float64Builder).AppendNull()
		}
		samples.AppendNull()
		return
	}

	str(colLabel, s.Label)
	str(colUnit, s.Unit.String())
	str(colType, s.Type.String())
	sum := stats.Summarize(s.Values, r.Warmup)
	for i, v := range []float64{sum.Mean, sum.Median, sum.Min, sum.Max, sum.StdDev} {
		b.Field(metricCols[i]).(*array.Float64Builder).Append(v)
	}
	samples.Append(true)
	samples.ValueBuilder().(*array.Float64Builder).AppendValues(s.Values, nil)
}
