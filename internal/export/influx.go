package export

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/23skdu/longbow-bench/internal/stats"
)

// InfluxExporter writes one point per (run, label), measurement named after
// the benchmark.
type InfluxExporter struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInflux(url, token, org, bucket string) *InfluxExporter {
	client := influxdb2.NewClient(url, token)
	return &InfluxExporter{client: client, writer: client.WriteAPIBlocking(org, bucket)}
}

func (e *InfluxExporter) Name() string { return "influx" }

func (e *InfluxExporter) Export(ctx context.Context, records []Record) error {
	var points []*write.Point
	for _, r := range records {
		if len(r.Series) == 0 {
			points = append(points, influxdb2.NewPoint(r.Benchmark, tags(r, nil),
				map[string]interface{}{"result_code": int64(r.Result)}, r.Timestamp))
			continue
		}
		for i := range r.Series {
			s := &r.Series[i]
			sum := stats.Summarize(s.Values, r.Warmup)
			points = append(points, influxdb2.NewPoint(r.Benchmark, tags(r, s), map[string]interface{}{
				"mean":        sum.Mean,
				"median":      sum.Median,
				"min":         sum.Min,
				"max":         sum.Max,
				"stddev":      sum.StdDev,
				"samples":     int64(len(s.Values)),
				"result_code": int64(r.Result),
			}, r.Timestamp))
		}
	}
	if err := e.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

func tags(r Record, s *stats.Series) map[string]string {
	t := map[string]string{
		"test":   r.Test,
		"api":    r.Api,
		"result": r.Result.String(),
		"run_id": r.RunID,
	}
	if r.Config != "" {
		t["config"] = r.Config
	}
	if s != nil {
		if s.Label != "" {
			t["label"] = s.Label
		}
		t["unit"] = s.Unit.String()
		t["type"] = s.Type.String()
	}
	return t
}

func (e *InfluxExporter) Close() error {
	e.client.Close()
	return nil
}
