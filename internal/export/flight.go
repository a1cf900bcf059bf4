package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// FlightPathPrefix is the first element of every uploaded descriptor path;
// the benchmark name follows it.
const FlightPathPrefix = "longbow-bench"

// FlightExporter uploads each Export call as one DoPut stream.
type FlightExporter struct {
	addr   string
	client flight.Client
	mem    memory.Allocator
}

// NewFlight connects to a Flight server at host:port.
func NewFlight(addr string) (*FlightExporter, error) {
	client, err := flight.NewClientWithMiddleware(addr, nil, nil, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Flight client: %w", err)
	}
	return &FlightExporter{addr: addr, client: client, mem: memory.NewGoAllocator()}, nil
}

func (e *FlightExporter) Name() string { return "flight" }

func (e *FlightExporter) Export(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	stream, err := e.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("failed to create DoPut stream: %w", err)
	}

	w := flight.NewRecordWriter(stream, ipc.WithSchema(Schema), ipc.WithAllocator(e.mem))
	w.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{FlightPathPrefix, records[0].Benchmark},
	})

	rec := BuildRecord(e.mem, records)
	defer rec.Release()
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	for {
		if _, err := stream.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("DoPut to %s: %w", e.addr, err)
		}
	}
}

func (e *FlightExporter) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
