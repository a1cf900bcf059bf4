package export

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FileExporter appends one Arrow batch per Export call to an IPC file.
type FileExporter struct {
	path string
	f    *os.File
	w    *ipc.FileWriter
	mem  memory.Allocator
}

func NewFile(path string) (*FileExporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create arrow file: %w", err)
	}
	mem := memory.NewGoAllocator()
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create arrow writer: %w", err)
	}
	return &FileExporter{path: path, f: f, w: w, mem: mem}, nil
}

func (e *FileExporter) Name() string { return "arrow_file" }

func (e *FileExporter) Export(_ context.Context, records []Record) error {
	rec := BuildRecord(e.mem, records)
	defer rec.Release()
	if err := e.w.Write(rec); err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	return nil
}

// Close writes the file footer. The file is unreadable before Close.
func (e *FileExporter) Close() error {
	if e.w == nil {
		return nil
	}
	err := e.w.Close()
	e.w = nil
	if cerr := e.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", e.path, err)
	}
	return nil
}
