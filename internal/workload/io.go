package workload

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/23skdu/longbow-bench/internal/process"
)

// Io is the worker's side of the pipes. A zero handle means the worker runs
// standalone and uses stdin/stdout instead. Console text always goes to
// stderr so it never mixes with measurements.
type Io struct {
	syncIn       io.Reader
	syncOut      io.Writer
	measurements io.Writer
	console      io.Writer

	// measurements share stdout with human output
	interleaved bool
	files       []*os.File
}

// NewIo opens the inherited handles.
func NewIo(syncIn, syncOut, measurement uint64) *Io {
	w := &Io{console: os.Stderr}
	w.syncIn = w.reader(syncIn, "synchronizationPipeIn")
	w.syncOut = w.writer(syncOut, "synchronizationPipeOut")
	w.measurements = w.writer(measurement, "measurementPipe")
	w.interleaved = measurement == 0
	return w
}

// NewStreamIo wires a worker to in-process streams, for running a body
// without a parent process.
func NewStreamIo(syncIn io.Reader, syncOut, measurements, console io.Writer) *Io {
	return &Io{syncIn: syncIn, syncOut: syncOut, measurements: measurements, console: console}
}

func (w *Io) reader(handle uint64, name string) io.Reader {
	if handle == 0 {
		return os.Stdin
	}
	f := os.NewFile(uintptr(handle), name)
	w.files = append(w.files, f)
	return f
}

func (w *Io) writer(handle uint64, name string) io.Writer {
	if handle == 0 {
		return os.Stdout
	}
	f := os.NewFile(uintptr(handle), name)
	w.files = append(w.files, f)
	return f
}

// Console is where bodies print diagnostics.
func (w *Io) Console() io.Writer { return w.console }

// WriteToConsole prints a diagnostic line.
func (w *Io) WriteToConsole(format string, args ...interface{}) {
	fmt.Fprintf(w.console, format, args...)
}

// WriteMeasurements writes the encoded samples once.
func (w *Io) WriteMeasurements(blob string) error {
	if w.interleaved {
		blob += " "
	}
	n, err := io.WriteString(w.measurements, blob)
	if err != nil {
		return fmt.Errorf("write measurements: %w", err)
	}
	if n == 0 && blob != "" {
		return fmt.Errorf("write measurements: %w", io.ErrShortWrite)
	}
	return nil
}

// Signal tells the parent this worker is ready.
func (w *Io) Signal() error {
	if _, err := w.syncOut.Write([]byte{process.SynchronizationChar}); err != nil {
		return fmt.Errorf("write synchronization char: %w", err)
	}
	return nil
}

// WaitForRelease blocks until the parent releases this round. Any byte
// other than the synchronization char is a protocol desync and panics.
func (w *Io) WaitForRelease() error {
	var buf [1]byte
	n, err := w.syncIn.Read(buf[:])
	if n == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read synchronization char: %w", err)
	}
	if buf[0] != process.SynchronizationChar {
		panic("invalid synchronization received from the parent: " + strconv.Quote(string(buf[:])))
	}
	return nil
}

// Close releases the inherited handles. Closing the measurement pipe is
// what lets the parent see EOF.
func (w *Io) Close() {
	for _, f := range w.files {
		f.Close()
	}
	w.files = nil
}
