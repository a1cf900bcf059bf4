//go:build linux

package cpucounter

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/23skdu/longbow-bench/internal/result"
)

// Counter wraps a perf_event fd counting retired instructions of the
// current thread. The goroutine is locked to its thread between Open and
// Close.
type Counter struct {
	fd int
}

// Open creates a disabled counter. Hosts that deny perf events report
// ApiNotCapable through the returned error.
func Open() (*Counter, error) {
	attr := unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Config: unix.PERF_COUNT_HW_INSTRUCTIONS,
		Bits:   unix.PerfBitDisabled | unix.PerfBitExcludeHv,
	}
	attr.Size = uint32(unsafe.Sizeof(attr))
	if excludeKernelEvents() {
		attr.Bits |= unix.PerfBitExcludeKernel
	}

	runtime.LockOSThread()
	fd, err := unix.PerfEventOpen(&attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("perf_event_open: %v: %w", err, result.ErrApiNotCapable)
	}
	return &Counter{fd: fd}, nil
}

// Start resets and enables counting.
func (c *Counter) Start() error {
	if err := unix.IoctlSetInt(c.fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
		return fmt.Errorf("reset counter: %w", err)
	}
	if err := unix.IoctlSetInt(c.fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		return fmt.Errorf("enable counter: %w", err)
	}
	return nil
}

// Stop disables counting and returns the instructions since Start.
func (c *Counter) Stop() (uint64, error) {
	if err := unix.IoctlSetInt(c.fd, unix.PERF_EVENT_IOC_DISABLE, 0); err != nil {
		return 0, fmt.Errorf("disable counter: %w", err)
	}
	var buf [8]byte
	n, err := unix.Read(c.fd, buf[:])
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("read counter: short read of %d bytes", n)
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

func (c *Counter) Close() error {
	defer runtime.UnlockOSThread()
	return unix.Close(c.fd)
}
