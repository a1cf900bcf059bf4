// Package device is an in-process emulated compute device. It stands in for
// a GPU runtime so benchmark bodies have real queues, kernels, buffers and
// events to time without vendor drivers.
package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/result"
)

var (
	// ErrNotCapable is returned when the device lacks a feature a body needs.
	ErrNotCapable = result.ErrDeviceNotCapable
	// ErrKernelNotFound is returned for launches of unregistered kernels.
	ErrKernelNotFound = result.ErrKernelNotFound
)

var allocatedBytes int64

func traceAlloc(delta int64) {
	newVal := atomic.AddInt64(&allocatedBytes, delta)
	metrics.RecordDeviceMemory(newVal)
}

// AllocatedBytes is the total live allocation across every device.
func AllocatedBytes() int64 {
	return atomic.LoadInt64(&allocatedBytes)
}

// Capabilities is what the emulated hardware offers.
type Capabilities struct {
	CopyQueue        bool
	VendorExtensions bool
	Timestamps       bool
	SubDevices       int
	MaxWorkgroupSize int
	MaxAllocation    uint64
}

// DefaultCapabilities describes a fully featured device.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		CopyQueue:        true,
		VendorExtensions: true,
		Timestamps:       true,
		SubDevices:       2,
		MaxWorkgroupSize: 1024,
		MaxAllocation:    4 << 30,
	}
}

type Option func(*Device)

func WithCapabilities(c Capabilities) Option {
	return func(d *Device) { d.caps = c }
}

// WithWorkers bounds the number of workgroups executing concurrently.
func WithWorkers(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// Device owns kernels and a pool of released buffers keyed by size.
type Device struct {
	name    string
	caps    Capabilities
	workers int
	parent  *Device
	index   int

	mu      sync.Mutex
	kernels map[string]Kernel
	pool    map[uint64][]*Buffer
	live    int64
}

// New creates a device with the builtin kernels registered.
func New(opts ...Option) *Device {
	d := &Device{
		name:    "Emulated Compute Device",
		caps:    DefaultCapabilities(),
		workers: runtime.NumCPU(),
		index:   -1,
		kernels: make(map[string]Kernel),
		pool:    make(map[uint64][]*Buffer),
	}
	for _, opt := range opts {
		opt(d)
	}
	registerBuiltins(d)
	return d
}

func (d *Device) Name() string { return d.name }

func (d *Device) Capabilities() Capabilities { return d.caps }

// SubDevice returns tile i. Sub-devices share the parent's kernels.
func (d *Device) SubDevice(i int) (*Device, error) {
	if d.parent != nil || i < 0 || i >= d.caps.SubDevices {
		return nil, fmt.Errorf("sub-device %d: %w", i, ErrNotCapable)
	}
	sub := &Device{
		name:    fmt.Sprintf("%s (tile %d)", d.name, i),
		caps:    d.caps,
		workers: max(1, d.workers/d.caps.SubDevices),
		parent:  d,
		index:   i,
		kernels: d.kernels,
		pool:    make(map[uint64][]*Buffer),
	}
	sub.caps.SubDevices = 0
	return sub, nil
}

// Select resolves a --subDeviceSelection value: "" or "root" is the whole
// device, otherwise a tile index.
func (d *Device) Select(selection string) (*Device, error) {
	if selection == "" || selection == "root" {
		return d, nil
	}
	i, err := strconv.Atoi(selection)
	if err != nil {
		return nil, fmt.Errorf("invalid sub-device selection %q", selection)
	}
	return d.SubDevice(i)
}

// RegisterKernel adds or replaces a named kernel.
func (d *Device) RegisterKernel(name string, k Kernel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kernels[name] = k
}

func (d *Device) kernel(name string) (Kernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels[name]
	if !ok {
		return nil, fmt.Errorf("kernel %q: %w", name, ErrKernelNotFound)
	}
	return k, nil
}

// Kernels lists registered kernel names.
func (d *Device) Kernels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.kernels))
	for name := range d.kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allocate returns a zeroed buffer, reusing a released one of the same size.
func (d *Device) Allocate(size uint64) (*Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("allocate 0 bytes")
	}
	if d.caps.MaxAllocation > 0 && size > d.caps.MaxAllocation {
		return nil, fmt.Errorf("allocate %d bytes: %w", size, ErrNotCapable)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if pool := d.pool[size]; len(pool) > 0 {
		b := pool[len(pool)-1]
		d.pool[size] = pool[:len(pool)-1]
		clear(b.data)
		b.released = false
		return b, nil
	}

	b := &Buffer{data: make([]byte, size), dev: d}
	d.live += int64(size)
	traceAlloc(int64(size))
	return b, nil
}

// Release returns b to the pool. Released buffers stay counted as allocated
// until Free.
func (d *Device) Release(b *Buffer) {
	if b == nil || b.released {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b.released = true
	size := uint64(len(b.data))
	d.pool[size] = append(d.pool[size], b)
}

// Free drops the pool and every byte this device still tracks.
func (d *Device) Free() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live != 0 {
		traceAlloc(-d.live)
	}
	d.live = 0
	d.pool = make(map[uint64][]*Buffer)
}

// PrintInfo writes the --hwInfo description.
func (d *Device) PrintInfo(w io.Writer) {
	fmt.Fprintf(w, "Device: %s\n", d.name)
	fmt.Fprintf(w, "\tworkers: %d\n", d.workers)
	fmt.Fprintf(w, "\tsub-devices: %d\n", d.caps.SubDevices)
	fmt.Fprintf(w, "\tcopy queue: %t\n", d.caps.CopyQueue)
	fmt.Fprintf(w, "\tvendor extensions: %t\n", d.caps.VendorExtensions)
	fmt.Fprintf(w, "\ttimestamps: %t\n", d.caps.Timestamps)
	fmt.Fprintf(w, "\tmax workgroup size: %d\n", d.caps.MaxWorkgroupSize)
	fmt.Fprintf(w, "\tkernels: %v\n", d.Kernels())
}

// Buffer is device memory. Atomic operations treat it as little-endian
// uint32 slots.
type Buffer struct {
	data     []byte
	dev      *Device
	released bool
	mu       sync.Mutex
}

func (b *Buffer) Size() uint64 { return uint64(len(b.data)) }

// Bytes exposes the host view of the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Slots is the number of uint32 slots.
func (b *Buffer) Slots() int { return len(b.data) / 4 }

// AtomicAdd adds v to slot i and returns the new value.
func (b *Buffer) AtomicAdd(i int, v uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	slot := b.data[i*4 : i*4+4]
	cur := binary.LittleEndian.Uint32(slot) + v
	binary.LittleEndian.PutUint32(slot, cur)
	return cur
}

// Load reads slot i.
func (b *Buffer) Load(i int) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return binary.LittleEndian.Uint32(b.data[i*4 : i*4+4])
}
