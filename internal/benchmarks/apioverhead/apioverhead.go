// Package apioverhead holds the test cases of api_overhead_benchmark. They
// measure the host-side cost of driving the emulated device: submissions,
// copies, atomics and multi-threaded use of one device.
package apioverhead

import (
	"fmt"

	"github.com/23skdu/longbow-bench/internal/api"
	"github.com/23skdu/longbow-bench/internal/device"
	"github.com/23skdu/longbow-bench/internal/testcase"
)

// Register declares every test case of the benchmark against dev.
func Register(r *testcase.Registry, dev *device.Device) {
	b := &bench{dev: dev}
	r.Register(b.submitKernel())
	r.Register(b.usmCopy())
	r.Register(b.separateAtomics())
	r.Register(b.multithreadSubmit())
	r.Register(b.kernelAndCopy())
}

type bench struct {
	dev *device.Device
}

// device resolves --subDeviceSelection.
func (b *bench) device(env testcase.Env) (*device.Device, error) {
	return b.dev.Select(env.SubDeviceSelection)
}

// Level Zero bodies drive immediate queues; OpenCL bodies drive in-order
// queues that execute in the background.
func immediate(a api.Api) bool {
	return a == api.L0
}

// requireExtensions is the device half of an extension-only body; the
// registry already rejected the run when extensions are disabled.
func requireExtensions(dev *device.Device) error {
	if !dev.Capabilities().VendorExtensions {
		return fmt.Errorf("vendor extensions: %w", device.ErrNotCapable)
	}
	return nil
}
