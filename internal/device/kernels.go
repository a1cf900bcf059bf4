package device

// Builtin kernel names.
const (
	KernelEmpty     = "empty"
	KernelFill      = "fill"
	KernelAtomicAdd = "atomic_add"
	KernelEatTime   = "eat_time"
	KernelWriteID   = "write_id"
)

func registerBuiltins(d *Device) {
	d.kernels[KernelEmpty] = func(WorkItem) {}

	// fill: Args[0] is the byte written at every global id.
	d.kernels[KernelFill] = func(w WorkItem) {
		if w.Buffer == nil || len(w.Args) == 0 {
			return
		}
		data := w.Buffer.data
		data[w.GlobalID%len(data)] = byte(w.Args[0])
	}

	// atomic_add: Args[0] is the number of slots shared by each cache line
	// group; every item adds one to slot (gid % Args[0]).
	d.kernels[KernelAtomicAdd] = func(w WorkItem) {
		if w.Buffer == nil || w.Buffer.Slots() == 0 {
			return
		}
		slots := w.Buffer.Slots()
		if len(w.Args) > 0 && w.Args[0] > 0 && int(w.Args[0]) < slots {
			slots = int(w.Args[0])
		}
		w.Buffer.AtomicAdd(w.GlobalID%slots, 1)
	}

	// eat_time: spins Args[0] dependent operations.
	d.kernels[KernelEatTime] = func(w WorkItem) {
		if len(w.Args) == 0 {
			return
		}
		x := uint64(w.GlobalID) + 1
		for i := uint64(0); i < w.Args[0]; i++ {
			x = x*6364136223846793005 + 1442695040888963407
		}
		if w.Buffer != nil && w.Buffer.Slots() > 0 && x == 0 {
			w.Buffer.AtomicAdd(0, 1)
		}
	}

	// write_id: slot gid = gid.
	d.kernels[KernelWriteID] = func(w WorkItem) {
		if w.Buffer == nil || w.GlobalID >= w.Buffer.Slots() {
			return
		}
		w.Buffer.AtomicAdd(w.GlobalID, uint32(w.GlobalID))
	}
}
