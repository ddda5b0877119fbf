package device

import (
	"fmt"
	"sync"
)

// MemObject is the device-side memory handle backing a Device Buffer. For
// the software backend (device/software) a result buffer's host array is
// the same typed Go slice as its "device" memory — the same sharing the
// teacher framework's CPU backend does for its "shared" tensors
// (types/tensors/ondevice.go) — while an uploaded buffer keeps its own
// host array, which the enqueued write copies into Data. The field is
// kept opaque here so a real accelerator backend could hold a
// non-aliased allocation instead.
//
// Data is nil and Bytes is 0 exactly when the buffer's shape reduces to
// zero elements (Device Buffer invariant, spec §3).
type MemObject struct {
	Data  any // []float32 | []int32 | []int16, or nil
	Bytes int
}

func (m *MemObject) IsNull() bool { return m == nil || m.Data == nil }

// Args bundles the scalar and operand arguments a kernel invocation needs,
// mirroring the argument order spec §6 assigns to each kernel family.
// Operands holds the typed host/device slices in the order the kernel
// expects them (A*, B*, C* for binary kernels; A*, C* for unary; etc.),
// with the last entry always the output.
type Args struct {
	M, N   int
	M1, N1 int // dims of the first (canonical "A") operand; defaults to M,N
	M2, N2 int // dims of the second (canonical "B") operand, for the broadcast variant
	Switch int // non-commutative operand order flag, spec §4.4
	K      int // gemm inner dimension
	TA, TB int // gemm transpose flags, 0 or 1

	Operands []any
}

// KernelFunc is a compiled kernel entry point: the software-backend
// equivalent of an OpenCL kernel object's single entry function.
type KernelFunc func(Args) error

// Program is a compiled kernel program for one operation, exposing one
// KernelFunc per dtype/variant entry point (e.g. "add_fp", "add_c_int",
// "gemm_fp"), matching the naming spec §4.2 describes
// ("<op>[_variant]_{fp|int}").
type Program struct {
	Op      string
	Entries map[string]KernelFunc
}

// Entry looks up one of the program's compiled entry points.
func (p *Program) Entry(name string) (KernelFunc, bool) {
	if p == nil {
		return nil, false
	}
	fn, ok := p.Entries[name]
	return fn, ok
}

// BuildFailure is returned by a Device's Compile when no implementation is
// registered for the requested op, carrying a synthesized build log the
// way an OpenCL driver would (spec's KernelBuildFailure "includes the
// device log").
type BuildFailure struct {
	Op  string
	Log string
}

func (e *BuildFailure) Error() string {
	return fmt.Sprintf("device: failed to build program %q:\n%s", e.Op, e.Log)
}

// Device is the minimal device/context pairing the core needs: it compiles
// programs and allocates memory, then hands out Queues to enqueue work on.
type Device interface {
	Name() string
	Compile(opName string) (*Program, error)
	Alloc(dt DTypeSized, hostLen int) (*MemObject, error)
	NewQueue() *Queue
}

// DTypeSized is the minimal dtype information Alloc needs: how many bytes
// one element takes and which Go slice type backs it. It avoids an import
// of the dtype package from this low-level layer; buffer.Buffer supplies
// the concrete adapter.
type DTypeSized interface {
	ElemSize() int
	KernelSuffix() string
}

// Queue is an asynchronous command queue: every Enqueue* method returns
// immediately with an Event, and the operation itself runs on its own
// goroutine once its wait list is satisfied — the queue never blocks the
// caller except inside Finish, matching spec §5's suspension-point rule.
type Queue struct {
	wg sync.WaitGroup
}

// NewQueue returns an empty, ready-to-use queue.
func NewQueue() *Queue { return &Queue{} }

// run schedules fn to execute on its own goroutine once every event in
// waitList has completed, and returns the Event fn's completion is
// recorded against.
func (q *Queue) run(waitList []*Event, fn func() error) *Event {
	ev := NewEvent()
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := WaitAll(waitList...); err != nil {
			ev.Complete(err)
			return
		}
		ev.Complete(fn())
	}()
	return ev
}

// EnqueueWrite schedules a host-to-device copy into mem, completing once
// waitList is satisfied.
func (q *Queue) EnqueueWrite(mem *MemObject, copyFn func() error, waitList ...*Event) *Event {
	return q.run(waitList, copyFn)
}

// EnqueueRead schedules a device-to-host copy out of mem, completing once
// waitList is satisfied. It is the one call sites outside the queue are
// expected to Wait() on synchronously (spec §5, "enqueue_read_buffer
// during final result materialization").
func (q *Queue) EnqueueRead(mem *MemObject, copyFn func() error, waitList ...*Event) *Event {
	return q.run(waitList, copyFn)
}

// EnqueueKernel schedules a compiled kernel entry point over the given
// global work size, completing once waitList is satisfied.
func (q *Queue) EnqueueKernel(fn KernelFunc, args Args, waitList ...*Event) *Event {
	return q.run(waitList, func() error { return fn(args) })
}

// Finish blocks until every operation enqueued so far has completed — the
// other suspension point spec §5 names.
func (q *Queue) Finish() {
	q.wg.Wait()
}
