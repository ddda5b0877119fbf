// Package software is the one concrete device.Device this module ships:
// an in-process backend that executes the kernel contract spec §4.2/§6
// describes without a cgo OpenCL binding (see DESIGN.md and SPEC_FULL.md,
// "The device problem", for why — every OpenCL touchpoint in the
// retrieval pack is a disabled stub). Its Program entries are ordinary Go
// closures, several of them backed by gonum.org/v1/gonum (mat for gemm,
// the same numeric library the teacher pack uses throughout), registered
// once per operation the same way gomlx/backends/simplego registers a
// per-dtype dispatch table instead of loading a compiled accelerator
// program.
package software

import (
	"fmt"

	"github.com/tensorwave/oclgraph/device"
)

// Backend is the software device.Device implementation.
type Backend struct {
	kernelsDir string
	programs   map[string]*device.Program
}

// New constructs a software backend that reads `<kernelsDir>/<op>.cl` to
// decide whether a kernel source exists for an op (the file's contents are
// not executed — only its presence is meaningful, since this backend's
// actual entry points are the Go closures in this package; see
// DESIGN.md). kernelsDir may be empty, in which case every program is
// considered present (useful for tests that don't ship a resources tree).
func New(kernelsDir string) *Backend {
	return &Backend{kernelsDir: kernelsDir, programs: builtinPrograms()}
}

func (b *Backend) Name() string { return "software" }

// Compile looks up the builtin dispatch table for opName. If no resources
// directory was configured, or the expected `<op>.cl` file is present, the
// builtin program (if one is registered) is returned. Otherwise it returns
// a device.BuildFailure carrying a synthesized build log, the same
// behavior spec §4.2 specifies for a real device compiler.
func (b *Backend) Compile(opName string) (*device.Program, error) {
	if err := b.checkSource(opName); err != nil {
		return nil, err
	}
	prog, ok := b.programs[opName]
	if !ok {
		return nil, &device.BuildFailure{
			Op:  opName,
			Log: fmt.Sprintf("error: no kernel entry points registered for operation %q", opName),
		}
	}
	return prog, nil
}

func (b *Backend) NewQueue() *device.Queue { return device.NewQueue() }

// Alloc allocates a zero-valued host/device-shared memory object of the
// given dtype and host length. A zero-length allocation (hostLen<=0 is
// never passed by callers; shape.HostLen already floors at 1) still
// allocates one element, matching the Device Buffer invariant that
// host_array always has length max(1, product(shape)). Alloc never
// returns nil memory; the buffer factory itself leaves device_mem nil for
// a zero-element shape, without calling Alloc or AllocNull.
func (b *Backend) Alloc(dt device.DTypeSized, hostLen int) (*device.MemObject, error) {
	switch dt.KernelSuffix() {
	case "fp":
		return &device.MemObject{Data: make([]float32, hostLen), Bytes: hostLen * dt.ElemSize()}, nil
	case "int":
		if dt.ElemSize() == 2 {
			return &device.MemObject{Data: make([]int16, hostLen), Bytes: hostLen * dt.ElemSize()}, nil
		}
		return &device.MemObject{Data: make([]int32, hostLen), Bytes: hostLen * dt.ElemSize()}, nil
	default:
		return nil, fmt.Errorf("software: unsupported dtype suffix %q", dt.KernelSuffix())
	}
}

// AllocNull returns the null device memory object used when a Device
// Buffer's shape reduces to zero elements (spec §3 invariant: "If
// device_mem = null then shape reduces to zero elements").
func AllocNull() *device.MemObject { return nil }

func (b *Backend) checkSource(opName string) error {
	if b.kernelsDir == "" {
		return nil
	}
	path := b.kernelsDir + "/" + opName + ".cl"
	if _, err := statFile(path); err != nil {
		return &device.BuildFailure{
			Op:  opName,
			Log: fmt.Sprintf("error: cannot open kernel source %q: %v", path, err),
		}
	}
	return nil
}
