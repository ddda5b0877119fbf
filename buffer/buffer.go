// Package buffer implements the Device Buffer: the core's tagged handle
// pairing a host-side typed array with a device-side memory object, a
// declared shape and dtype, a dirty flag, and the last event that wrote
// the device memory (spec §3, "Device Buffer (core, owned)").
package buffer

import (
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

// Buffer is the evaluator's handle to a materialized tensor value, either
// host-only (before any device write) or backed by device memory.
type Buffer struct {
	Name  string
	DType dtype.DType
	Shape shape.Shape

	// Host is the host-side typed array, always of length
	// Shape.HostLen(): []float32, []int32 or []int16 (bool).
	Host any

	// Mem is the device-side allocation, or nil exactly when Shape has
	// zero elements (spec invariant: "If device_mem = null then shape
	// reduces to zero elements").
	Mem *device.MemObject

	// LastEvent is non-nil only while a kernel using Mem is outstanding
	// or pending in the queue; later enqueues consume it as a wait-list
	// entry and it may be cleared afterward (spec's "Event-as-lifetime"
	// design note).
	LastEvent *device.Event

	// Dirty is set once any write has been issued against this buffer; a
	// Variable's buffer is dirty after its first assign (spec §3).
	Dirty bool
}

// New constructs a Buffer with freshly allocated host storage of the
// dtype's Go slice type, sized to shape.HostLen(), and no device memory
// yet (Mem is populated when the factory allocates device storage).
func New(name string, dt dtype.DType, sh shape.Shape) *Buffer {
	return &Buffer{Name: name, DType: dt, Shape: sh, Host: allocHost(dt, sh.HostLen())}
}

func allocHost(dt dtype.DType, n int) any {
	switch dt {
	case dtype.Float32:
		return make([]float32, n)
	case dtype.Int32:
		return make([]int32, n)
	case dtype.Bool:
		return make([]int16, n)
	default:
		return nil
	}
}

// Len returns the host array's length.
func (b *Buffer) Len() int {
	switch h := b.Host.(type) {
	case []float32:
		return len(h)
	case []int32:
		return len(h)
	case []int16:
		return len(h)
	default:
		return 0
	}
}

// IsScalarLike reports whether the buffer represents a single value,
// used by the dispatcher's scalar-variant test (spec §4.4).
func (b *Buffer) IsScalarLike() bool {
	return b.Shape.IsScalarLike()
}

// key identifies a buffer for the SessionCache's (name, shape) caching
// rule (spec §4.3, "Cache key: (name, shape)").
type key struct {
	name string
	dims string
}

// Key returns the SessionCache lookup key for this buffer's identity.
func Key(name string, sh shape.Shape) any {
	return key{name: name, dims: sh.String()}
}
