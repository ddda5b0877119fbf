package buffer

import (
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

// Cache is the subset of session.Cache the buffer factory needs: a lookup
// by (name, shape) identity. Declared here (rather than importing the
// session package) so buffer has no dependency on the layer above it;
// session.Cache satisfies this interface.
type Cache interface {
	GetBuffer(key any) (*Buffer, bool)
	PutBuffer(key any, buf *Buffer)
}

// Factory is the Buffer Factory / Converter of spec §4.3: it allocates,
// fills and uploads buffers from host values, caching by (tensor-name,
// shape).
type Factory struct {
	Device device.Device
	Queue  *device.Queue
	Cache  Cache
}

// ConvertToOpenCL implements `convert_to_opencl(value, shape, dtype, name)`
// (spec §4.3). value must already be fully resolved to host form — plain
// scalars, typed slices, or arbitrarily nested slices of numbers/bools;
// resolving embedded graph nodes is the evaluator's job, done before this
// call.
func (f *Factory) ConvertToOpenCL(value any, sh shape.Shape, dt dtype.DType, name string) (*Buffer, error) {
	key := Key(name, sh)
	if existing, ok := f.Cache.GetBuffer(key); ok {
		if isEmptyValue(value) {
			return existing, nil
		}
		if err := f.fillAndWrite(existing, value); err != nil {
			return nil, err
		}
		return existing, nil
	}

	buf := New(name, dt, sh)
	mem, err := f.allocMem(dt, sh)
	if err != nil {
		return nil, err
	}
	buf.Mem = mem

	if !isEmptyValue(value) {
		if err := f.fillAndWrite(buf, value); err != nil {
			return nil, err
		}
	}
	f.Cache.PutBuffer(key, buf)
	return buf, nil
}

// CreateResultBuffer implements `_create_result_buffer(dtype, shape,
// name)`: cached under ("_result_", name, shape), allocating storage with
// no write (spec §4.3).
func (f *Factory) CreateResultBuffer(dt dtype.DType, sh shape.Shape, name string) (*Buffer, error) {
	key := Key("_result_"+name, sh)
	if existing, ok := f.Cache.GetBuffer(key); ok {
		return existing, nil
	}
	buf := New(name, dt, sh)
	mem, err := f.allocMem(dt, sh)
	if err != nil {
		return nil, err
	}
	buf.Mem = mem
	if mem != nil {
		buf.Host = mem.Data // kernels write Mem.Data; the host array is that same slice
	}
	f.Cache.PutBuffer(key, buf)
	return buf, nil
}

func (f *Factory) allocMem(dt dtype.DType, sh shape.Shape) (*device.MemObject, error) {
	if sh.Size() == 0 {
		return nil, nil // device_mem = null when the shape reduces to zero elements
	}
	return f.Device.Alloc(dtypeAdapter{dt}, sh.HostLen())
}

// fillAndWrite fills buf.Host from value (adopting a matching typed slice
// directly, or flattening+casting an arbitrary nested value, or writing a
// bare scalar to index 0) and enqueues a host-to-device write, recording
// the returned event as buf.LastEvent.
func (f *Factory) fillAndWrite(buf *Buffer, value any) error {
	n := buf.Len()
	if adopted, ok := adoptTyped(value, buf.DType, n); ok {
		buf.Host = adopted
	} else if isScalarValue(value) {
		writeF64(buf.Host, 0, scalarFloat64(value))
	} else {
		flat := flattenFloat64(value)
		buf.Host = castFloat64(flat, buf.DType)
	}

	if buf.Mem == nil {
		buf.Dirty = true
		return nil
	}
	wait := buf.LastEvent
	host := buf.Host
	mem := buf.Mem
	ev := f.Queue.EnqueueWrite(mem, func() error {
		copyIntoMem(mem, host)
		return nil
	}, wait)
	buf.LastEvent = ev
	buf.Dirty = true
	return nil
}

func copyIntoMem(mem *device.MemObject, host any) {
	// Copy into the existing Data slice rather than replacing it: kernels
	// enqueued after this write already hold that slice as an operand.
	switch h := host.(type) {
	case []float32:
		if dst, ok := mem.Data.([]float32); ok {
			copy(dst, h)
		}
	case []int32:
		if dst, ok := mem.Data.([]int32); ok {
			copy(dst, h)
		}
	case []int16:
		if dst, ok := mem.Data.([]int16); ok {
			copy(dst, h)
		}
	}
}

func isScalarValue(v any) bool {
	switch v.(type) {
	case float32, float64, int, int32, int64, bool:
		return true
	default:
		return false
	}
}

func scalarFloat64(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// writeF64 is shared with device/software's kernel bodies conceptually,
// but buffer keeps its own copy to avoid depending on that package's
// internals; it writes v into data[idx] honoring the slice's dtype.
func writeF64(data any, idx int, v float64) {
	switch s := data.(type) {
	case []float32:
		s[idx] = float32(v)
	case []int32:
		s[idx] = int32(v)
	case []int16:
		s[idx] = int16(v)
	}
}

// dtypeAdapter adapts dtype.DType to device.DTypeSized without device
// importing the dtype package (keeping device the lowest layer).
type dtypeAdapter struct{ dt dtype.DType }

func (a dtypeAdapter) ElemSize() int        { return a.dt.ElemSize() }
func (a dtypeAdapter) KernelSuffix() string { return a.dt.KernelSuffix() }
