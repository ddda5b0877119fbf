package dispatch

import (
	"fmt"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/kernelreg"
)

// Coercer performs Type Coercion (spec §4.5): when a binary op's two
// operands carry different dtypes, "b" is cast into "a"'s dtype family
// before dispatch — promoting when a is float and b is int, narrowing
// when a is int and b is float.
type Coercer struct {
	Registry *kernelreg.Registry
	Factory  *buffer.Factory
	Queue    *device.Queue
}

// CoerceDType returns the dtype a binary op's two operands should be
// evaluated at, per spec §4.5's asymmetric promotion rule: "b" is always
// cast into "a"'s dtype family, never the other way around — even when
// that narrows a float b down to an int a.
func CoerceDType(a, b dtype.DType) dtype.DType {
	return a
}

// Coerce casts buf to target if it isn't already that dtype, enqueuing a
// cast_int_fp/cast_fp_int kernel and returning a new buffer. It returns
// buf unchanged (same pointer) when no cast is needed, or when buf and
// target fall outside the int/float coercion pair entirely (e.g. bool
// against int32) — spec §4.5: "any other mismatch is accepted unchanged
// (documented limitation)".
func (c *Coercer) Coerce(node graphir.Node, buf *buffer.Buffer, target dtype.DType) (*buffer.Buffer, error) {
	if buf.DType == target {
		return buf, nil
	}

	var opName string
	switch {
	case buf.DType.IsInt() && target.IsFloat():
		opName = "cast_int_fp"
	case buf.DType.IsFloat() && target.IsInt():
		opName = "cast_fp_int"
	default:
		return buf, nil
	}

	prog, err := c.Registry.ResolveByName(node, opName)
	if err != nil {
		return nil, err
	}
	fn, ok := prog.Entry(opName)
	if !ok {
		return nil, evalerr.KernelBuildFailure(node, fmt.Errorf("program %q missing entry %q", opName, opName))
	}

	out, err := c.Factory.CreateResultBuffer(target, buf.Shape, buf.Name+"_"+opName)
	if err != nil {
		return nil, evalerr.DeviceError(node, err)
	}

	m, n := to2D(buf.Shape)
	ev := c.Queue.EnqueueKernel(fn, device.Args{
		M: m, N: n,
		Operands: []any{buf.Mem.Data, out.Mem.Data},
	}, buf.LastEvent)
	out.LastEvent = ev
	out.Dirty = true
	return out, nil
}
