package dispatch

import (
	"fmt"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/kernelreg"
	"github.com/tensorwave/oclgraph/metrics"
	"github.com/tensorwave/oclgraph/shape"
)

// Dispatcher is the Kernel Dispatcher of spec §4.4: it selects a kernel
// variant and entry point for an op application, enqueues it against the
// session's queue, and returns the freshly allocated result buffer.
type Dispatcher struct {
	Registry *kernelreg.Registry
	Factory  *buffer.Factory
	Queue    *device.Queue
	Coercer  *Coercer
	Metrics  *metrics.Registry
}

// Binary dispatches a two-operand elementwise op (spec §4.4): coerces
// dtypes first (spec §4.5), selects a kernel variant against the
// already-inferred output shape, and enqueues the kernel. A broadcast
// whose output rank exceeds 2 is rejected with RankError.
func (d *Dispatcher) Binary(node graphir.Node, op graphir.Op, a, b *buffer.Buffer, out shape.Shape, resultName string) (*buffer.Buffer, error) {
	target := CoerceDType(a.DType, b.DType)
	var err error
	if a, err = d.Coercer.Coerce(node, a, target); err != nil {
		return nil, err
	}
	if b, err = d.Coercer.Coerce(node, b, target); err != nil {
		return nil, err
	}

	plan := SelectVariant(a, b, out)
	if plan.Variant == VariantBroadcast && out.Rank() > 2 {
		return nil, evalerr.RankError(node, fmt.Sprintf("broadcast kernels support rank <= 2, got %s and %s", a.Shape, b.Shape))
	}
	entry := plan.EntryName(op.String(), target.KernelSuffix())

	prog, err := d.Registry.Resolve(node, op)
	if err != nil {
		return nil, err
	}
	fn, ok := prog.Entry(entry)
	if !ok {
		return nil, evalerr.KernelBuildFailure(node, fmt.Errorf("program %q missing entry %q", op, entry))
	}

	result, err := d.Factory.CreateResultBuffer(target, out, resultName)
	if err != nil {
		return nil, evalerr.DeviceError(node, err)
	}

	ev := d.Queue.EnqueueKernel(fn, device.Args{
		M: plan.M, N: plan.N,
		M1: plan.M1, N1: plan.N1,
		M2: plan.M2, N2: plan.N2,
		Switch:   plan.Switch,
		Operands: []any{plan.P.Mem.Data, plan.Q.Mem.Data, result.Mem.Data},
	}, device.NonNil(plan.P.LastEvent, plan.Q.LastEvent)...)
	result.LastEvent = ev
	result.Dirty = true

	if d.Metrics != nil {
		d.Metrics.KernelEnqueues.WithLabelValues(op.String(), variantLabel(plan.Variant)).Inc()
	}
	return result, nil
}

// Unary dispatches a single-operand elementwise op (spec §4.1's
// elementwise-unary family): no variant selection, work size taken
// directly from the operand's shape.
func (d *Dispatcher) Unary(node graphir.Node, op graphir.Op, a *buffer.Buffer, resultName string) (*buffer.Buffer, error) {
	prog, err := d.Registry.Resolve(node, op)
	if err != nil {
		return nil, err
	}
	entry := op.String() + "_" + a.DType.KernelSuffix()
	fn, ok := prog.Entry(entry)
	if !ok {
		return nil, evalerr.KernelBuildFailure(node, fmt.Errorf("program %q missing entry %q", op, entry))
	}

	result, err := d.Factory.CreateResultBuffer(a.DType, a.Shape, resultName)
	if err != nil {
		return nil, evalerr.DeviceError(node, err)
	}

	m, n := to2D(a.Shape)
	ev := d.Queue.EnqueueKernel(fn, device.Args{
		M: m, N: n,
		Operands: []any{a.Mem.Data, result.Mem.Data},
	}, a.LastEvent)
	result.LastEvent = ev
	result.Dirty = true

	if d.Metrics != nil {
		d.Metrics.KernelEnqueues.WithLabelValues(op.String(), "unary").Inc()
	}
	return result, nil
}

// MatMul dispatches the matmul op (spec §4.1): a is (M, K), b is (K, N),
// optionally viewed transposed, producing an (M, N) result. Both operands
// must have rank >= 2 and agree on the inner dimension (spec §7/§8's S2),
// checked here before any kernel is resolved or enqueued.
func (d *Dispatcher) MatMul(node graphir.Node, a, b *buffer.Buffer, transposeA, transposeB bool, out shape.Shape, resultName string) (*buffer.Buffer, error) {
	if a.Shape.Rank() < 2 || b.Shape.Rank() < 2 {
		return nil, evalerr.RankError(node, fmt.Sprintf("matmul requires rank >= 2 operands, got %s and %s", a.Shape, b.Shape))
	}

	target := CoerceDType(a.DType, b.DType)
	var err error
	if a, err = d.Coercer.Coerce(node, a, target); err != nil {
		return nil, err
	}
	if b, err = d.Coercer.Coerce(node, b, target); err != nil {
		return nil, err
	}

	m, k := physicalDims(a.Shape, transposeA)
	v, n := physicalDims(b.Shape, transposeB)
	if k != v {
		return nil, evalerr.ShapeMismatch(node, fmt.Sprintf("matmul inner dimensions disagree: %d vs %d", k, v))
	}

	prog, err := d.Registry.Resolve(node, graphir.OpMatMul)
	if err != nil {
		return nil, err
	}
	entry := "gemm_" + target.KernelSuffix()
	fn, ok := prog.Entry(entry)
	if !ok {
		return nil, evalerr.KernelBuildFailure(node, fmt.Errorf("program matmul missing entry %q", entry))
	}

	result, err := d.Factory.CreateResultBuffer(target, out, resultName)
	if err != nil {
		return nil, evalerr.DeviceError(node, err)
	}

	ta, tb := 0, 0
	if transposeA {
		ta = 1
	}
	if transposeB {
		tb = 1
	}

	ev := d.Queue.EnqueueKernel(fn, device.Args{
		M: m, N: n, K: k, TA: ta, TB: tb,
		Operands: []any{a.Mem.Data, b.Mem.Data, result.Mem.Data},
	}, device.NonNil(a.LastEvent, b.LastEvent)...)
	result.LastEvent = ev
	result.Dirty = true

	if d.Metrics != nil {
		d.Metrics.KernelEnqueues.WithLabelValues(graphir.OpMatMul.String(), "gemm").Inc()
	}
	return result, nil
}

// physicalDims returns the logical (rows, cols) matmul dims for a 2D
// operand, accounting for whether it is stored transposed.
func physicalDims(sh shape.Shape, transposed bool) (int, int) {
	rows, cols := sh.Dim(0), sh.Dim(1)
	if transposed {
		return cols, rows
	}
	return rows, cols
}

func variantLabel(v Variant) string {
	switch v {
	case VariantScalar:
		return "scalar"
	case VariantBroadcast:
		return "broadcast"
	default:
		return "same_shape"
	}
}
