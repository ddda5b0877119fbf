package eval

import (
	"fmt"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/reduce"
	"github.com/tensorwave/oclgraph/session"
	"github.com/tensorwave/oclgraph/shape"
)

// dispatchOp routes a Tensor's Op to its implementation: elementwise and
// matmul ops go through the Kernel Dispatcher, everything else (shape
// bookkeeping, reductions, random fills, control grouping) is computed
// host-side, per spec §4.7's note that these are better expressed as
// pure host functions than device kernels.
func (e *Evaluator) dispatchOp(ctx *session.Context, t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if !t.DType().IsValid() {
		return nil, evalerr.UnsupportedDtype(t, fmt.Sprintf("dtype %s is not one of {fp32, int32, bool}", t.DType()))
	}

	switch {
	case t.Op.IsElementwiseBinary():
		return e.binary(t, ops)
	case t.Op.IsElementwiseUnary():
		return e.unary(t, ops)
	}

	switch t.Op {
	case graphir.OpMatMul:
		return e.matmul(t, ops)
	case graphir.OpZeros, graphir.OpOnes:
		return e.fillConstant(t, t.Op == graphir.OpOnes)
	case graphir.OpZerosLike, graphir.OpOnesLike:
		return e.fillLike(t, ops, t.Op == graphir.OpOnesLike)
	case graphir.OpBroadcastTransform:
		return e.broadcastTransform(t, ops)
	case graphir.OpBroadcastGradientArgs:
		return e.broadcastGradientArgs(t, ops)
	case graphir.OpShape:
		return e.shapeOf(t, ops)
	case graphir.OpReshape:
		return e.reshape(t, ops)
	case graphir.OpRandomUniform:
		return e.randomUniform(ctx, t)
	case graphir.OpRandomNormal:
		return e.randomNormal(ctx, t)
	case graphir.OpGlorotUniform:
		return e.glorotUniform(ctx, t)
	case graphir.OpFlowGroup:
		return e.flowGroup(t, ops)
	case graphir.OpSum, graphir.OpProd:
		return e.reduction(t, ops)
	case graphir.OpArgMin, graphir.OpArgMax:
		return e.argExtreme(t, ops)
	case graphir.OpIndex:
		return e.index(t, ops)
	case graphir.OpTruncate:
		return e.truncate(t, ops)
	case graphir.OpIdentity:
		return ops[0], nil
	default:
		return nil, evalerr.UnknownOp(t, t.Op.String(), graphir.KnownOpNames())
	}
}

func (e *Evaluator) binary(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 2 {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s expects 2 operands, got %d", t.Op, len(ops)))
	}
	out, err := shape.InferElementwise(ops[0].Shape, ops[1].Shape)
	if err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	return e.Dispatcher.Binary(t, t.Op, ops[0], ops[1], out, t.Name())
}

func (e *Evaluator) unary(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s expects 1 operand, got %d", t.Op, len(ops)))
	}
	return e.Dispatcher.Unary(t, t.Op, ops[0], t.Name())
}

func (e *Evaluator) matmul(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 2 {
		return nil, evalerr.ShapeMismatch(t, "matmul expects 2 operands")
	}
	ta := boolOption(t, "transpose_a")
	tb := boolOption(t, "transpose_b")
	return e.Dispatcher.MatMul(t, ops[0], ops[1], ta, tb, t.Shape(), t.Name())
}

// fillConstant implements zeros/ones: allocate t's own declared shape and
// fill with the constant, entirely host-side (no kernel is involved in
// seeding a constant buffer, spec §4.1).
func (e *Evaluator) fillConstant(t *graphir.Tensor, ones bool) (*buffer.Buffer, error) {
	buf, err := e.Factory.CreateResultBuffer(t.DType(), t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	fillScalar(buf.Host, boolToFloat(ones))
	buf.Dirty = true
	return buf, nil
}

func (e *Evaluator) fillLike(t *graphir.Tensor, ops []*buffer.Buffer, ones bool) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s expects 1 operand", t.Op))
	}
	src := ops[0]
	buf, err := e.Factory.CreateResultBuffer(src.DType, src.Shape, t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	fillScalar(buf.Host, boolToFloat(ones))
	buf.Dirty = true
	return buf, nil
}

// broadcastTransform expands a single operand to t's declared shape using
// the same right-aligned broadcasting rule InferElementwise uses,
// materializing the expansion host-side (spec §4.1, "broadcast_transform
// (host-side expansion, no kernel)").
func (e *Evaluator) broadcastTransform(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, "broadcast_transform expects 1 operand")
	}
	src := ops[0]
	out, err := e.Factory.CreateResultBuffer(src.DType, t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	if err := broadcastCopy(src, out); err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	out.Dirty = true
	return out, nil
}

func (e *Evaluator) broadcastGradientArgs(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 2 {
		return nil, evalerr.ShapeMismatch(t, "broadcast_gradient_args expects 2 operands")
	}
	ax, bx := reduce.BroadcastGradientArgs(ops[0].Shape, ops[1].Shape)
	n := len(ax)
	if len(bx) > n {
		n = len(bx)
	}
	out, err := e.Factory.CreateResultBuffer(dtype.Int32, shape.Make(2, n), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	row := out.Host.([]int32)
	for i := 0; i < n; i++ {
		row[i] = intOrPad(ax, i)
		row[n+i] = intOrPad(bx, i)
	}
	out.Dirty = true
	return out, nil
}

func intOrPad(xs []int, i int) int32 {
	if i < len(xs) {
		return int32(xs[i])
	}
	return -1
}

func (e *Evaluator) shapeOf(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, "shape expects 1 operand")
	}
	dims := ops[0].Shape.Dims
	out, err := e.Factory.CreateResultBuffer(dtype.Int32, shape.Make(len(dims)), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	row := out.Host.([]int32)
	for i, d := range dims {
		row[i] = int32(d)
	}
	out.Dirty = true
	return out, nil
}

// reshape reinterprets a's data under new_shape without moving it: it reads
// new_shape from host, infers a single -1 entry from a's element count
// divided by the product of the known axes, and returns a new Buffer that
// shares a's host array, device memory and last event under the new
// shape. a's own Buffer is not modified and keeps its original Shape.
func (e *Evaluator) reshape(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 2 {
		return nil, evalerr.ShapeMismatch(t, "reshape expects (a, new_shape)")
	}
	src := ops[0]
	dims, err := intsFromBuffer(ops[1])
	if err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	newShape, err := inferReshapeDims(dims, src.Shape.Size())
	if err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	out := &buffer.Buffer{
		Name: t.Name(), DType: src.DType, Shape: newShape,
		Host: src.Host, Mem: src.Mem, LastEvent: src.LastEvent, Dirty: src.Dirty,
	}
	return out, nil
}

// inferReshapeDims resolves at most one -1 entry in dims against total (the
// source's element count), per spec §4.1's reshape contract.
func inferReshapeDims(dims []int, total int) (shape.Shape, error) {
	inferIdx := -1
	product := 1
	for i, d := range dims {
		if d == -1 {
			if inferIdx != -1 {
				return shape.Shape{}, fmt.Errorf("reshape: at most one -1 allowed in new_shape %v", dims)
			}
			inferIdx = i
			continue
		}
		product *= d
	}
	resolved := make([]int, len(dims))
	copy(resolved, dims)
	if inferIdx != -1 {
		if product == 0 || total%product != 0 {
			return shape.Shape{}, fmt.Errorf("reshape: cannot infer -1 axis of new_shape %v for %d elements", dims, total)
		}
		resolved[inferIdx] = total / product
	} else if product != total {
		return shape.Shape{}, fmt.Errorf("reshape: cannot reshape %d elements into shape %v", total, dims)
	}
	return shape.Make(resolved...), nil
}

func (e *Evaluator) flowGroup(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) == 0 {
		return nil, evalerr.ShapeMismatch(t, "flow_group expects at least 1 operand")
	}
	return ops[len(ops)-1], nil
}

func (e *Evaluator) reduction(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s expects 1 operand", t.Op))
	}
	axes := intsOption(t, "axes")
	keepDims := boolOption(t, "keep_dims")
	out := reduce.OutputShape(ops[0].Shape, axes, keepDims)
	if !out.Equal(t.Shape()) {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("declared shape %s does not match reduced shape %s", t.Shape(), out))
	}
	var res *buffer.Buffer
	if t.Op == graphir.OpSum {
		res = reduce.Sum(ops[0], axes, out, keepDims)
	} else {
		res = reduce.Prod(ops[0], axes, out, keepDims)
	}
	buf, err := e.Factory.ConvertToOpenCL(res.Host, out, res.DType, t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	return buf, nil
}

func (e *Evaluator) argExtreme(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s expects 1 operand", t.Op))
	}
	axis := intOption(t, "axis", ops[0].Shape.Rank()-1)
	out, err := e.Factory.CreateResultBuffer(dtype.Int32, t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	if err := argExtremeFill(ops[0], axis, t.Op == graphir.OpArgMax, out); err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	out.Dirty = true
	return out, nil
}

func (e *Evaluator) index(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 1 {
		return nil, evalerr.ShapeMismatch(t, "index expects 1 operand")
	}
	idx := intOption(t, "index", 0)
	out, err := e.Factory.CreateResultBuffer(ops[0].DType, t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	if err := sliceAxis0(ops[0], idx, idx+1, out); err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	out.Dirty = true
	return out, nil
}

// truncate implements spec §4.1's truncate(a, b): if a.shape already
// equals host(b), return a unchanged; otherwise read a to host and take
// the first prod(target_shape) elements, re-uploading under target_shape
// (target_shape being b's host values).
func (e *Evaluator) truncate(t *graphir.Tensor, ops []*buffer.Buffer) (*buffer.Buffer, error) {
	if len(ops) != 2 {
		return nil, evalerr.ShapeMismatch(t, "truncate expects (a, b)")
	}
	a, b := ops[0], ops[1]
	targetDims, err := intsFromBuffer(b)
	if err != nil {
		return nil, evalerr.ShapeMismatch(t, err.Error())
	}
	target := shape.Make(targetDims...)
	if target.Equal(a.Shape) {
		return a, nil
	}

	out, err := e.Factory.CreateResultBuffer(a.DType, target, t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	n := target.Size()
	if n > a.Shape.Size() {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("truncate target %s has more elements than source %s", target, a.Shape))
	}
	for i := 0; i < n; i++ {
		writeAt(out.Host, i, readAt(a.Host, i))
	}
	out.Dirty = true
	return out, nil
}

func (e *Evaluator) runAssign(ctx *session.Context, t *graphir.Tensor) (*buffer.Buffer, error) {
	if len(t.Items) != 2 {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s expects (variable, value)", t.Op))
	}
	v, ok := t.Items[0].(*graphir.Variable)
	if !ok {
		return nil, evalerr.ShapeMismatch(t, fmt.Sprintf("%s target must be a Variable", t.Op))
	}
	value, err := e.run(ctx, t.Items[1])
	if err != nil {
		return nil, err
	}

	switch t.Op {
	case graphir.OpAssign:
		v.Assigned = value
	case graphir.OpAssignAdd:
		cur, err := e.runVariable(ctx, v)
		if err != nil {
			return nil, err
		}
		sum, err := e.Dispatcher.Binary(t, graphir.OpAdd, cur, value, cur.Shape, v.Name())
		if err != nil {
			return nil, err
		}
		v.Assigned = sum
	}
	v.Dirty = true
	return v.Assigned, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func boolOption(t *graphir.Tensor, key string) bool {
	v, ok := t.Options[key].(bool)
	return ok && v
}

func intOption(t *graphir.Tensor, key string, def int) int {
	if v, ok := t.Options[key].(int); ok {
		return v
	}
	return def
}

func intsOption(t *graphir.Tensor, key string) []int {
	if v, ok := t.Options[key].([]int); ok {
		return v
	}
	return nil
}
