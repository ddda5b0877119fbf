// Package eval implements the Evaluator Core (spec §4.1/§4.8): the
// memoized, recursive graph walker that turns a graphir.Node into a
// materialized buffer.Buffer, dispatching each Tensor's Op to a kernel or
// a host-side computation as appropriate.
package eval

import (
	"k8s.io/klog/v2"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/dispatch"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/kernelreg"
	"github.com/tensorwave/oclgraph/randomizer"
	"github.com/tensorwave/oclgraph/session"
)

// Evaluator bundles every collaborator the walker needs: the Buffer
// Factory, the Kernel Dispatcher (which itself wraps the Kernel Registry
// and Type Coercer), and the Randomizer, all bound to one session.
type Evaluator struct {
	Cache      *session.Cache
	Factory    *buffer.Factory
	Dispatcher *dispatch.Dispatcher
	Randomizer *randomizer.Randomizer
}

// New constructs an Evaluator bound to a fresh or existing SessionCache.
func New(cache *session.Cache) *Evaluator {
	factory := cache.Factory()
	reg := kernelreg.New(cache)
	coercer := &dispatch.Coercer{Registry: reg, Factory: factory, Queue: cache.Queue}
	return &Evaluator{
		Cache:   cache,
		Factory: factory,
		Dispatcher: &dispatch.Dispatcher{
			Registry: reg,
			Factory:  factory,
			Queue:    cache.Queue,
			Coercer:  coercer,
			Metrics:  cache.Metrics,
		},
		Randomizer: &randomizer.Randomizer{Cache: cache},
	}
}

// Run evaluates node to a materialized buffer within ctx, memoizing by
// node identity and recording compute_history as it goes (spec §3/§4.1).
// It is the package's one public entry point; everything else is a
// recursive helper `_run` would call.
func (e *Evaluator) Run(ctx *session.Context, node graphir.Node) (*buffer.Buffer, error) {
	buf, err := e.run(ctx, node)
	if err != nil {
		return nil, err
	}
	e.Cache.Queue.Finish()
	return buf, nil
}

func (e *Evaluator) run(ctx *session.Context, node graphir.Node) (*buffer.Buffer, error) {
	if node == nil {
		return nil, nil
	}

	if buf, ok := ctx.Memoized(node.Name()); ok {
		return buf, nil
	}

	var buf *buffer.Buffer
	var err error

	switch n := node.(type) {
	case *graphir.Thunk:
		buf, err = e.run(ctx, n.Produce())
	case *graphir.Placeholder:
		buf, err = e.runPlaceholder(ctx, n)
	case *graphir.Variable:
		buf, err = e.runVariable(ctx, n)
	case *graphir.Tensor:
		buf, err = e.runTensor(ctx, n)
	default:
		return nil, evalerr.Wrap(evalerr.KindDeviceError, node, errUnknownNodeKind(node))
	}
	if err != nil {
		return nil, err
	}

	ctx.Memoize(node.Name(), buf)
	ctx.RecordHistory(node.Name(), nodeOpLabel(node), buf.Shape.String())
	klog.V(2).Infof("eval: %s(%s) -> shape %s dtype %s", nodeOpLabel(node), node.Name(), buf.Shape, buf.DType)
	return buf, nil
}

func nodeOpLabel(node graphir.Node) string {
	if t, ok := node.(*graphir.Tensor); ok {
		if t.IsConst {
			return "const"
		}
		return t.Op.String()
	}
	switch node.(type) {
	case *graphir.Variable:
		return "variable"
	case *graphir.Placeholder:
		return "placeholder"
	case *graphir.Thunk:
		return "thunk"
	default:
		return "unknown"
	}
}

func (e *Evaluator) runPlaceholder(ctx *session.Context, p *graphir.Placeholder) (*buffer.Buffer, error) {
	value, ok := ctx.Feed[p.Name()]
	if !ok {
		return nil, evalerr.MissingPlaceholderFeed(p)
	}
	buf, err := e.Factory.ConvertToOpenCL(value, p.Shape(), p.DType(), p.Name())
	if err != nil {
		return nil, evalerr.DeviceError(p, err)
	}
	return buf, nil
}

func (e *Evaluator) runVariable(ctx *session.Context, v *graphir.Variable) (*buffer.Buffer, error) {
	if v.Assigned != nil {
		return v.Assigned, nil
	}
	if v.Init == nil {
		return nil, evalerr.UninitializedVariable(v)
	}
	initBuf, err := e.run(ctx, v.Init)
	if err != nil {
		return nil, err
	}
	v.Assigned = initBuf
	v.Dirty = true
	return v.Assigned, nil
}

func (e *Evaluator) runTensor(ctx *session.Context, t *graphir.Tensor) (*buffer.Buffer, error) {
	if t.IsConst {
		buf, err := e.Factory.ConvertToOpenCL(t.Value, t.Shape(), t.DType(), t.Name())
		if err != nil {
			return nil, evalerr.DeviceError(t, err)
		}
		return buf, nil
	}

	if _, known := graphir.ParseOp(t.Op.String()); !known {
		return nil, evalerr.UnknownOp(t, t.Op.String(), graphir.KnownOpNames())
	}

	if t.Op == graphir.OpAssign || t.Op == graphir.OpAssignAdd {
		return e.runAssign(ctx, t)
	}

	operands := make([]*buffer.Buffer, len(t.Items))
	for i, item := range t.Items {
		buf, err := e.run(ctx, item)
		if err != nil {
			return nil, err
		}
		operands[i] = buf
	}

	if !t.Op.IsElementwiseBinary() && !t.Op.IsElementwiseUnary() && t.Op != graphir.OpMatMul {
		// Host-side ops read operand host arrays directly, so every pending
		// write or kernel producing an operand must finish first.
		for _, o := range operands {
			if err := o.LastEvent.Wait(); err != nil {
				return nil, evalerr.DeviceError(t, err)
			}
		}
	}

	result, err := e.dispatchOp(ctx, t, operands)
	if err != nil {
		return nil, err
	}

	if t.Breakpoint != nil {
		inputs := make([]any, len(operands))
		for i, o := range operands {
			if err := o.LastEvent.Wait(); err != nil {
				return nil, evalerr.DeviceError(t, err)
			}
			inputs[i] = o.Host
		}
		if err := result.LastEvent.Wait(); err != nil {
			return nil, evalerr.DeviceError(t, err)
		}
		t.Breakpoint(t, inputs, result.Host)
	}
	return result, nil
}

type unknownNodeKindError struct{ name string }

func (e *unknownNodeKindError) Error() string { return "eval: unknown node kind for " + e.name }

func errUnknownNodeKind(node graphir.Node) error {
	return &unknownNodeKindError{name: node.Name()}
}
