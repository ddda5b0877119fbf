package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/device/software"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/kernelreg"
	"github.com/tensorwave/oclgraph/metrics"
	"github.com/tensorwave/oclgraph/shape"
)

type directCache struct{ dev device.Device }

func (c directCache) Program(opName string) (*device.Program, error) { return c.dev.Compile(opName) }

func newDispatcher(t *testing.T) (*Dispatcher, *buffer.Factory) {
	t.Helper()
	dev := software.New("")
	q := dev.NewQueue()
	reg := kernelreg.New(directCache{dev})
	factory := &buffer.Factory{Device: dev, Queue: q, Cache: newTestCache()}
	m := metrics.New(prometheus.NewRegistry())
	return &Dispatcher{
		Registry: reg,
		Factory:  factory,
		Queue:    q,
		Coercer:  &Coercer{Registry: reg, Factory: factory, Queue: q},
		Metrics:  m,
	}, factory
}

type testCache struct{ m map[any]*buffer.Buffer }

func newTestCache() *testCache                                 { return &testCache{m: map[any]*buffer.Buffer{}} }
func (c *testCache) GetBuffer(key any) (*buffer.Buffer, bool)  { b, ok := c.m[key]; return b, ok }
func (c *testCache) PutBuffer(key any, buf *buffer.Buffer)     { c.m[key] = buf }

func TestDispatcherBinaryAddSameShape(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("sum", graphir.OpAdd, dtype.Float32, shape.Make(2))

	a, err := factory.ConvertToOpenCL([]float32{1, 2}, shape.Make(2), dtype.Float32, "a")
	require.NoError(t, err)
	b, err := factory.ConvertToOpenCL([]float32{10, 20}, shape.Make(2), dtype.Float32, "b")
	require.NoError(t, err)

	out, err := d.Binary(node, graphir.OpAdd, a, b, shape.Make(2), "sum")
	require.NoError(t, err)
	require.NoError(t, out.LastEvent.Wait())
	require.Equal(t, []float32{11, 22}, out.Host)
}

func TestDispatcherBinaryCoercesIntToFloat(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("sum", graphir.OpAdd, dtype.Float32, shape.Make(2))

	a, err := factory.ConvertToOpenCL([]float32{1.5, 2.5}, shape.Make(2), dtype.Float32, "a")
	require.NoError(t, err)
	b, err := factory.ConvertToOpenCL([]int32{1, 2}, shape.Make(2), dtype.Int32, "b")
	require.NoError(t, err)

	out, err := d.Binary(node, graphir.OpAdd, a, b, shape.Make(2), "sum")
	require.NoError(t, err)
	require.NoError(t, out.LastEvent.Wait())
	require.Equal(t, dtype.Float32, out.DType)
	require.Equal(t, []float32{2.5, 4.5}, out.Host)
}

func TestDispatcherBinaryNarrowsFloatIntoIntWhenFirstOperandIsInt(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("sum", graphir.OpAdd, dtype.Int32, shape.Make(2))

	a, err := factory.ConvertToOpenCL([]int32{1, 2}, shape.Make(2), dtype.Int32, "a")
	require.NoError(t, err)
	b, err := factory.ConvertToOpenCL([]float32{1.5, 2.5}, shape.Make(2), dtype.Float32, "b")
	require.NoError(t, err)

	out, err := d.Binary(node, graphir.OpAdd, a, b, shape.Make(2), "sum")
	require.NoError(t, err)
	require.NoError(t, out.LastEvent.Wait())
	require.Equal(t, dtype.Int32, out.DType)
	require.Equal(t, []int32{2, 4}, out.Host)
}

func TestDispatcherUnaryNegate(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("neg", graphir.OpNegate, dtype.Float32, shape.Make(2))

	a, err := factory.ConvertToOpenCL([]float32{1, -2}, shape.Make(2), dtype.Float32, "a")
	require.NoError(t, err)

	out, err := d.Unary(node, graphir.OpNegate, a, "neg")
	require.NoError(t, err)
	require.NoError(t, out.LastEvent.Wait())
	require.Equal(t, []float32{-1, 2}, out.Host)
}

func TestDispatcherMatMul(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("mm", graphir.OpMatMul, dtype.Float32, shape.Make(2, 1))

	a, err := factory.ConvertToOpenCL([]float32{1, 2, 3, 4, 5, 6}, shape.Make(2, 3), dtype.Float32, "a")
	require.NoError(t, err)
	b, err := factory.ConvertToOpenCL([]float32{1, 0, 0}, shape.Make(3, 1), dtype.Float32, "b")
	require.NoError(t, err)

	out, err := d.MatMul(node, a, b, false, false, shape.Make(2, 1), "mm")
	require.NoError(t, err)
	require.NoError(t, out.LastEvent.Wait())
	require.Equal(t, []float32{1, 4}, out.Host)
}

func TestDispatcherMatMulRejectsRankLessThan2(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("mm", graphir.OpMatMul, dtype.Float32, shape.Scalar())

	a, err := factory.ConvertToOpenCL([]float32{1, 2}, shape.Make(2), dtype.Float32, "a")
	require.NoError(t, err)
	b, err := factory.ConvertToOpenCL([]float32{1, 2}, shape.Make(2), dtype.Float32, "b")
	require.NoError(t, err)

	_, err = d.MatMul(node, a, b, false, false, shape.Scalar(), "mm")
	require.Error(t, err)
	execErr, ok := err.(*evalerr.ExecutionError)
	require.True(t, ok)
	require.Equal(t, evalerr.KindRankError, execErr.Kind)
}

func TestDispatcherMatMulRejectsMismatchedInnerDimAfterTranspose(t *testing.T) {
	d, factory := newDispatcher(t)
	node := graphir.NewOp("mm", graphir.OpMatMul, dtype.Float32, shape.Make(3, 1))

	a, err := factory.ConvertToOpenCL([]float32{1, 2, 3, 4, 5, 6}, shape.Make(2, 3), dtype.Float32, "a")
	require.NoError(t, err)
	b, err := factory.ConvertToOpenCL([]float32{1, 2, 3}, shape.Make(3, 1), dtype.Float32, "b")
	require.NoError(t, err)

	_, err = d.MatMul(node, a, b, true, false, shape.Make(3, 1), "mm")
	require.Error(t, err)
	execErr, ok := err.(*evalerr.ExecutionError)
	require.True(t, ok)
	require.Equal(t, evalerr.KindShapeMismatch, execErr.Kind)
}
