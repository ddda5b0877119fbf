package eval

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/metrics"
	"github.com/tensorwave/oclgraph/session"
	"github.com/tensorwave/oclgraph/shape"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *session.Cache) {
	t.Helper()
	cache := session.New("", metrics.New(prometheus.NewRegistry()))
	return New(cache), cache
}

func TestRunAddsTwoConstants(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(2), []float32{1, 2})
	b := graphir.NewConst("b", dtype.Float32, shape.Make(2), []float32{10, 20})
	sum := graphir.NewOp("sum", graphir.OpAdd, dtype.Float32, shape.Make(2), a, b)

	buf, err := e.Run(ctx, sum)
	require.NoError(t, err)
	require.Equal(t, []float32{11, 22}, buf.Host)
}

func TestRunMemoizesWithinOneRun(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(2), []float32{1, 2})
	doubled := graphir.NewOp("doubled", graphir.OpAdd, dtype.Float32, shape.Make(2), a, a)

	buf, err := e.Run(ctx, doubled)
	require.NoError(t, err)
	require.Equal(t, []float32{2, 4}, buf.Host)

	memo, ok := ctx.Memoized("doubled")
	require.True(t, ok)
	require.Same(t, buf, memo)
}

func TestRunPlaceholderRequiresFeed(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	p := graphir.NewPlaceholder("x", dtype.Float32, shape.Make(2))
	_, err := e.Run(ctx, p)
	require.Error(t, err)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindMissingPlaceholderFeed, execErr.Kind)
}

func TestRunPlaceholderUsesFeed(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)
	ctx.Feed["x"] = []float32{3, 4}

	p := graphir.NewPlaceholder("x", dtype.Float32, shape.Make(2))
	square := graphir.NewOp("square", graphir.OpSquare, dtype.Float32, shape.Make(2), p)

	buf, err := e.Run(ctx, square)
	require.NoError(t, err)
	require.Equal(t, []float32{9, 16}, buf.Host)
}

func TestRunUninitializedVariableFails(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	v := graphir.NewVariable("v", dtype.Float32, shape.Make(2), nil)
	_, err := e.Run(ctx, v)
	require.Error(t, err)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindUninitializedVariable, execErr.Kind)
}

func TestAssignThenReadVariable(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	v := graphir.NewVariable("v", dtype.Float32, shape.Make(2), nil)
	init := graphir.NewConst("init", dtype.Float32, shape.Make(2), []float32{1, 1})
	assign := graphir.NewOp("assign", graphir.OpAssign, dtype.Float32, shape.Make(2), v, init)

	buf, err := e.Run(ctx, assign)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1}, buf.Host)
	require.True(t, v.Dirty)

	delta := graphir.NewConst("delta", dtype.Float32, shape.Make(2), []float32{1, 2})
	assignAdd := graphir.NewOp("assign_add", graphir.OpAssignAdd, dtype.Float32, shape.Make(2), v, delta)
	ctx2 := session.NewContext(cache)
	buf2, err := e.Run(ctx2, assignAdd)
	require.NoError(t, err)
	require.Equal(t, []float32{2, 3}, buf2.Host)
}

func TestMatMulTwoByThreeTimesThreeByOne(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(2, 3), []float32{1, 2, 3, 4, 5, 6})
	b := graphir.NewConst("b", dtype.Float32, shape.Make(3, 1), []float32{1, 0, 0})
	mm := graphir.NewOp("mm", graphir.OpMatMul, dtype.Float32, shape.Make(2, 1), a, b)

	buf, err := e.Run(ctx, mm)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 4}, buf.Host)
}

func TestMatMulRejectsMismatchedTransposedInnerDim(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(2, 3), []float32{1, 2, 3, 4, 5, 6})
	b := graphir.NewConst("b", dtype.Float32, shape.Make(3, 1), []float32{1, 0, 0})
	mm := graphir.NewOp("mm", graphir.OpMatMul, dtype.Float32, shape.Make(3, 1), a, b).
		WithOption("transpose_a", true)

	_, err := e.Run(ctx, mm)
	require.Error(t, err)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindShapeMismatch, execErr.Kind)
}

func TestMatMulRejectsRankLessThan2(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(2), []float32{1, 2})
	b := graphir.NewConst("b", dtype.Float32, shape.Make(2), []float32{1, 2})
	mm := graphir.NewOp("mm", graphir.OpMatMul, dtype.Float32, shape.Scalar(), a, b)

	_, err := e.Run(ctx, mm)
	require.Error(t, err)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindRankError, execErr.Kind)
}

func TestReshapeInfersNegativeOneAxis(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Int32, shape.Make(6), []int32{1, 2, 3, 4, 5, 6})
	newShape := graphir.NewConst("new_shape", dtype.Int32, shape.Make(2), []int32{-1, 2})
	reshaped := graphir.NewOp("reshaped", graphir.OpReshape, dtype.Int32, shape.Make(3, 2), a, newShape)

	buf, err := e.Run(ctx, reshaped)
	require.NoError(t, err)
	require.Equal(t, shape.Make(3, 2), buf.Shape)
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6}, buf.Host)
}

func TestReshapeRejectsIncompatibleElementCount(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Int32, shape.Make(6), []int32{1, 2, 3, 4, 5, 6})
	newShape := graphir.NewConst("new_shape", dtype.Int32, shape.Make(2), []int32{4, 2})
	reshaped := graphir.NewOp("reshaped", graphir.OpReshape, dtype.Int32, shape.Make(4, 2), a, newShape)

	_, err := e.Run(ctx, reshaped)
	require.Error(t, err)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindShapeMismatch, execErr.Kind)
}

func TestTruncateTakesFirstProdTargetShapeElements(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(4), []float32{1, 2, 3, 4})
	target := graphir.NewConst("target", dtype.Int32, shape.Make(1), []int32{2})
	truncated := graphir.NewOp("truncated", graphir.OpTruncate, dtype.Float32, shape.Make(2), a, target)

	buf, err := e.Run(ctx, truncated)
	require.NoError(t, err)
	require.Equal(t, shape.Make(2), buf.Shape)
	require.Equal(t, []float32{1, 2}, buf.Host)
}

func TestTruncateReturnsInputUnchangedWhenShapeAlreadyMatches(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	a := graphir.NewConst("a", dtype.Float32, shape.Make(2), []float32{1, 2})
	target := graphir.NewConst("target", dtype.Int32, shape.Make(1), []int32{2})
	truncated := graphir.NewOp("truncated", graphir.OpTruncate, dtype.Float32, shape.Make(2), a, target)

	buf, err := e.Run(ctx, truncated)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, buf.Host)
}

func TestUnknownOpRaisesExecutionError(t *testing.T) {
	e, cache := newTestEvaluator(t)
	ctx := session.NewContext(cache)

	bogus := graphir.NewOp("bogus", graphir.Op(9999), dtype.Float32, shape.Scalar())
	_, err := e.Run(ctx, bogus)
	require.Error(t, err)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindUnknownOp, execErr.Kind)
}
