package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

func TestSelectVariantSameShape(t *testing.T) {
	a := buffer.New("a", dtype.Float32, shape.Make(2, 3))
	b := buffer.New("b", dtype.Float32, shape.Make(2, 3))

	plan := SelectVariant(a, b, shape.Make(2, 3))
	require.Equal(t, VariantSameShape, plan.Variant)
	require.Equal(t, 0, plan.Switch)
	require.Same(t, a, plan.P)
	require.Same(t, b, plan.Q)
}

func TestSelectVariantScalarSwitchesWhenScalarIsFirstOperand(t *testing.T) {
	scalar := buffer.New("s", dtype.Float32, shape.Scalar())
	arr := buffer.New("arr", dtype.Float32, shape.Make(4))

	plan := SelectVariant(scalar, arr, shape.Make(4))
	require.Equal(t, VariantScalar, plan.Variant)
	require.Equal(t, 1, plan.Switch)
	require.Same(t, arr, plan.P)
	require.Same(t, scalar, plan.Q)
}

func TestSelectVariantScalarNoSwitchWhenScalarIsSecondOperand(t *testing.T) {
	arr := buffer.New("arr", dtype.Float32, shape.Make(4))
	scalar := buffer.New("s", dtype.Float32, shape.Scalar())

	plan := SelectVariant(arr, scalar, shape.Make(4))
	require.Equal(t, VariantScalar, plan.Variant)
	require.Equal(t, 0, plan.Switch)
	require.Same(t, arr, plan.P)
	require.Same(t, scalar, plan.Q)
}

func TestSelectVariantBroadcastUsesIndependentDims(t *testing.T) {
	a := buffer.New("a", dtype.Float32, shape.Make(2, 1))
	b := buffer.New("b", dtype.Float32, shape.Make(1, 3))

	plan := SelectVariant(a, b, shape.Make(2, 3))
	require.Equal(t, VariantBroadcast, plan.Variant)
	require.Equal(t, 2, plan.M)
	require.Equal(t, 3, plan.N)
	require.Equal(t, 2, plan.M1)
	require.Equal(t, 1, plan.N1)
	require.Equal(t, 1, plan.M2)
	require.Equal(t, 3, plan.N2)
}

func TestEntryNameFormat(t *testing.T) {
	p := Plan{Variant: VariantScalar}
	require.Equal(t, "add_c_fp", p.EntryName("add", "fp"))
}
