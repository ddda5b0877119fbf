package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

func TestCoerceDTypeAlwaysPicksFirstOperand(t *testing.T) {
	require.Equal(t, dtype.Int32, CoerceDType(dtype.Int32, dtype.Float32))
	require.Equal(t, dtype.Float32, CoerceDType(dtype.Float32, dtype.Int32))
	require.Equal(t, dtype.Bool, CoerceDType(dtype.Bool, dtype.Int32))
}

func TestCoercePassesThroughUnsupportedPairUnchanged(t *testing.T) {
	_, factory := newDispatcher(t)
	buf, err := factory.ConvertToOpenCL([]int32{1, 0}, shape.Make(2), dtype.Int32, "flags")
	require.NoError(t, err)

	c := &Coercer{Registry: nil, Factory: factory, Queue: nil}
	out, err := c.Coerce(nil, buf, dtype.Bool)
	require.NoError(t, err)
	require.Same(t, buf, out)
	require.Equal(t, dtype.Int32, out.DType)
}
