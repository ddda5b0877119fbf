package evalerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/shape"
)

func TestUnknownOpSuggestsClosestName(t *testing.T) {
	node := graphir.NewOp("n0", graphir.OpInvalid, dtype.Float32, shape.Scalar())
	err := UnknownOp(node, "addd", graphir.KnownOpNames())
	require.Contains(t, err.Error(), `did you mean "add"`)
	require.Equal(t, KindUnknownOp, err.Kind)
}

func TestExecutionErrorUnwraps(t *testing.T) {
	node := graphir.NewOp("n1", graphir.OpAdd, dtype.Float32, shape.Scalar())
	sentinel := errors.New("boom")
	err := DeviceError(node, sentinel)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, "n1", err.NodeName)
}
