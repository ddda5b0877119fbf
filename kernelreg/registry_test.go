package kernelreg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/shape"
)

type fakeCache struct {
	programs map[string]*device.Program
}

func (f *fakeCache) Program(opName string) (*device.Program, error) {
	if prog, ok := f.programs[opName]; ok {
		return prog, nil
	}
	return nil, &device.BuildFailure{Op: opName, Log: "no such program"}
}

func TestResolveReturnsBuildFailureAsKernelBuildFailure(t *testing.T) {
	reg := New(&fakeCache{programs: map[string]*device.Program{}})
	node := graphir.NewOp("n0", graphir.OpAdd, dtype.Float32, shape.Scalar())

	_, err := reg.Resolve(node, graphir.OpAdd)
	var execErr *evalerr.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, evalerr.KindKernelBuildFailure, execErr.Kind)
}

func TestResolveSucceedsOnCachedProgram(t *testing.T) {
	prog := &device.Program{Op: "add", Entries: map[string]device.KernelFunc{}}
	reg := New(&fakeCache{programs: map[string]*device.Program{"add": prog}})
	node := graphir.NewOp("n0", graphir.OpAdd, dtype.Float32, shape.Scalar())

	got, err := reg.Resolve(node, graphir.OpAdd)
	require.NoError(t, err)
	require.Same(t, prog, got)
}
