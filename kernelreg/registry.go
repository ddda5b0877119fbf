// Package kernelreg is the Kernel Registry of spec §4.2: a thin,
// error-enriching façade in front of session.Cache's program cache,
// turning a raw device.BuildFailure into the evaluator's
// evalerr.ExecutionError taxonomy and offering op-name suggestions on a
// lookup for a tag the graph IR doesn't recognize.
package kernelreg

import (
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
)

// Registry resolves an Op to its compiled device.Program, lazily
// compiling and caching through the SessionCache it wraps.
type Registry struct {
	programs programCache
}

// programCache is the subset of session.Cache the registry needs,
// declared locally to avoid kernelreg importing session (which would
// create a cycle once session starts depending on dispatch/kernelreg for
// higher-level orchestration helpers).
type programCache interface {
	Program(opName string) (*device.Program, error)
}

// New wraps a SessionCache (or any type satisfying programCache, e.g. a
// test double) as a Registry.
func New(cache programCache) *Registry {
	return &Registry{programs: cache}
}

// Resolve looks up the compiled program for node's operation, returning
// an evalerr.ExecutionError (KindUnknownOp, KindKernelBuildFailure or
// KindDeviceError) on any failure.
func (r *Registry) Resolve(node graphir.Node, op graphir.Op) (*device.Program, error) {
	if op == graphir.OpInvalid {
		return nil, evalerr.UnknownOp(node, "", graphir.KnownOpNames())
	}
	return r.ResolveByName(node, op.String())
}

// ResolveByName looks up the compiled program by its raw op-tag name,
// bypassing the graphir.Op enum. Used for kernels that aren't graph ops
// in their own right, such as the type-coercion cast kernels (spec
// §4.5), which have no corresponding entry in graphir's closed op set.
func (r *Registry) ResolveByName(node graphir.Node, opName string) (*device.Program, error) {
	prog, err := r.programs.Program(opName)
	if err != nil {
		if _, ok := err.(*device.BuildFailure); ok {
			return nil, evalerr.KernelBuildFailure(node, err)
		}
		return nil, evalerr.DeviceError(node, err)
	}
	return prog, nil
}
