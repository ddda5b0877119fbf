// Package evalerr defines the Error Envelope (spec §7): a single
// exported error type carrying the failure taxonomy kind, the node
// identity the failure occurred at, and the underlying cause, wrapped
// with github.com/pkg/errors the way the teacher pack wraps backend
// failures (gomlx/backends/simplego error paths, kllama's request
// handlers) instead of returning bare fmt.Errorf chains.
package evalerr

import (
	"fmt"

	"github.com/agnivade/levenshtein"
	"github.com/pkg/errors"

	"github.com/tensorwave/oclgraph/graphir"
)

// Kind is the closed taxonomy of evaluator failures from spec §7.
type Kind int

const (
	_ Kind = iota
	KindUnknownOp
	KindShapeMismatch
	KindRankError
	KindUnsupportedDtype
	KindUninitializedVariable
	KindMissingPlaceholderFeed
	KindKernelBuildFailure
	KindDeviceError
)

func (k Kind) String() string {
	switch k {
	case KindUnknownOp:
		return "UnknownOp"
	case KindShapeMismatch:
		return "ShapeMismatch"
	case KindRankError:
		return "RankError"
	case KindUnsupportedDtype:
		return "UnsupportedDtype"
	case KindUninitializedVariable:
		return "UninitializedVariable"
	case KindMissingPlaceholderFeed:
		return "MissingPlaceholderFeed"
	case KindKernelBuildFailure:
		return "KernelBuildFailure"
	case KindDeviceError:
		return "DeviceError"
	default:
		return "Unknown"
	}
}

// ExecutionError is the one error type the evaluator core ever returns to
// its caller (spec §7, "a single error envelope wrapping a closed
// taxonomy of failure kinds, not an open exception hierarchy").
type ExecutionError struct {
	Kind       Kind
	NodeName   string
	NodeSource string
	Cause      error
}

func (e *ExecutionError) Error() string {
	if e.NodeSource != "" {
		return fmt.Sprintf("%s: node %q (%s): %v", e.Kind, e.NodeName, e.NodeSource, e.Cause)
	}
	return fmt.Sprintf("%s: node %q: %v", e.Kind, e.NodeName, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// Wrap builds an ExecutionError for node, attaching node's Source() as
// provenance and wrapping cause with errors.WithStack so a caller logging
// with klog's error verbosity still gets a trace to the raise site.
func Wrap(kind Kind, node graphir.Node, cause error) *ExecutionError {
	name, source := "", ""
	if node != nil {
		name, source = node.Name(), node.Source()
	}
	return &ExecutionError{
		Kind:       kind,
		NodeName:   name,
		NodeSource: source,
		Cause:      errors.WithStack(cause),
	}
}

// UnknownOp builds the UnknownOp variant, suggesting the closest known op
// name by Levenshtein distance the way a CLI flag parser suggests
// "did you mean" (agnivade/levenshtein, used here exactly as
// fxnlabs-function-node's retrieval-pack sibling projects use small
// focused string-distance libraries for typo suggestions).
func UnknownOp(node graphir.Node, tag string, known []string) *ExecutionError {
	best, bestDist := "", -1
	for _, name := range known {
		d := levenshtein.ComputeDistance(tag, name)
		if bestDist == -1 || d < bestDist {
			best, bestDist = name, d
		}
	}
	cause := fmt.Errorf("unknown op tag %q", tag)
	if best != "" && bestDist <= 3 {
		cause = fmt.Errorf("unknown op tag %q (did you mean %q?)", tag, best)
	}
	return Wrap(KindUnknownOp, node, cause)
}

// ShapeMismatch builds the ShapeMismatch variant.
func ShapeMismatch(node graphir.Node, detail string) *ExecutionError {
	return Wrap(KindShapeMismatch, node, fmt.Errorf("shape mismatch: %s", detail))
}

// RankError builds the RankError variant: a matmul operand with rank < 2,
// or a broadcast variant with rank > 2 (spec §7).
func RankError(node graphir.Node, detail string) *ExecutionError {
	return Wrap(KindRankError, node, fmt.Errorf("rank error: %s", detail))
}

// UnsupportedDtype builds the UnsupportedDtype variant: an allocation was
// requested for a dtype outside {fp32, int32, bool} (spec §7).
func UnsupportedDtype(node graphir.Node, detail string) *ExecutionError {
	return Wrap(KindUnsupportedDtype, node, fmt.Errorf("unsupported dtype: %s", detail))
}

// UninitializedVariable builds the UninitializedVariable variant.
func UninitializedVariable(node graphir.Node) *ExecutionError {
	return Wrap(KindUninitializedVariable, node, fmt.Errorf("read before any assign"))
}

// MissingPlaceholderFeed builds the MissingPlaceholderFeed variant.
func MissingPlaceholderFeed(node graphir.Node) *ExecutionError {
	return Wrap(KindMissingPlaceholderFeed, node, fmt.Errorf("no value supplied in feed map"))
}

// KernelBuildFailure builds the KernelBuildFailure variant, carrying the
// device's build log as the cause.
func KernelBuildFailure(node graphir.Node, cause error) *ExecutionError {
	return Wrap(KindKernelBuildFailure, node, cause)
}

// DeviceError builds the catch-all DeviceError variant for any other
// failure the device/queue layer raises.
func DeviceError(node graphir.Node, cause error) *ExecutionError {
	return Wrap(KindDeviceError, node, cause)
}
