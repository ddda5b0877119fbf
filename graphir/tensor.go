// Package graphir defines the graph-node data model the evaluator core
// consumes: Tensor, Variable and Placeholder. spec.md places the graph
// construction DSL, autodiff, and the Session façade out of scope as
// external collaborators — but the node shapes those collaborators would
// hand the evaluator still need a concrete Go representation for the core
// to walk, so this package holds exactly that: the read-only contract
// (plus, for Variable, the one mutable "assigned buffer" slot the
// evaluator is allowed to write back to), and nothing about how a graph
// gets built.
package graphir

import (
	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

// Node is the common interface satisfied by Tensor, Variable and
// Placeholder — the three node kinds the evaluator's walker dispatches on
// (spec §4.1).
type Node interface {
	// Name is the node's unique identity within a graph; it is the key
	// used for memoization in the Execution Context and for buffer
	// caching in the SessionCache.
	Name() string
	DType() dtype.DType
	Shape() shape.Shape
	// Source is free-form provenance (e.g. a file:line the node was
	// constructed at), carried into the Error Envelope on failure.
	Source() string
	// Description is a human label for compute_history entries; empty if
	// the node carries none.
	Description() string
	isNode()
}

// Graph carries the process-wide seed used by the deterministic
// randomizer selection rule (spec §4.6). It is intentionally the only
// piece of "graph" state the evaluator core needs — everything else about
// graph construction is out of scope.
type Graph struct {
	id   string
	Seed *int64
}

// NewGraph creates a Graph identity used to key session-scoped random
// generators (rule 2 in spec §4.6).
func NewGraph(id string, seed *int64) *Graph {
	return &Graph{id: id, Seed: seed}
}

// ID returns the graph's identity, used as the randomizer cache key.
func (g *Graph) ID() string {
	if g == nil {
		return ""
	}
	return g.id
}

// Tensor is an immutable graph node: an operation application (or a
// constant, when Op is OpInvalid and Value is set) over an ordered list of
// input nodes, plus its attribute map.
type Tensor struct {
	name        string
	Op          Op
	Items       []Node
	Options     map[string]any
	dtype       dtype.DType
	shape       shape.Shape
	source      string
	description string

	// IsConst marks a Tensor with no Op (a leaf literal); its buffer is
	// cached in the SessionCache by (name, shape) and reused by every
	// ExecutionContext, with Value written into it again each time it is
	// requested, per spec §4.1 ("Tensor (constant)").
	IsConst bool
	Value   any

	// Graph is the owning graph, used for the randomizer seed rule.
	Graph *Graph

	// Breakpoint, if set, is invoked with the fully host-materialized
	// inputs and result once this node has been computed (spec §4.1).
	Breakpoint func(node *Tensor, inputs []any, result any)
}

func (t *Tensor) Name() string          { return t.name }
func (t *Tensor) DType() dtype.DType    { return t.dtype }
func (t *Tensor) Shape() shape.Shape    { return t.shape }
func (t *Tensor) Source() string        { return t.source }
func (t *Tensor) Description() string   { return t.description }
func (t *Tensor) SetDescription(d string) { t.description = d }
func (*Tensor) isNode()                 {}

// NewOp constructs an operation-application Tensor node.
func NewOp(name string, op Op, dt dtype.DType, sh shape.Shape, items ...Node) *Tensor {
	return &Tensor{name: name, Op: op, dtype: dt, shape: sh, Items: items, Options: map[string]any{}}
}

// NewConst constructs a constant leaf Tensor node carrying a host value.
func NewConst(name string, dt dtype.DType, sh shape.Shape, value any) *Tensor {
	return &Tensor{name: name, dtype: dt, shape: sh, Value: value, IsConst: true, Options: map[string]any{}}
}

// WithOption sets an attribute and returns the receiver, for fluent
// construction in tests and the demo CLI.
func (t *Tensor) WithOption(key string, value any) *Tensor {
	t.Options[key] = value
	return t
}

// Variable is a named tensor with an optional initial value and a mutable
// "assigned" buffer slot. The evaluator materializes Assigned on first use
// and overwrites it on assign/assign_add; it persists across Run calls
// through the session-scoped cache (spec §3, "Variable (external)").
type Variable struct {
	name        string
	dtype       dtype.DType
	shape       shape.Shape
	source      string
	description string

	// Init is the node evaluated to produce the variable's initial value
	// on first materialization; nil means "no initial value" (reading
	// before any assign raises UninitializedVariable).
	Init Node

	// Assigned is the variable's device-resident value. It starts nil and
	// is populated by the evaluator on first materialization or first
	// assign. Dirty mirrors the Device Buffer's dirty flag once populated.
	Assigned *buffer.Buffer
	Dirty    bool
}

func NewVariable(name string, dt dtype.DType, sh shape.Shape, init Node) *Variable {
	return &Variable{name: name, dtype: dt, shape: sh, Init: init}
}

func (v *Variable) Name() string        { return v.name }
func (v *Variable) DType() dtype.DType  { return v.dtype }
func (v *Variable) Shape() shape.Shape  { return v.shape }
func (v *Variable) Source() string      { return v.source }
func (v *Variable) Description() string { return v.description }
func (*Variable) isNode()               {}

// Placeholder is a named tensor whose value is supplied per Run via the
// feed map (spec §3, "Placeholder (external)").
type Placeholder struct {
	name        string
	dtype       dtype.DType
	shape       shape.Shape
	source      string
	description string
}

func NewPlaceholder(name string, dt dtype.DType, sh shape.Shape) *Placeholder {
	return &Placeholder{name: name, dtype: dt, shape: sh}
}

func (p *Placeholder) Name() string        { return p.name }
func (p *Placeholder) DType() dtype.DType  { return p.dtype }
func (p *Placeholder) Shape() shape.Shape  { return p.shape }
func (p *Placeholder) Source() string      { return p.source }
func (p *Placeholder) Description() string { return p.description }
func (*Placeholder) isNode()               {}

// Thunk is a zero-argument producer node: the evaluator invokes Produce at
// most once and recurses on its result (spec §4.1, "If node is a thunk").
type Thunk struct {
	name    string
	Produce func() Node
}

func NewThunk(name string, produce func() Node) *Thunk {
	return &Thunk{name: name, Produce: produce}
}

func (t *Thunk) Name() string        { return t.name }
func (t *Thunk) DType() dtype.DType  { return dtype.Invalid }
func (t *Thunk) Shape() shape.Shape  { return shape.Scalar() }
func (t *Thunk) Source() string      { return "" }
func (t *Thunk) Description() string { return "" }
func (*Thunk) isNode()               {}
