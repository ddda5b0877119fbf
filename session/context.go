package session

import (
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tensorwave/oclgraph/buffer"
)

// HistoryEntry is one row of the run's compute_history (spec §3, "a list
// of (node-name, op, output-shape) triples recorded in evaluation
// order" — used for debugging and the log_intermediates feature).
type HistoryEntry struct {
	NodeName string
	Op       string
	Shape    string
}

// Context is the per-run Execution Context of spec §3: the walker's
// memoization table, the retain set of tensors evaluated outside the
// walk, and the ordered compute_history. A fresh Context is created for
// every Run call; the Cache it wraps is long-lived across runs.
type Context struct {
	ID    string
	Cache *Cache

	// Feed holds host values bound to named placeholders for this run.
	Feed map[string]any

	// LogIntermediates is a debug switch that the evaluator does not
	// consult: History receives a (node, op, shape) row for every
	// evaluated node whether or not it is set, and no output values are
	// read back into History.
	LogIntermediates bool

	memo    *orderedmap.OrderedMap[string, *buffer.Buffer]
	retain  map[string]bool
	History []HistoryEntry
}

// NewContext starts a fresh per-run context over the given SessionCache.
func NewContext(cache *Cache) *Context {
	return &Context{
		ID:     uuid.NewString(),
		Cache:  cache,
		Feed:   map[string]any{},
		memo:   orderedmap.New[string, *buffer.Buffer](),
		retain: map[string]bool{},
	}
}

// Memoized returns the cached result for a node name within this run, if
// the walker has already produced one.
func (c *Context) Memoized(name string) (*buffer.Buffer, bool) {
	return c.memo.Get(name)
}

// Memoize records the result buffer for a node name so later references
// to the same node reuse it instead of recomputing (spec §3, "_run must
// memoize by node identity within a single evaluation").
func (c *Context) Memoize(name string, buf *buffer.Buffer) {
	c.memo.Set(name, buf)
}

// Retain marks a node name as part of the run's retain set: tensors the
// caller asked to keep around after Run returns (spec §3, "retained
// tensors are returned as-is, bypassing the walker's normal disposal").
func (c *Context) Retain(name string) {
	c.retain[name] = true
}

// IsRetained reports whether name was marked via Retain.
func (c *Context) IsRetained(name string) bool {
	return c.retain[name]
}

// RecordHistory appends one compute_history row, in evaluation order.
func (c *Context) RecordHistory(nodeName, op, shape string) {
	c.History = append(c.History, HistoryEntry{NodeName: nodeName, Op: op, Shape: shape})
}
