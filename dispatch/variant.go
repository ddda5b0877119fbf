// Package dispatch implements the Kernel Dispatcher (spec §4.4) and Type
// Coercion (spec §4.5): choosing a kernel variant and operand order for a
// binary elementwise op, and promoting mismatched dtypes before either
// operand reaches a kernel.
package dispatch

import (
	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/shape"
)

// Variant is one of the three elementwise-binary kernel shapes spec §4.4
// selects between.
type Variant int

const (
	VariantSameShape Variant = iota
	VariantScalar
	VariantBroadcast
)

func (v Variant) suffix() string {
	switch v {
	case VariantScalar:
		return "_c"
	case VariantBroadcast:
		return "_b"
	default:
		return ""
	}
}

// Plan is the fully-resolved dispatch decision for one binary op
// application: which variant, which physical operand order (P, Q), and
// the switch flag the kernel needs to recover the caller's original
// (a, b) argument order (spec §4.4's canonical-order/switch contract).
type Plan struct {
	Variant Variant
	P, Q    *buffer.Buffer // physical operand order handed to the kernel
	Switch  int
	// M, N is the kernel's declared 2D work size: the output shape
	// flattened/padded to two dimensions.
	M, N int
	// M1, N1 and M2, N2 are P's and Q's own 2D dims, used by the
	// broadcast variant's independent per-operand index modulo.
	M1, N1, M2, N2 int
}

// SelectVariant implements spec §4.4's table: same output shape as both
// operands selects the no-suffix kernel; one operand scalar-like selects
// "_c"; otherwise selects "_b" (Dispatcher.Binary rejects a "_b" plan
// whose output rank exceeds 2). a and b are in the
// caller's original argument order; Plan.P/Plan.Q/Plan.Switch encode how
// to recover that order from the canonicalized kernel call.
func SelectVariant(a, b *buffer.Buffer, out shape.Shape) Plan {
	m, n := to2D(out)

	switch {
	case a.Shape.Equal(b.Shape):
		return Plan{
			Variant: VariantSameShape,
			P: a, Q: b, Switch: 0,
			M: m, N: n,
			M1: m, N1: n, M2: m, N2: n,
		}

	case a.IsScalarLike() || b.IsScalarLike():
		// Convention: the "_c" kernel always receives the array operand
		// first, the scalar second. Switch=1 iff that reorders the
		// caller's original (a, b) into (array, scalar).
		if b.IsScalarLike() {
			return Plan{
				Variant: VariantScalar,
				P: a, Q: b, Switch: 0,
				M: m, N: n,
			}
		}
		return Plan{
			Variant: VariantScalar,
			P: b, Q: a, Switch: 1,
			M: m, N: n,
		}

	default:
		am, an := to2D(a.Shape)
		bm, bn := to2D(b.Shape)
		return Plan{
			Variant: VariantBroadcast,
			P: a, Q: b, Switch: 0,
			M: m, N: n,
			M1: am, N1: an,
			M2: bm, N2: bn,
		}
	}
}

// EntryName returns the "<op>[_variant]_{fp|int}" kernel entry name spec
// §4.2 specifies, for the given op name and dtype family suffix ("fp" or
// "int").
func (p Plan) EntryName(op, dtypeSuffix string) string {
	return op + p.Variant.suffix() + "_" + dtypeSuffix
}

// to2D collapses an arbitrary-rank shape to the (rows, cols) pair the
// software backend's kernels operate over: the last dimension is cols,
// everything before it multiplies into rows. A scalar shape is (1, 1).
func to2D(sh shape.Shape) (int, int) {
	if sh.Rank() == 0 {
		return 1, 1
	}
	cols := sh.Dim(-1)
	rows := 1
	for i := 0; i < sh.Rank()-1; i++ {
		rows *= sh.Dim(i)
	}
	if rows == 0 {
		rows = 1
	}
	if cols == 0 {
		cols = 1
	}
	return rows, cols
}
