// Package dtype defines the fixed set of element types the evaluator
// understands: fp32, int32 and bool. Unlike the teacher framework's
// dtypes package (which enumerates a dozen XLA-matching types), the core
// here closes the set deliberately — the spec rejects any other dtype
// with UnsupportedDtype rather than attempting generic promotion.
package dtype

import "fmt"

// DType is one of the three element types a Device Buffer can hold.
type DType int32

const (
	Invalid DType = iota
	Bool
	Int32
	Float32
)

func (d DType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Float32:
		return "fp32"
	default:
		return "invalid"
	}
}

// IsValid reports whether d is one of the three supported dtypes.
func (d DType) IsValid() bool {
	return d == Bool || d == Int32 || d == Float32
}

// IsFloat reports whether d is the floating-point family.
func (d DType) IsFloat() bool {
	return d == Float32
}

// IsInt reports whether d is the integer family (bool is not considered
// an integer family for cast-kernel selection purposes).
func (d DType) IsInt() bool {
	return d == Int32
}

// ElemSize returns the host-array element size in bytes for d.
func (d DType) ElemSize() int {
	switch d {
	case Bool:
		return 2 // short, per spec §4.3 ("bool -> short")
	case Int32:
		return 4
	case Float32:
		return 4
	default:
		return 0
	}
}

// Parse maps the external, string-tagged dtype names (as they would arrive
// from the graph-construction collaborator) onto a DType.
func Parse(name string) (DType, error) {
	switch name {
	case "bool":
		return Bool, nil
	case "int32":
		return Int32, nil
	case "fp32", "float32":
		return Float32, nil
	default:
		return Invalid, fmt.Errorf("dtype: unsupported dtype %q", name)
	}
}

// Family groups dtypes for cast-kernel selection (see dispatch/coerce.go):
// Float32 is the "fp" family, Int32 and Bool are the "int" family.
type Family int

const (
	FamilyInt Family = iota
	FamilyFP
)

func (d DType) Family() Family {
	if d == Float32 {
		return FamilyFP
	}
	return FamilyInt
}

// KernelSuffix returns the per-dtype kernel entry-point suffix used when
// building kernel symbol names (e.g. "add_fp", "add_int").
func (d DType) KernelSuffix() string {
	if d.Family() == FamilyFP {
		return "fp"
	}
	return "int"
}
