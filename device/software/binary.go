package software

import (
	"fmt"

	"github.com/tensorwave/oclgraph/device"
)

// binaryOp is the pure elementwise function a two-operand kernel family
// computes, expressed over float64 regardless of dtype — both the fp and
// int entry points for a given op share one binaryOp, the int entry point
// simply truncating the float64 result back to int32 on write. This
// mirrors how simplego's exec_binary_float16.go reuses one generic
// loop body across dtypes by parameterizing only the scalar function.
type binaryOp func(a, b float64) float64

var binaryOps = map[string]binaryOp{
	"add":          func(a, b float64) float64 { return a + b },
	"sub":          func(a, b float64) float64 { return a - b },
	"mul":          func(a, b float64) float64 { return a * b },
	"div":          func(a, b float64) float64 { return a / b },
	"pow":          mathPow,
	"sigmoid_grad": func(y, dy float64) float64 { return dy * y * (1 - y) },
}

// apply evaluates op honoring the canonical-order/switch contract spec
// §4.4 defines: Operands are passed in canonical order, and switch tells
// the kernel whether to evaluate op(p, q) or op(q, p) to recover the
// caller's original (a, b) order.
func (op binaryOp) apply(sw int, p, q float64) float64 {
	if sw == 0 {
		return op(p, q)
	}
	return op(q, p)
}

func readF64(data any, idx int) float64 {
	switch s := data.(type) {
	case []float32:
		return float64(s[idx])
	case []int32:
		return float64(s[idx])
	case []int16:
		return float64(s[idx])
	default:
		panic(fmt.Sprintf("software: unsupported operand slice type %T", data))
	}
}

func writeF64(data any, idx int, v float64) {
	switch s := data.(type) {
	case []float32:
		s[idx] = float32(v)
	case []int32:
		s[idx] = int32(v)
	case []int16:
		s[idx] = int16(v)
	default:
		panic(fmt.Sprintf("software: unsupported output slice type %T", data))
	}
}

// binarySameShape implements the no-suffix variant: A and B already share
// the output's shape, indexed identically.
func binarySameShape(op binaryOp) device.KernelFunc {
	return func(a device.Args) error {
		p, q, c := a.Operands[0], a.Operands[1], a.Operands[2]
		n := a.M * a.N
		for i := 0; i < n; i++ {
			writeF64(c, i, op.apply(a.Switch, readF64(p, i), readF64(q, i)))
		}
		return nil
	}
}

// binaryScalar implements the "_c" variant: B has length 1 and is read
// once.
func binaryScalar(op binaryOp) device.KernelFunc {
	return func(a device.Args) error {
		p, q, c := a.Operands[0], a.Operands[1], a.Operands[2]
		scalar := readF64(q, 0)
		n := a.M * a.N
		for i := 0; i < n; i++ {
			writeF64(c, i, op.apply(a.Switch, readF64(p, i), scalar))
		}
		return nil
	}
}

// binaryBroadcast implements the "_b" variant (rank <= 2 broadcast): both
// operands are indexed modulo their own (possibly smaller) 2D dims against
// the output's (M, N), per spec §4.4 ("broadcast via index modulo").
func binaryBroadcast(op binaryOp) device.KernelFunc {
	return func(a device.Args) error {
		p, q, c := a.Operands[0], a.Operands[1], a.Operands[2]
		m1, n1 := a.M1, a.N1
		if m1 == 0 {
			m1 = a.M
		}
		if n1 == 0 {
			n1 = a.N
		}
		m2, n2 := a.M2, a.N2
		if m2 == 0 {
			m2 = a.M
		}
		if n2 == 0 {
			n2 = a.N
		}
		for row := 0; row < a.M; row++ {
			for col := 0; col < a.N; col++ {
				pIdx := (row%m1)*n1 + (col % n1)
				qIdx := (row%m2)*n2 + (col % n2)
				out := row*a.N + col
				writeF64(c, out, op.apply(a.Switch, readF64(p, pIdx), readF64(q, qIdx)))
			}
		}
		return nil
	}
}

func registerBinaryPrograms(programs map[string]*device.Program) {
	for name, op := range binaryOps {
		programs[name] = &device.Program{
			Op: name,
			Entries: map[string]device.KernelFunc{
				name + "_fp":    binarySameShape(op),
				name + "_int":   binarySameShape(op),
				name + "_c_fp":  binaryScalar(op),
				name + "_c_int": binaryScalar(op),
				name + "_b_fp":  binaryBroadcast(op),
				name + "_b_int": binaryBroadcast(op),
			},
		}
	}
}
