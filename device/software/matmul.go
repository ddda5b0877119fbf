package software

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tensorwave/oclgraph/device"
)

// gemm implements the `gemm_{fp,int}` entry point (spec §4.1 "matmul",
// §6 resource table: "int M, int N, int K, int ta, int tb, A*, B*, C*").
// The float path is a direct gonum/mat.Dense.Mul; the int path runs the
// same multiply over a float64 shadow and truncates on write, the same
// simplification the binary/unary kernels use for int dtype.
func gemm() device.KernelFunc {
	return func(args device.Args) error {
		a, b, c := args.Operands[0], args.Operands[1], args.Operands[2]
		m, n, k := args.M, args.N, args.K

		aDense := toDense(a, m, k, args.TA == 1)
		bDense := toDense(b, k, n, args.TB == 1)

		var out mat.Dense
		out.Mul(aDense, bDense)

		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				writeF64(c, i*n+j, out.At(i, j))
			}
		}
		return nil
	}
}

// toDense builds a gonum mat.Dense of logical shape (rows, cols) from a
// flat operand slice. If transposed, the slice is physically (cols, rows)
// and the view is taken via mat.Dense.T(), matching how matmul's
// transpose_a/transpose_b flags swap which physical axis is the inner
// dimension without moving any data (spec §4.1).
func toDense(data any, rows, cols int, transposed bool) mat.Matrix {
	if transposed {
		phys := toFloat64Dense(data, cols, rows)
		return phys.T()
	}
	return toFloat64Dense(data, rows, cols)
}

func toFloat64Dense(data any, rows, cols int) *mat.Dense {
	flat := make([]float64, rows*cols)
	for i := range flat {
		flat[i] = readF64(data, i)
	}
	return mat.NewDense(rows, cols, flat)
}

func registerMatmulProgram(programs map[string]*device.Program) {
	fn := gemm()
	programs["matmul"] = &device.Program{
		Op: "matmul",
		Entries: map[string]device.KernelFunc{
			"gemm_fp":  fn,
			"gemm_int": fn,
		},
	}
}
