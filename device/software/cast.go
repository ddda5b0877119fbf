package software

import "github.com/tensorwave/oclgraph/device"

// castKernel implements `cast_int_fp` / `cast_fp_int` (spec §4.5, §6):
// "int M, int N, src*, dst*", no per-dtype suffix since the two directions
// are already fully named.
func castKernel() device.KernelFunc {
	return func(a device.Args) error {
		src, dst := a.Operands[0], a.Operands[1]
		n := a.M * a.N
		for i := 0; i < n; i++ {
			writeF64(dst, i, readF64(src, i))
		}
		return nil
	}
}

func registerCastPrograms(programs map[string]*device.Program) {
	fn := castKernel()
	programs["cast_int_fp"] = &device.Program{Op: "cast_int_fp", Entries: map[string]device.KernelFunc{"cast_int_fp": fn}}
	programs["cast_fp_int"] = &device.Program{Op: "cast_fp_int", Entries: map[string]device.KernelFunc{"cast_fp_int": fn}}
}

func builtinPrograms() map[string]*device.Program {
	programs := make(map[string]*device.Program)
	registerBinaryPrograms(programs)
	registerUnaryPrograms(programs)
	registerMatmulProgram(programs)
	registerCastPrograms(programs)
	return programs
}
