package software

import "github.com/tensorwave/oclgraph/device"

// unaryKernel builds the single entry point a unary op exposes per dtype:
// `<op>_{fp,int}`, work size [M, N], no variant selection (spec §4.4,
// "Unary ops follow the same shape but with a single operand").
func unaryKernel(op unaryOp) device.KernelFunc {
	return func(a device.Args) error {
		src, dst := a.Operands[0], a.Operands[1]
		n := a.M * a.N
		for i := 0; i < n; i++ {
			writeF64(dst, i, op(readF64(src, i)))
		}
		return nil
	}
}

func registerUnaryPrograms(programs map[string]*device.Program) {
	for name, op := range unaryOps {
		programs[name] = &device.Program{
			Op: name,
			Entries: map[string]device.KernelFunc{
				name + "_fp":  unaryKernel(op),
				name + "_int": unaryKernel(op),
			},
		}
	}
}
