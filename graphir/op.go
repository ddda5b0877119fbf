package graphir

// Op is the closed set of operation tags the evaluator dispatches on. The
// teacher framework dispatches dynamically on a symbolic string tag fetched
// off an `xla.SerializedNode`; per the spec's "Dynamic op dispatch" design
// note, this core re-architects that as a sealed Go enum plus a string
// table, so an unknown tag is a compile-time-checkable set rather than an
// open string space.
type Op int

const (
	OpInvalid Op = iota

	OpIdentity
	OpAssign
	OpAssignAdd

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpSigmoidGrad

	OpSign
	OpExp
	OpLog
	OpSin
	OpCos
	OpTan
	OpAbs
	OpSqrt
	OpNegate
	OpSquare
	OpReciprocal
	OpTanh
	OpTanhGrad
	OpSigmoid

	OpMatMul

	OpZeros
	OpOnes
	OpZerosLike
	OpOnesLike

	OpBroadcastTransform
	OpBroadcastGradientArgs

	OpShape
	OpReshape

	OpRandomUniform
	OpRandomNormal
	OpGlorotUniform

	OpFlowGroup

	OpSum
	OpProd

	OpArgMin
	OpArgMax

	OpIndex
	OpTruncate
)

var opNames = map[Op]string{
	OpIdentity:               "identity",
	OpAssign:                 "assign",
	OpAssignAdd:              "assign_add",
	OpAdd:                    "add",
	OpSub:                    "sub",
	OpMul:                    "mul",
	OpDiv:                    "div",
	OpPow:                    "pow",
	OpSigmoidGrad:            "sigmoid_grad",
	OpSign:                   "sign",
	OpExp:                    "exp",
	OpLog:                    "log",
	OpSin:                    "sin",
	OpCos:                    "cos",
	OpTan:                    "tan",
	OpAbs:                    "abs",
	OpSqrt:                   "sqrt",
	OpNegate:                 "negate",
	OpSquare:                 "square",
	OpReciprocal:             "reciprocal",
	OpTanh:                   "tanh",
	OpTanhGrad:               "tanh_grad",
	OpSigmoid:                "sigmoid",
	OpMatMul:                 "matmul",
	OpZeros:                  "zeros",
	OpOnes:                   "ones",
	OpZerosLike:              "zeros_like",
	OpOnesLike:               "ones_like",
	OpBroadcastTransform:     "broadcast_transform",
	OpBroadcastGradientArgs:  "broadcast_gradient_args",
	OpShape:                  "shape",
	OpReshape:                "reshape",
	OpRandomUniform:          "random_uniform",
	OpRandomNormal:           "random_normal",
	OpGlorotUniform:          "glorot_uniform",
	OpFlowGroup:              "flow_group",
	OpSum:                    "sum",
	OpProd:                   "prod",
	OpArgMin:                 "argmin",
	OpArgMax:                 "argmax",
	OpIndex:                  "index",
	OpTruncate:               "truncate",
}

var namesToOp = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

// String returns the canonical op-tag name, matching what an upstream
// graph-construction DSL would have used. Used to name kernel resource
// files and to report UnknownOp.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "invalid"
}

// ParseOp resolves an op-tag name to its Op, or false if no such op is
// known to this core (the caller should raise UnknownOp).
func ParseOp(name string) (Op, bool) {
	op, ok := namesToOp[name]
	return op, ok
}

// KnownOpNames lists every op tag this core understands, used by
// evalerr's "did you mean" suggestion for UnknownOp.
func KnownOpNames() []string {
	names := make([]string, 0, len(opNames))
	for _, name := range opNames {
		names = append(names, name)
	}
	return names
}

// IsElementwiseBinary reports whether op is one of the two-operand
// elementwise ops dispatched through the variant-selection table (§4.4).
func (op Op) IsElementwiseBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow, OpSigmoidGrad:
		return true
	}
	return false
}

// IsElementwiseUnary reports whether op is one of the single-operand
// elementwise ops (§4.1, "Elementwise unary").
func (op Op) IsElementwiseUnary() bool {
	switch op {
	case OpSign, OpExp, OpLog, OpSin, OpCos, OpTan, OpAbs, OpSqrt, OpNegate,
		OpSquare, OpReciprocal, OpTanh, OpTanhGrad, OpSigmoid:
		return true
	}
	return false
}
