package software

import "math"

func mathPow(a, b float64) float64 { return math.Pow(a, b) }

type unaryOp func(a float64) float64

var unaryOps = map[string]unaryOp{
	"sign":       signFn,
	"exp":        math.Exp,
	"log":        math.Log,
	"sin":        math.Sin,
	"cos":        math.Cos,
	"tan":        math.Tan,
	"abs":        math.Abs,
	"sqrt":       math.Sqrt,
	"negate":     func(a float64) float64 { return -a },
	"square":     func(a float64) float64 { return a * a },
	"reciprocal": func(a float64) float64 { return 1 / a },
	"tanh":       math.Tanh,
	"tanh_grad":  func(y float64) float64 { return 1 - y*y },
	"sigmoid":    sigmoidFn,
}

func signFn(a float64) float64 {
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	default:
		return 0
	}
}

func sigmoidFn(a float64) float64 {
	return 1 / (1 + math.Exp(-a))
}
