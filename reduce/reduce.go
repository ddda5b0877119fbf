// Package reduce implements the host-side reduction operations of spec
// §4.7: sum and prod along a set of axes, and broadcast_gradient_args,
// the autodiff helper that recovers which axes a forward broadcast
// introduced or stretched so a backward pass knows what to reduce over.
// Both run on the host rather than as OpenCL kernels, per spec's own
// design note that these are better expressed as pure host-side
// functions than device work; gonum.org/v1/gonum/floats carries the
// actual elementwise summation.
package reduce

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/shape"
)

// OutputShape computes the shape a sum/prod reduction over axes produces.
// When keepDims is true the reduced axes are kept with size 1, matching
// the teacher pack's convention for reduction ops that feed back into
// further broadcast arithmetic.
func OutputShape(in shape.Shape, axes []int, keepDims bool) shape.Shape {
	reduce := axisSet(in.Rank(), axes)
	var dims []int
	for i, d := range in.Dims {
		if reduce[i] {
			if keepDims {
				dims = append(dims, 1)
			}
			continue
		}
		dims = append(dims, d)
	}
	return shape.Make(dims...)
}

// Sum reduces src over axes into a freshly allocated buffer of out's
// shape, using gonum/floats.Sum over each output element's contributing
// slice.
func Sum(src *buffer.Buffer, axes []int, out shape.Shape, keepDims bool) *buffer.Buffer {
	return reduceWith(src, axes, out, keepDims, floats.Sum, 0)
}

// Prod reduces src over axes via repeated multiplication.
func Prod(src *buffer.Buffer, axes []int, out shape.Shape, keepDims bool) *buffer.Buffer {
	return reduceWith(src, axes, out, keepDims, product, 1)
}

func product(xs []float64) float64 {
	p := 1.0
	for _, x := range xs {
		p *= x
	}
	return p
}

func reduceWith(src *buffer.Buffer, axes []int, out shape.Shape, keepDims bool, fold func([]float64) float64, identity float64) *buffer.Buffer {
	result := buffer.New(src.Name+"_reduced", src.DType, out)
	reduceAxes := axisSet(src.Shape.Rank(), axes)
	strides := rowMajorStrides(src.Shape)

	groups := map[int][]float64{}
	for flat := 0; flat < src.Shape.Size(); flat++ {
		idx := unflatten(flat, src.Shape, strides)
		outFlat := projectedIndex(idx, reduceAxes, out, keepDims)
		groups[outFlat] = append(groups[outFlat], readHost(src.Host, flat))
	}

	n := out.HostLen()
	for i := 0; i < n; i++ {
		vals, ok := groups[i]
		v := identity
		if ok {
			v = fold(vals)
		}
		writeHost(result.Host, i, v)
	}
	return result
}

func axisSet(rank int, axes []int) map[int]bool {
	set := map[int]bool{}
	for _, a := range axes {
		if a < 0 {
			a += rank
		}
		set[a] = true
	}
	return set
}

func rowMajorStrides(sh shape.Shape) []int {
	strides := make([]int, sh.Rank())
	acc := 1
	for i := sh.Rank() - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= sh.Dims[i]
	}
	return strides
}

func unflatten(flat int, sh shape.Shape, strides []int) []int {
	idx := make([]int, sh.Rank())
	for i := 0; i < sh.Rank(); i++ {
		idx[i] = (flat / strides[i]) % sh.Dims[i]
	}
	return idx
}

func projectedIndex(idx []int, reduceAxes map[int]bool, out shape.Shape, keepDims bool) int {
	var kept []int
	for i, v := range idx {
		if reduceAxes[i] {
			if keepDims {
				kept = append(kept, 0)
			}
			continue
		}
		kept = append(kept, v)
	}
	flat, stride := 0, 1
	for i := len(kept) - 1; i >= 0; i-- {
		flat += kept[i] * stride
		stride *= dimOrOne(out, i)
	}
	return flat
}

func dimOrOne(sh shape.Shape, i int) int {
	if i >= sh.Rank() {
		return 1
	}
	return sh.Dims[i]
}

func readHost(host any, i int) float64 {
	switch h := host.(type) {
	case []float32:
		return float64(h[i])
	case []int32:
		return float64(h[i])
	case []int16:
		return float64(h[i])
	default:
		return 0
	}
}

func writeHost(host any, i int, v float64) {
	switch h := host.(type) {
	case []float32:
		h[i] = float32(v)
	case []int32:
		h[i] = int32(v)
	case []int16:
		if v != 0 {
			h[i] = 1
		} else {
			h[i] = 0
		}
	}
}

// BroadcastGradientArgs returns, for a forward elementwise broadcast of
// shapes a and b, the axes each operand's gradient must be summed over to
// recover its original (pre-broadcast) shape — the same (rx, ry) pair
// TensorFlow's BroadcastGradientArgs op produces, needed by autodiff's
// backward pass for every broadcasted binary op. spec's own design note
// flags this op's argument layout as "asymmetric... preserve behavior but
// flag for review"; ax and bx below are returned independently rather
// than forced into one shared interpretation, which is the safer reading
// of that note.
func BroadcastGradientArgs(a, b shape.Shape) (ax, bx []int) {
	rank := a.Rank()
	if b.Rank() > rank {
		rank = b.Rank()
	}
	for i := 0; i < rank; i++ {
		axis := rank - 1 - i
		da, db := dimFromEnd(a, i), dimFromEnd(b, i)
		switch {
		case da == db:
			continue
		case da == 1:
			ax = append(ax, axis)
		case db == 1:
			bx = append(bx, axis)
		}
	}
	sort.Ints(ax)
	sort.Ints(bx)
	return ax, bx
}

func dimFromEnd(s shape.Shape, i int) int {
	idx := s.Rank() - 1 - i
	if idx < 0 {
		return 1
	}
	return s.Dims[idx]
}
