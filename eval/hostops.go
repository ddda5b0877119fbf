package eval

import (
	"fmt"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/shape"
)

func fillScalar(host any, v float64) {
	switch h := host.(type) {
	case []float32:
		for i := range h {
			h[i] = float32(v)
		}
	case []int32:
		for i := range h {
			h[i] = int32(v)
		}
	case []int16:
		val := int16(0)
		if v != 0 {
			val = 1
		}
		for i := range h {
			h[i] = val
		}
	}
}

func readAt(host any, i int) float64 {
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

func writeAt(host any, i int, v float64) {
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

// broadcastCopy expands src into dst (dst.Shape already declared), using
// right-aligned index modulo per axis, the same rule
// shape.InferElementwise uses to decide compatibility.
func broadcastCopy(src, dst *buffer.Buffer) error {
	if _, err := shape.InferElementwise(src.Shape, dst.Shape); err != nil {
		return err
	}
	n := dst.Shape.Size()
	if n == 0 {
		return nil
	}
	dstStrides := rowMajorStrides(dst.Shape)
	for flat := 0; flat < n; flat++ {
		srcIdx := 0
		srcStride := 1
		for axis := dst.Shape.Rank() - 1; axis >= 0; axis-- {
			dstCoord := (flat / dstStrides[axis]) % dst.Shape.Dims[axis]
			srcAxis := axis - (dst.Shape.Rank() - src.Shape.Rank())
			coord := 0
			if srcAxis >= 0 {
				dim := src.Shape.Dims[srcAxis]
				if dim > 1 {
					coord = dstCoord % dim
				}
			}
			srcIdx += coord * srcStride
			if srcAxis >= 0 {
				srcStride *= src.Shape.Dims[srcAxis]
			}
		}
		writeAt(dst.Host, flat, readAt(src.Host, srcIdx))
	}
	return nil
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

// argExtremeFill computes argmin/argmax of src along axis, writing int32
// indices into out (whose shape is src's shape with axis removed).
func argExtremeFill(src *buffer.Buffer, axis int, max bool, out *buffer.Buffer) error {
	if axis < 0 {
		axis += src.Shape.Rank()
	}
	if axis < 0 || axis >= src.Shape.Rank() {
		return fmt.Errorf("eval: axis %d out of range for shape %s", axis, src.Shape)
	}
	strides := rowMajorStrides(src.Shape)
	dim := src.Shape.Dims[axis]
	outIdx := 0
	dstHost := out.Host.([]int32)

	var walk func(axisIdx int, base int)
	walk = func(axisIdx int, base int) {
		if axisIdx == src.Shape.Rank() {
			bestIdx, bestVal := 0, readAt(src.Host, base)
			for k := 1; k < dim; k++ {
				v := readAt(src.Host, base+k*strides[axis])
				if (max && v > bestVal) || (!max && v < bestVal) {
					bestVal, bestIdx = v, k
				}
			}
			dstHost[outIdx] = int32(bestIdx)
			outIdx++
			return
		}
		if axisIdx == axis {
			walk(axisIdx+1, base)
			return
		}
		for c := 0; c < src.Shape.Dims[axisIdx]; c++ {
			walk(axisIdx+1, base+c*strides[axisIdx])
		}
	}
	walk(0, 0)
	return nil
}

// intsFromBuffer reads a host array holding shape-like values (new_shape
// or a target_shape operand) back into a plain []int.
func intsFromBuffer(buf *buffer.Buffer) ([]int, error) {
	switch h := buf.Host.(type) {
	case []int32:
		out := make([]int, len(h))
		for i, v := range h {
			out[i] = int(v)
		}
		return out, nil
	case []float32:
		out := make([]int, len(h))
		for i, v := range h {
			out[i] = int(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("eval: cannot read shape values from %T", buf.Host)
	}
}

// sliceAxis0 copies src[start:end] along its leading axis into out.
func sliceAxis0(src *buffer.Buffer, start, end int, out *buffer.Buffer) error {
	if src.Shape.Rank() == 0 {
		return fmt.Errorf("eval: cannot slice a scalar")
	}
	if start < 0 || end > src.Shape.Dims[0] || start > end {
		return fmt.Errorf("eval: slice [%d:%d) out of range for axis of size %d", start, end, src.Shape.Dims[0])
	}
	rowSize := src.Shape.Size() / src.Shape.Dims[0]
	for i := 0; i < (end-start)*rowSize; i++ {
		writeAt(out.Host, i, readAt(src.Host, start*rowSize+i))
	}
	return nil
}
