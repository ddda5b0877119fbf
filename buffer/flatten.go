package buffer

import (
	"reflect"

	"github.com/tensorwave/oclgraph/dtype"
)

// flattenFloat64 walks an arbitrarily nested Go slice (or a scalar) and
// appends its numeric elements, in row-major order, to a float64 slice.
// This is the same reflect-based recursive approach the teacher pack's
// shapes.CastAsDType uses to cross arbitrary nested-slice depths without
// enumerating every rank by hand.
func flattenFloat64(value any) []float64 {
	var out []float64
	appendFlat(reflect.ValueOf(value), &out)
	return out
}

func appendFlat(v reflect.Value, out *[]float64) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			appendFlat(v.Index(i), out)
		}
	case reflect.Interface:
		appendFlat(v.Elem(), out)
	case reflect.Bool:
		if v.Bool() {
			*out = append(*out, 1)
		} else {
			*out = append(*out, 0)
		}
	case reflect.Float32, reflect.Float64:
		*out = append(*out, v.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		*out = append(*out, float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		*out = append(*out, float64(v.Uint()))
	}
}

// adoptTyped attempts to use value directly as the target host slice
// without a flatten+cast pass, per spec §4.3 ("If value is a typed array,
// adopt it directly"). It returns ok=false when value's element type
// doesn't already match dt, in which case the caller falls back to
// flatten+cast.
func adoptTyped(value any, dt dtype.DType, n int) (any, bool) {
	switch dt {
	case dtype.Float32:
		if s, ok := value.([]float32); ok && len(s) == n {
			out := make([]float32, n)
			copy(out, s)
			return out, true
		}
	case dtype.Int32:
		if s, ok := value.([]int32); ok && len(s) == n {
			out := make([]int32, n)
			copy(out, s)
			return out, true
		}
	case dtype.Bool:
		if s, ok := value.([]int16); ok && len(s) == n {
			out := make([]int16, n)
			copy(out, s)
			return out, true
		}
	}
	return nil, false
}

// isEmptyValue reports whether value carries no data to write — nil, or a
// slice of length 0 — matching spec §4.3's "if value is non-empty" write
// gate.
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len() == 0
	}
	return false
}

// castFloat64 converts a flat float64 slice into the Go slice type dt
// requires, truncating for integer dtypes.
func castFloat64(flat []float64, dt dtype.DType) any {
	switch dt {
	case dtype.Float32:
		out := make([]float32, len(flat))
		for i, v := range flat {
			out[i] = float32(v)
		}
		return out
	case dtype.Int32:
		out := make([]int32, len(flat))
		for i, v := range flat {
			out[i] = int32(v)
		}
		return out
	case dtype.Bool:
		out := make([]int16, len(flat))
		for i, v := range flat {
			if v != 0 {
				out[i] = 1
			}
		}
		return out
	default:
		return nil
	}
}
