package resultreader

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

func TestReadNestsByShape(t *testing.T) {
	q := device.NewQueue()
	r := &Reader{Queue: q}

	buf := buffer.New("x", dtype.Float32, shape.Make(2, 2))
	buf.Mem = &device.MemObject{Data: []float32{1, 2, 3, 4}}
	buf.Host = []float32{1, 2, 3, 4}

	got, err := r.Read(buf)
	require.NoError(t, err)
	want := []any{
		[]any{float32(1), float32(2)},
		[]any{float32(3), float32(4)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadScalar(t *testing.T) {
	q := device.NewQueue()
	r := &Reader{Queue: q}

	buf := buffer.New("s", dtype.Float32, shape.Scalar())
	buf.Mem = &device.MemObject{Data: []float32{42}}
	buf.Host = []float32{42}

	got, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, float32(42), got)
}

func TestReadAllConcurrent(t *testing.T) {
	q := device.NewQueue()
	r := &Reader{Queue: q}

	a := buffer.New("a", dtype.Float32, shape.Make(2))
	a.Mem = &device.MemObject{Data: []float32{1, 2}}
	a.Host = []float32{1, 2}
	b := buffer.New("b", dtype.Int32, shape.Make(1))
	b.Mem = &device.MemObject{Data: []int32{7}}
	b.Host = []int32{7}

	got, err := r.ReadAll([]*buffer.Buffer{a, b})
	require.NoError(t, err)
	require.Equal(t, []any{float32(1), float32(2)}, got[0])
	require.Equal(t, []any{int32(7)}, got[1])
}
