// Package resultreader implements the Result Reader (spec §5): it waits
// on a buffer's last write, issues the device-to-host read, and converts
// the flat typed host array back into the nested Go slice shape the
// caller expects, the final step before a Run call returns to its
// caller.
package resultreader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/dtype"
)

// Reader issues read-buffer operations against a session's queue.
type Reader struct {
	Queue *device.Queue
}

// Read materializes one buffer to a nested Go value matching its shape:
// a bare scalar for a rank-0 buffer, otherwise nested []any slices of
// the dtype's natural Go element type (float32, int32, or bool).
func (r *Reader) Read(buf *buffer.Buffer) (any, error) {
	ev := r.Queue.EnqueueRead(buf.Mem, func() error { return nil }, buf.LastEvent)
	if err := ev.Wait(); err != nil {
		return nil, err
	}
	return nest(buf.Host, buf.DType, buf.Shape.Dims), nil
}

// ReadAll materializes every buffer concurrently, using
// golang.org/x/sync/errgroup the same way the teacher pack's backend
// fans independent device reads out across goroutines — each buffer's
// wait-list is already independent, so there's no ordering requirement
// between them.
func (r *Reader) ReadAll(bufs []*buffer.Buffer) ([]any, error) {
	out := make([]any, len(bufs))
	g, _ := errgroup.WithContext(context.Background())
	for i, buf := range bufs {
		i, buf := i, buf
		g.Go(func() error {
			v, err := r.Read(buf)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// nest rebuilds a nested-slice value from a flat host array and shape,
// the inverse of buffer.flattenFloat64 at read time.
func nest(host any, dt dtype.DType, dims []int) any {
	if len(dims) == 0 {
		return elemAt(host, dt, 0)
	}
	return build(host, dt, dims, 0, 0)
}

func elementStride(dims []int, depth int) int {
	stride := 1
	for i := depth + 1; i < len(dims); i++ {
		stride *= dims[i]
	}
	return stride
}

func build(host any, dt dtype.DType, dims []int, depth, offset int) any {
	if depth == len(dims) {
		return elemAt(host, dt, offset)
	}
	stride := elementStride(dims, depth)
	n := dims[depth]
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = build(host, dt, dims, depth+1, offset+i*stride)
	}
	return out
}

func elemAt(host any, dt dtype.DType, i int) any {
	switch h := host.(type) {
	case []float32:
		return h[i]
	case []int32:
		return h[i]
	case []int16:
		if dt == dtype.Bool {
			return h[i] != 0
		}
		return h[i]
	default:
		return nil
	}
}
