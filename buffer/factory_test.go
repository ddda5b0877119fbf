package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/device/software"
	"github.com/tensorwave/oclgraph/dtype"
	"github.com/tensorwave/oclgraph/shape"
)

type memCache struct {
	m map[any]*Buffer
}

func newMemCache() *memCache { return &memCache{m: map[any]*Buffer{}} }

func (c *memCache) GetBuffer(key any) (*Buffer, bool) { b, ok := c.m[key]; return b, ok }
func (c *memCache) PutBuffer(key any, buf *Buffer)    { c.m[key] = buf }

func TestConvertToOpenCLNested(t *testing.T) {
	dev := software.New("")
	f := &Factory{Device: dev, Queue: device.NewQueue(), Cache: newMemCache()}

	buf, err := f.ConvertToOpenCL([][]float64{{1, 2}, {3, 4}}, shape.Make(2, 2), dtype.Float32, "a")
	require.NoError(t, err)
	require.NoError(t, buf.LastEvent.Wait())
	require.Equal(t, []float32{1, 2, 3, 4}, buf.Host)
	require.Equal(t, []float32{1, 2, 3, 4}, buf.Mem.Data)
}

func TestConvertToOpenCLCachedByNameAndShape(t *testing.T) {
	dev := software.New("")
	f := &Factory{Device: dev, Queue: device.NewQueue(), Cache: newMemCache()}

	b1, err := f.ConvertToOpenCL([]float32{1, 2}, shape.Make(2), dtype.Float32, "x")
	require.NoError(t, err)
	b2, err := f.ConvertToOpenCL(nil, shape.Make(2), dtype.Float32, "x")
	require.NoError(t, err)
	require.Same(t, b1, b2)
}

func TestCreateResultBufferNoWrite(t *testing.T) {
	dev := software.New("")
	f := &Factory{Device: dev, Queue: device.NewQueue(), Cache: newMemCache()}

	buf, err := f.CreateResultBuffer(dtype.Float32, shape.Make(3), "out")
	require.NoError(t, err)
	require.Nil(t, buf.LastEvent)
	require.Len(t, buf.Host, 3)
}

func TestConvertToOpenCLZeroSizeHasNullMem(t *testing.T) {
	dev := software.New("")
	f := &Factory{Device: dev, Queue: device.NewQueue(), Cache: newMemCache()}

	buf, err := f.ConvertToOpenCL(nil, shape.Make(0, 3), dtype.Float32, "empty")
	require.NoError(t, err)
	require.Nil(t, buf.Mem)
	require.Len(t, buf.Host, 1) // host_array.length = max(1, product(shape))
}
