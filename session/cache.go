// Package session implements the persistent, process-wide-per-session
// SessionCache and the per-run ExecutionContext (spec §3, "Execution
// Context" and the "Shared mutable context" design note: "Re-architect as
// an explicit SessionCache value threaded through calls, with typed
// sub-slots").
package session

import (
	"math/rand"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"k8s.io/klog/v2"

	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/device"
	"github.com/tensorwave/oclgraph/device/software"
	"github.com/tensorwave/oclgraph/metrics"
)

// Cache is the device/context/queue/kernels/buffers bundle that spec §3
// says is "created at most once" per session and "never mutated by the
// walker" beyond appending new cache entries. It satisfies
// buffer.Factory's Cache interface directly, so the Buffer Factory can be
// handed a *Cache without an adapter.
type Cache struct {
	mu sync.Mutex

	KernelsDir string
	Device     device.Device
	Queue      *device.Queue
	Metrics    *metrics.Registry

	kernels *orderedmap.OrderedMap[string, *device.Program]
	buffers *orderedmap.OrderedMap[any, *buffer.Buffer]

	// randGens are the session-scoped deterministic generators keyed by
	// graph identity or node name, per the randomizer selection rule
	// (spec §4.6, rules 2 and 3).
	randGens map[string]*rand.Rand
}

// New constructs an empty SessionCache. The device, its context and queue
// are created lazily on first use (EnsureDevice), matching spec §3's
// lifecycle note ("The device, context, and queue are created on the
// first run and reused").
func New(kernelsDir string, reg *metrics.Registry) *Cache {
	return &Cache{
		KernelsDir: kernelsDir,
		kernels:    orderedmap.New[string, *device.Program](),
		buffers:    orderedmap.New[any, *buffer.Buffer](),
		randGens:   map[string]*rand.Rand{},
		Metrics:    reg,
	}
}

// EnsureDevice lazily constructs the session's device and queue on first
// call and returns them on every subsequent call.
func (c *Cache) EnsureDevice() (device.Device, *device.Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Device == nil {
		klog.V(1).Infof("session: constructing software device (kernels dir %q)", c.KernelsDir)
		c.Device = software.New(c.KernelsDir)
		c.Queue = c.Device.NewQueue()
	}
	return c.Device, c.Queue
}

// Program returns the cached compiled program for opName, compiling and
// caching it on first use (spec §4.2, "cached in
// _cache[\"_opencl_kernel_#{op}\"]").
func (c *Cache) Program(opName string) (*device.Program, error) {
	c.mu.Lock()
	if prog, ok := c.kernels.Get(opName); ok {
		c.mu.Unlock()
		return prog, nil
	}
	c.mu.Unlock()

	dev, _ := c.EnsureDevice()
	prog, err := dev.Compile(opName)
	if err != nil {
		if c.Metrics != nil {
			c.Metrics.KernelBuildFailures.WithLabelValues(opName).Inc()
		}
		return nil, err
	}

	c.mu.Lock()
	c.kernels.Set(opName, prog)
	c.mu.Unlock()
	klog.V(1).Infof("session: compiled kernel program %q", opName)
	return prog, nil
}

// GetBuffer implements buffer.Cache.
func (c *Cache) GetBuffer(key any) (*buffer.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.buffers.Get(key)
	if c.Metrics != nil {
		if ok {
			c.Metrics.BufferCacheHits.Inc()
		} else {
			c.Metrics.BufferCacheMisses.Inc()
		}
	}
	return buf, ok
}

// PutBuffer implements buffer.Cache.
func (c *Cache) PutBuffer(key any, buf *buffer.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers.Set(key, buf)
}

// RandGen returns the session-scoped generator registered under key,
// constructing it from seed on first use. Used by the randomizer rules
// that key a persistent generator by graph or op identity (spec §4.6,
// rules 2 and 3).
func (c *Cache) RandGen(key string, seed int64) *rand.Rand {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, ok := c.randGens[key]
	if !ok {
		gen = rand.New(rand.NewSource(seed))
		c.randGens[key] = gen
	}
	return gen
}

// Factory returns a buffer.Factory bound to this cache's device and
// queue, constructing the device on first call.
func (c *Cache) Factory() *buffer.Factory {
	dev, q := c.EnsureDevice()
	return &buffer.Factory{Device: dev, Queue: q, Cache: c}
}
