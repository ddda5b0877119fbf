// Package metrics exposes Prometheus counters for the dispatcher and
// kernel registry, the natural observation point for how a session's
// SessionCache is behaving over time. Grounded in
// fxnlabs-function-node's use of github.com/prometheus/client_golang for
// its own node-health counters — this module's Non-goals exclude kernel
// *autotuning*, not observing the kernels that already run.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the counters one SessionCache reports.
type Registry struct {
	KernelEnqueues     *prometheus.CounterVec
	BufferCacheHits    prometheus.Counter
	BufferCacheMisses  prometheus.Counter
	KernelBuildFailures *prometheus.CounterVec
}

// New registers a fresh set of counters against reg. Passing a
// prometheus.NewRegistry() per Evaluator keeps sessions from colliding on
// metric names when more than one is constructed in a process (e.g. in
// tests).
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		KernelEnqueues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oclgraph_kernel_enqueues_total",
			Help: "Number of kernel enqueues issued by the dispatcher, by op and variant.",
		}, []string{"op", "variant"}),
		BufferCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oclgraph_buffer_cache_hits_total",
			Help: "Number of (name, shape) buffer cache lookups that hit.",
		}),
		BufferCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oclgraph_buffer_cache_misses_total",
			Help: "Number of (name, shape) buffer cache lookups that missed.",
		}),
		KernelBuildFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oclgraph_kernel_build_failures_total",
			Help: "Number of kernel program compilation failures, by op.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.KernelEnqueues, m.BufferCacheHits, m.BufferCacheMisses, m.KernelBuildFailures)
	return m
}
