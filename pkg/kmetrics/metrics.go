// Package kmetrics tracks in-process counters for linekv nodes.
//
// The registry is private rather than the prometheus default registry so
// embedding this package never collides with a host process's own
// /metrics exporter; callers that want an HTTP exporter can register
// Registry() wherever they already expose metrics.
package kmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters a single node emits.
type Metrics struct {
	registry *prometheus.Registry

	OpsTotal            *prometheus.CounterVec
	ReplicationSends    prometheus.Counter
	ReplicationFailures prometheus.Counter
	Elections           prometheus.Counter
}

// New creates a fresh, independently-registered Metrics bundle.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linekv_ops_total",
			Help: "Number of storage operations handled, by op name.",
		}, []string{"op"}),
		ReplicationSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linekv_replication_sends_total",
			Help: "Number of replicate messages sent to peers.",
		}),
		ReplicationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linekv_replication_failures_total",
			Help: "Number of replicate messages that failed to reach a peer.",
		}),
		Elections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linekv_elections_total",
			Help: "Number of times this node won a leader election.",
		}),
	}

	reg.MustRegister(m.OpsTotal, m.ReplicationSends, m.ReplicationFailures, m.Elections)
	return m
}

// Registry exposes the underlying prometheus registry for an exporter to mount.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
