package cluster

import (
	"fmt"
	"net"
	"time"

	"linekv/internal/codec"
	"linekv/pkg/klog"
	"linekv/pkg/kmetrics"
)

// ReplicationEvent is a single mutation the leader has durably applied
// locally and now fans out to every peer.
type ReplicationEvent struct {
	Op      string
	Payload map[string]any
}

// Replicator is the single-producer, single-consumer replication
// dispatcher: one background worker drains a queue of local mutation
// events and forwards each, best-effort and fire-and-forget, to every
// configured peer. Grounded on sync_coordinator.py's ChangeLog.
//
// There is no retry and no persistent backlog: a peer that is briefly
// unreachable simply misses that event. This matches spec.md §4.5 and
// the explicit non-goal of durable replication logs.
type Replicator struct {
	membership *Membership
	metrics    *kmetrics.Metrics
	timeout    time.Duration

	queue chan ReplicationEvent
	stop  chan struct{}
	done  chan struct{}
}

// NewReplicator builds a Replicator for this node. timeout bounds both
// connect and response read for each peer send.
func NewReplicator(m *Membership, metrics *kmetrics.Metrics, timeout time.Duration) *Replicator {
	return &Replicator{
		membership: m,
		metrics:    metrics,
		timeout:    timeout,
		queue:      make(chan ReplicationEvent, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the background worker, if this node has any peers.
func (r *Replicator) Start() {
	if !r.membership.HasPeers() {
		close(r.done)
		return
	}
	go r.run()
}

// Stop signals the worker to exit at its next pop and waits for it.
func (r *Replicator) Stop() {
	close(r.stop)
	<-r.done
}

// Enqueue is a no-op when this node has no peers, matching
// ChangeLog.enqueue's short-circuit in the original implementation.
func (r *Replicator) Enqueue(event ReplicationEvent) {
	if !r.membership.HasPeers() {
		return
	}
	select {
	case r.queue <- event:
	default:
		klog.WithComponent("replicator").Warn().Msg("replication queue full, dropping event")
	}
}

func (r *Replicator) run() {
	defer close(r.done)
	log := klog.WithComponent("replicator")
	for {
		select {
		case <-r.stop:
			return
		case event := <-r.queue:
			for _, peer := range r.membership.Peers {
				if err := r.sendToPeer(peer, event); err != nil {
					r.metrics.ReplicationFailures.Inc()
					log.Debug().Err(err).Int("peer_id", peer.NodeID).Msg("replicate to peer failed")
					continue
				}
				r.metrics.ReplicationSends.Inc()
			}
		}
	}
}

// sendToPeer opens one connection, sends a replicate message, reads the
// response, and discards it. Any I/O failure is returned to the caller
// to swallow — there is no retry.
func (r *Replicator) sendToPeer(peer Peer, event ReplicationEvent) error {
	conn, err := net.DialTimeout("tcp", peer.String(), r.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", peer, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(r.timeout))

	msg := codec.Encode(map[string]any{
		"op": "replicate",
		"event": map[string]any{
			"op":      event.Op,
			"payload": event.Payload,
		},
	})
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("write to %s: %w", peer, err)
	}

	buf := make([]byte, 4096)
	if _, err := conn.Read(buf); err != nil {
		return fmt.Errorf("read from %s: %w", peer, err)
	}
	return nil
}
