package cluster

import (
	"net"
	"time"

	"linekv/internal/codec"
	"linekv/pkg/klog"
	"linekv/pkg/kmetrics"
)

// Coordinator is the per-node background worker that watches for a
// missing primary and runs lowest-id election, grounded on
// sync_coordinator.py's ClusterCoordinator.
type Coordinator struct {
	membership *Membership
	metrics    *kmetrics.Metrics
	timeout    time.Duration
	interval   time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewCoordinator builds a Coordinator. timeout bounds each peer probe;
// interval is the wait between election ticks.
func NewCoordinator(m *Membership, metrics *kmetrics.Metrics, timeout, interval time.Duration) *Coordinator {
	return &Coordinator{
		membership: m,
		metrics:    metrics,
		timeout:    timeout,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the background worker, if this node has any peers.
func (c *Coordinator) Start() {
	if !c.membership.HasPeers() {
		close(c.done)
		return
	}
	go c.run()
}

// Stop signals the worker to exit and waits for it.
func (c *Coordinator) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Coordinator) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		c.tick()
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) tick() {
	if c.membership.IsPrimary() {
		return
	}
	if c.findPrimary() {
		return
	}
	c.elect()
}

// findPrimary asks every peer who_is_primary and reports whether any
// replied with role "primary".
func (c *Coordinator) findPrimary() bool {
	for _, peer := range c.membership.Peers {
		role, ok := c.queryRole(peer)
		if ok && role == string(Primary) {
			return true
		}
	}
	return false
}

// elect runs the lowest-id election procedure of spec.md §4.6: form a
// candidate set of this node plus every peer that answered
// who_is_primary at all (regardless of role), then the lowest id wins.
func (c *Coordinator) elect() {
	log := klog.WithComponent("coordinator")

	candidates := []int{c.membership.SelfID}
	for _, peer := range c.membership.Peers {
		if _, ok := c.queryRole(peer); ok {
			candidates = append(candidates, peer.NodeID)
		}
	}

	winner := candidates[0]
	for _, id := range candidates[1:] {
		if id < winner {
			winner = id
		}
	}

	if winner == c.membership.SelfID {
		c.membership.SetRole(Primary)
		c.metrics.Elections.Inc()
		log.Info().Int("node_id", c.membership.SelfID).Msg("self-promoted to primary")
		return
	}

	for _, peer := range c.membership.Peers {
		if peer.NodeID == winner {
			c.promote(peer)
			return
		}
	}
}

// queryRole sends who_is_primary to peer and returns its reported role.
// ok is false if the peer was unreachable or its response was malformed.
func (c *Coordinator) queryRole(peer Peer) (role string, ok bool) {
	conn, err := net.DialTimeout("tcp", peer.String(), c.timeout)
	if err != nil {
		return "", false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(codec.Encode(map[string]any{"op": "who_is_primary"})); err != nil {
		return "", false
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return "", false
	}
	resp, err := codec.Decode(buf[:n])
	if err != nil {
		return "", false
	}
	r, _ := resp["role"].(string)
	return r, true
}

func (c *Coordinator) promote(peer Peer) {
	conn, err := net.DialTimeout("tcp", peer.String(), c.timeout)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	_, _ = conn.Write(codec.Encode(map[string]any{"op": "promote"}))
	buf := make([]byte, 4096)
	_, _ = conn.Read(buf)
}
