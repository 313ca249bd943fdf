package cluster

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linekv/internal/codec"
	"linekv/pkg/kmetrics"
)

// fakePeer is a minimal TCP listener that answers who_is_primary with a
// fixed role and acks everything else, standing in for a peer node in
// coordinator/replicator tests.
type fakePeer struct {
	ln   net.Listener
	role string
}

func newFakePeer(t *testing.T, role string) *fakePeer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fp := &fakePeer{ln: ln, role: role}
	go fp.serve()
	return fp
}

func (fp *fakePeer) serve() {
	for {
		conn, err := fp.ln.Accept()
		if err != nil {
			return
		}
		go fp.handle(conn)
	}
}

func (fp *fakePeer) handle(conn net.Conn) {
	defer conn.Close()
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	msg, err := codec.Decode([]byte(line))
	if err != nil {
		return
	}
	switch msg["op"] {
	case "who_is_primary":
		conn.Write(codec.Encode(map[string]any{"status": "ok", "role": fp.role}))
	default:
		conn.Write(codec.Encode(map[string]any{"status": "ok"}))
	}
}

func (fp *fakePeer) peer(nodeID int) Peer {
	addr := fp.ln.Addr().(*net.TCPAddr)
	return Peer{NodeID: nodeID, Host: "127.0.0.1", Port: addr.Port}
}

func (fp *fakePeer) close() { fp.ln.Close() }

func TestCoordinatorSelfElectsWhenLowestID(t *testing.T) {
	peer2 := newFakePeer(t, "secondary")
	defer peer2.close()
	peer3 := newFakePeer(t, "secondary")
	defer peer3.close()

	m := NewMembership(1, []Peer{peer2.peer(2), peer3.peer(3)}, Secondary)
	c := NewCoordinator(m, kmetrics.New(), 200*time.Millisecond, 20*time.Millisecond)

	c.tick()
	require.Equal(t, Primary, m.Role())
}

func TestCoordinatorDefersToLowerPeerID(t *testing.T) {
	peer1 := newFakePeer(t, "secondary")
	defer peer1.close()

	m := NewMembership(2, []Peer{peer1.peer(1)}, Secondary)
	c := NewCoordinator(m, kmetrics.New(), 200*time.Millisecond, 20*time.Millisecond)

	c.tick()
	require.Equal(t, Secondary, m.Role())
}

func TestCoordinatorFindsExistingPrimary(t *testing.T) {
	peer2 := newFakePeer(t, "primary")
	defer peer2.close()

	m := NewMembership(1, []Peer{peer2.peer(2)}, Secondary)
	c := NewCoordinator(m, kmetrics.New(), 200*time.Millisecond, 20*time.Millisecond)

	c.tick()
	require.Equal(t, Secondary, m.Role())
}

func TestCoordinatorNoopWithoutPeers(t *testing.T) {
	m := NewMembership(1, nil, Secondary)
	c := NewCoordinator(m, kmetrics.New(), 200*time.Millisecond, 20*time.Millisecond)
	c.Start()
	c.Stop()
	require.Equal(t, Secondary, m.Role())
}
