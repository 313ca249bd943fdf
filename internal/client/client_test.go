package client_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linekv/internal/client"
	"linekv/internal/cluster"
	"linekv/internal/frontend"
	"linekv/internal/store"
	"linekv/pkg/kmetrics"
)

func startServer(t *testing.T) (host string, port int, stop func()) {
	t.Helper()
	eng, err := store.NewEngine(t.TempDir(), 0)
	require.NoError(t, err)

	m := cluster.NewMembership(1, nil, cluster.Primary)
	r := cluster.NewReplicator(m, kmetrics.New(), time.Second)
	r.Start()

	srv := frontend.NewServer(eng, m, r, kmetrics.New(), frontend.LeaderMode)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	go srv.Serve(addr.String())
	time.Sleep(50 * time.Millisecond)

	return "127.0.0.1", addr.Port, func() {
		srv.Stop()
		r.Stop()
		eng.Close()
	}
}

func TestClientSetGetDelete(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c := client.New(host, port, time.Second)
	require.NoError(t, c.Set("k1", "v1"))

	v, err := c.Get("k1")
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	require.NoError(t, c.Delete("k1"))
	v, err = c.Get("k1")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestClientVectorSearch(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c := client.New(host, port, time.Second)
	require.NoError(t, c.AddVector("v1", []float64{1, 0}))
	require.NoError(t, c.AddVector("v2", []float64{0, 1}))

	results, err := c.VectorSearch([]float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "v1", results[0].Key)
}

func TestClientWhoIsPrimary(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c := client.New(host, port, time.Second)
	role, err := c.WhoIsPrimary()
	require.NoError(t, err)
	require.Equal(t, "primary", role)
}
