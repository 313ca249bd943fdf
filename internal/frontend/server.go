// Package frontend implements the TCP accept loop and per-connection
// request dispatch, grounded on socket_gateway.py's DatastoreServer and
// RequestDispatcher, and on the teacher's goroutine-per-connection/
// Logger-middleware shape (rewritten for a raw line protocol instead of
// Gin's HTTP router — there is no HTTP surface in this wire protocol).
package frontend

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"linekv/internal/cluster"
	"linekv/internal/codec"
	"linekv/internal/store"
	"linekv/pkg/klog"
	"linekv/pkg/kmetrics"
)

// Mode selects whether non-primary nodes reject client ops.
type Mode string

const (
	LeaderMode Mode = "leader"
	DynamoMode Mode = "dynamo"
)

// Server is the front-end dispatcher: it owns the listener and dispatches
// each accepted connection's single request to the engine, cluster
// membership, or replicator as appropriate.
type Server struct {
	engine     *store.Engine
	membership *cluster.Membership
	replicator *cluster.Replicator
	metrics    *kmetrics.Metrics
	mode       Mode

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer builds a front-end dispatcher over the given components.
func NewServer(engine *store.Engine, membership *cluster.Membership, replicator *cluster.Replicator, metrics *kmetrics.Metrics, mode Mode) *Server {
	return &Server{
		engine:     engine,
		membership: membership,
		replicator: replicator,
		metrics:    metrics,
		mode:       mode,
	}
}

// Serve listens on addr and accepts connections until Stop is called.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("frontend: listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log := klog.WithComponent("frontend")
	log.Info().Str("addr", addr).Msg("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Stop closes the listener and waits for in-flight connections to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
}

// handleConn reads exactly one request line, dispatches it, writes exactly
// one response line, and closes the connection.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	log := klog.WithComponent("frontend").With().Str("conn_id", connID).Logger()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}

	req, err := codec.Decode([]byte(line))
	if err != nil {
		log.Debug().Err(err).Msg("protocol error")
		conn.Write(codec.Encode(map[string]any{"status": "error", "error": err.Error()}))
		return
	}

	op, _ := req["op"].(string)
	s.metrics.OpsTotal.WithLabelValues(op).Inc()
	log.Debug().Str("op", op).Msg("dispatch")

	resp := s.dispatch(op, req)
	conn.Write(codec.Encode(resp))
}

func (s *Server) dispatch(op string, req map[string]any) map[string]any {
	switch op {
	case "who_is_primary":
		return map[string]any{"status": "ok", "role": string(s.membership.Role())}
	case "promote":
		s.membership.SetRole(cluster.Primary)
		return map[string]any{"status": "ok"}
	case "replicate":
		return s.handleReplicate(req)
	}

	if s.mode == LeaderMode && !s.membership.IsPrimary() {
		return map[string]any{"status": "error", "error": "not_primary"}
	}

	return s.dispatchPrimary(op, req)
}

func (s *Server) handleReplicate(req map[string]any) map[string]any {
	event, _ := req["event"].(map[string]any)
	eventOp, _ := event["op"].(string)
	payload, _ := event["payload"].(map[string]any)
	if err := s.engine.ApplyReplication(eventOp, payload); err != nil {
		return map[string]any{"status": "error", "error": err.Error()}
	}
	return map[string]any{"status": "ok"}
}

func (s *Server) dispatchPrimary(op string, req map[string]any) (resp map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			resp = map[string]any{"status": "error", "error": fmt.Sprintf("%v", r)}
		}
	}()

	switch op {
	case "get":
		key, _ := req["key"].(string)
		v, ok := s.engine.Get(key)
		if !ok {
			return map[string]any{"status": "ok", "result": nil}
		}
		return map[string]any{"status": "ok", "result": store.ToAny(v)}

	case "set":
		key, _ := req["key"].(string)
		val := store.FromAny(req["value"])
		simulateDrop, _ := req["simulate_drop"].(bool)
		if err := s.engine.Set(key, val, simulateDrop); err != nil {
			return errResponse(err)
		}
		s.replicator.Enqueue(cluster.ReplicationEvent{Op: "set", Payload: map[string]any{"key": key, "value": req["value"]}})
		return map[string]any{"status": "ok"}

	case "delete":
		key, _ := req["key"].(string)
		simulateDrop, _ := req["simulate_drop"].(bool)
		if err := s.engine.Delete(key, simulateDrop); err != nil {
			return errResponse(err)
		}
		s.replicator.Enqueue(cluster.ReplicationEvent{Op: "delete", Payload: map[string]any{"key": key}})
		return map[string]any{"status": "ok"}

	case "bulk_set":
		rawItems, _ := req["items"].([]any)
		items := make([]store.Item, 0, len(rawItems))
		for _, elem := range rawItems {
			pair, ok := elem.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			key, _ := pair[0].(string)
			items = append(items, store.Item{Key: key, Value: store.FromAny(pair[1])})
		}
		simulateDrop, _ := req["simulate_drop"].(bool)
		if err := s.engine.BulkSet(items, simulateDrop); err != nil {
			return errResponse(err)
		}
		s.replicator.Enqueue(cluster.ReplicationEvent{Op: "bulk_set", Payload: map[string]any{"items": rawItems}})
		return map[string]any{"status": "ok"}

	case "search_value":
		val := store.FromAny(req["value"])
		keys := s.engine.SearchByValue(val)
		return map[string]any{"status": "ok", "result": keysOrEmpty(keys)}

	case "search_text":
		term, _ := req["term"].(string)
		keys := s.engine.SearchText(term)
		return map[string]any{"status": "ok", "result": keysOrEmpty(keys)}

	case "add_vector":
		key, _ := req["key"].(string)
		vec := toFloatSlice(req["vector"])
		simulateDrop, _ := req["simulate_drop"].(bool)
		if err := s.engine.AddVector(key, vec, simulateDrop); err != nil {
			return errResponse(err)
		}
		s.replicator.Enqueue(cluster.ReplicationEvent{Op: "add_vector", Payload: map[string]any{"key": key, "vector": req["vector"]}})
		return map[string]any{"status": "ok"}

	case "vector_search":
		vec := toFloatSlice(req["vector"])
		topK := 5
		if tk, ok := req["top_k"].(float64); ok {
			topK = int(tk)
		}
		results := s.engine.VectorSearch(vec, topK)
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = map[string]any{"key": r.Key, "score": r.Score}
		}
		return map[string]any{"status": "ok", "result": out}

	default:
		return map[string]any{"status": "error", "error": fmt.Sprintf("unknown op: %s", op)}
	}
}

func errResponse(err error) map[string]any {
	return map[string]any{"status": "error", "error": err.Error()}
}

func keysOrEmpty(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

func toFloatSlice(v any) []float64 {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, len(arr))
	for i, elem := range arr {
		f, _ := elem.(float64)
		out[i] = f
	}
	return out
}
