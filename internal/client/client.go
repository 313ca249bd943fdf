// Package client is a minimal one-shot-connection SDK for linekv's wire
// protocol, grounded on remote_interface.py's DatastoreConnector and the
// teacher's client.go (rewritten from HTTP to a dial-write-read-close TCP
// round trip per request, matching the line-framed protocol this system
// actually speaks).
package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"linekv/internal/codec"
)

// ErrRemote wraps an error response returned by the server.
type ErrRemote struct {
	Message string
}

func (e *ErrRemote) Error() string { return e.Message }

// Client is a stateless handle to a single node's address; every call
// opens a new connection, sends one request, reads one response line,
// and closes — no connection pooling, no retry.
type Client struct {
	addr    string
	timeout time.Duration
}

// New builds a Client targeting host:port.
func New(host string, port int, timeout time.Duration) *Client {
	return &Client{addr: fmt.Sprintf("%s:%d", host, port), timeout: timeout}
}

func (c *Client) request(req map[string]any) (map[string]any, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(codec.Encode(req)); err != nil {
		return nil, fmt.Errorf("client: write: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("client: read: %w", err)
	}
	resp, err := codec.Decode([]byte(line))
	if err != nil {
		return nil, err
	}
	if status, _ := resp["status"].(string); status == "error" {
		msg, _ := resp["error"].(string)
		return nil, &ErrRemote{Message: msg}
	}
	return resp, nil
}

// Get returns the value bound to key, or nil if absent.
func (c *Client) Get(key string) (any, error) {
	resp, err := c.request(map[string]any{"op": "get", "key": key})
	if err != nil {
		return nil, err
	}
	return resp["result"], nil
}

// Set writes key to value.
func (c *Client) Set(key string, value any) error {
	_, err := c.request(map[string]any{"op": "set", "key": key, "value": value})
	return err
}

// Delete removes key, if present.
func (c *Client) Delete(key string) error {
	_, err := c.request(map[string]any{"op": "delete", "key": key})
	return err
}

// BulkSet writes every (key, value) pair atomically under one journal entry.
func (c *Client) BulkSet(items [][2]any) error {
	wire := make([]any, len(items))
	for i, it := range items {
		wire[i] = []any{it[0], it[1]}
	}
	_, err := c.request(map[string]any{"op": "bulk_set", "items": wire})
	return err
}

// SearchByValue returns the keys bound to exactly value.
func (c *Client) SearchByValue(value any) ([]string, error) {
	resp, err := c.request(map[string]any{"op": "search_value", "value": value})
	if err != nil {
		return nil, err
	}
	return toStringSlice(resp["result"]), nil
}

// SearchText returns the keys whose extracted text contains term.
func (c *Client) SearchText(term string) ([]string, error) {
	resp, err := c.request(map[string]any{"op": "search_text", "term": term})
	if err != nil {
		return nil, err
	}
	return toStringSlice(resp["result"]), nil
}

// AddVector binds key to a vector value.
func (c *Client) AddVector(key string, vector []float64) error {
	_, err := c.request(map[string]any{"op": "add_vector", "key": key, "vector": vector})
	return err
}

// ScoredKey is one vector_search result.
type ScoredKey struct {
	Key   string
	Score float64
}

// VectorSearch returns up to topK keys ranked by descending cosine similarity.
func (c *Client) VectorSearch(vector []float64, topK int) ([]ScoredKey, error) {
	resp, err := c.request(map[string]any{"op": "vector_search", "vector": vector, "top_k": topK})
	if err != nil {
		return nil, err
	}
	raw, _ := resp["result"].([]any)
	out := make([]ScoredKey, 0, len(raw))
	for _, elem := range raw {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		key, _ := m["key"].(string)
		score, _ := m["score"].(float64)
		out = append(out, ScoredKey{Key: key, Score: score})
	}
	return out, nil
}

// WhoIsPrimary asks the node what role it currently holds.
func (c *Client) WhoIsPrimary() (string, error) {
	resp, err := c.request(map[string]any{"op": "who_is_primary"})
	if err != nil {
		return "", err
	}
	role, _ := resp["role"].(string)
	return role, nil
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		if s, ok := elem.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
