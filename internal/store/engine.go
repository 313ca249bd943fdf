package store

import (
	"fmt"
	"sync"
)

// Scored is exported from vector_index.go; VectorSearch returns it.

// Engine owns the primary key/value map, the three secondary indexes, and
// the journal/snapshot store, all behind one mutex — grounded on
// memory_engine.py's DatastoreCore and the teacher's store.go Store type.
//
// Every mutation does the same work under the lock: journal-append the
// entry (fsync before return), un-index each affected key's prior value
// (if any), mutate the map, index the new value, then rewrite the
// snapshot. Delete and BulkSet append to the journal before un-indexing;
// Set un-indexes the prior value before its journal append. Rewriting the
// snapshot on every mutation keeps the journal at (at most) one entry's
// worth of replay cost, except when fault injection skips a snapshot, in
// which case the journal keeps growing until the next snapshot is written.
type Engine struct {
	mu sync.Mutex

	journal *Journal
	data    map[string]Value

	valueIndex *ExactIndex
	textIndex  *TextIndex
	vecIndex   *VectorIndex
}

// NewEngine loads existing state from dataDir (if any) and rebuilds all
// three indexes from it.
func NewEngine(dataDir string, dropRate float64) (*Engine, error) {
	j, err := NewJournal(dataDir, dropRate)
	if err != nil {
		return nil, err
	}
	data, err := j.Load()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		journal:    j,
		data:       data,
		valueIndex: NewExactIndex(),
		textIndex:  NewTextIndex(),
		vecIndex:   NewVectorIndex(),
	}
	for key, val := range data {
		e.indexValue(key, val)
	}
	return e, nil
}

// Close releases the underlying journal file handle.
func (e *Engine) Close() error {
	return e.journal.Close()
}

func (e *Engine) indexValue(key string, val Value) {
	if hv, ok := Hashable(val); ok {
		e.valueIndex.Add(hv, key)
	}
	if text, ok := ExtractText(val); ok {
		e.textIndex.AddDocument(key, text)
	}
	if vec, ok := ExtractVector(val); ok {
		e.vecIndex.AddVector(key, vec)
	}
}

func (e *Engine) unindexValue(key string, val Value) {
	if hv, ok := Hashable(val); ok {
		e.valueIndex.Remove(hv, key)
	}
	if text, ok := ExtractText(val); ok {
		e.textIndex.RemoveDocument(key, text)
	}
	if _, ok := ExtractVector(val); ok {
		e.vecIndex.RemoveVector(key)
	}
}

// Get returns the current value bound to key, or (nil, false) if absent.
func (e *Engine) Get(key string) (Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.data[key]
	return v, ok
}

// Set journals, applies, re-indexes and snapshots a single key/value
// write. simulateDrop gates the fault-injection hook on the snapshot.
func (e *Engine) Set(key string, val Value, simulateDrop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prior, ok := e.data[key]; ok {
		e.unindexValue(key, prior)
	}
	if err := e.journal.AppendSet(key, val); err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	e.data[key] = val
	e.indexValue(key, val)
	return e.journal.SaveSnapshot(e.data, simulateDrop)
}

// Delete removes key, if present. Idempotent.
func (e *Engine) Delete(key string, simulateDrop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.journal.AppendDelete(key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	if prior, ok := e.data[key]; ok {
		e.unindexValue(key, prior)
		delete(e.data, key)
	}
	return e.journal.SaveSnapshot(e.data, simulateDrop)
}

// Item is one key/value pair of a bulk_set request.
type Item struct {
	Key   string
	Value Value
}

// BulkSet applies every item under a single journal entry and a single
// lock hold, so the whole batch is visible atomically.
func (e *Engine) BulkSet(items []Item, simulateDrop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	bulkItems := make([]bulkItem, len(items))
	for i, it := range items {
		bulkItems[i] = bulkItem{Key: it.Key, Value: it.Value}
	}
	if err := e.journal.AppendBulkSet(bulkItems); err != nil {
		return fmt.Errorf("store: bulk_set: %w", err)
	}
	for _, it := range items {
		if prior, ok := e.data[it.Key]; ok {
			e.unindexValue(it.Key, prior)
		}
		e.data[it.Key] = it.Value
		e.indexValue(it.Key, it.Value)
	}
	return e.journal.SaveSnapshot(e.data, simulateDrop)
}

// AddVector is sugar for Set(key, {"vector": vec}, ...).
func (e *Engine) AddVector(key string, vec []float64, simulateDrop bool) error {
	arr := make(Array, len(vec))
	for i, f := range vec {
		arr[i] = Number(f)
	}
	return e.Set(key, Object{"vector": arr}, simulateDrop)
}

// ApplyReplication applies a replicated mutation event with no further
// fan-out. Unknown ops are a protocol error.
func (e *Engine) ApplyReplication(op string, payload map[string]any) error {
	switch op {
	case "set":
		key, _ := payload["key"].(string)
		return e.Set(key, FromAny(payload["value"]), false)
	case "delete":
		key, _ := payload["key"].(string)
		return e.Delete(key, false)
	case "bulk_set":
		raw, _ := payload["items"].([]any)
		items := make([]Item, 0, len(raw))
		for _, elem := range raw {
			pair, ok := elem.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			key, _ := pair[0].(string)
			items = append(items, Item{Key: key, Value: FromAny(pair[1])})
		}
		return e.BulkSet(items, false)
	case "add_vector":
		key, _ := payload["key"].(string)
		rawVec, _ := payload["vector"].([]any)
		vec := make([]float64, len(rawVec))
		for i, v := range rawVec {
			f, _ := v.(float64)
			vec[i] = f
		}
		return e.AddVector(key, vec, false)
	default:
		return fmt.Errorf("store: apply_replication: unknown op %q", op)
	}
}

// SearchByValue returns the keys bound to exactly val, in insertion order.
func (e *Engine) SearchByValue(val Value) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	hv, ok := Hashable(val)
	if !ok {
		return nil
	}
	return e.valueIndex.Search(hv)
}

// SearchText returns the keys whose extracted text contains term.
func (e *Engine) SearchText(term string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.textIndex.Search(term)
}

// VectorSearch returns up to topK keys ranked by descending cosine
// similarity to query (topK <= 0 defaults to 5, matching the wire
// protocol's default).
func (e *Engine) VectorSearch(query []float64, topK int) []Scored {
	e.mu.Lock()
	defer e.mu.Unlock()
	if topK <= 0 {
		topK = 5
	}
	return e.vecIndex.Search(query, topK)
}
