package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineSetGetDelete(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("k1", String("v1"), false))
	v, ok := e.Get("k1")
	require.True(t, ok)
	assert.Equal(t, String("v1"), v)

	require.NoError(t, e.Delete("k1", false))
	_, ok = e.Get("k1")
	assert.False(t, ok)
}

func TestEnginePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	e, err := NewEngine(dir, 0)
	require.NoError(t, err)
	require.NoError(t, e.Set("persist", String("yes"), false))
	require.NoError(t, e.Close())

	e2, err := NewEngine(dir, 0)
	require.NoError(t, err)
	defer e2.Close()

	v, ok := e2.Get("persist")
	require.True(t, ok)
	assert.Equal(t, String("yes"), v)
}

func TestEngineBulkSetAppliesAllItems(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	items := []Item{
		{Key: "k1", Value: String("A1")},
		{Key: "k2", Value: String("A2")},
		{Key: "k3", Value: String("A3")},
	}
	require.NoError(t, e.BulkSet(items, false))

	for _, it := range items {
		v, ok := e.Get(it.Key)
		require.True(t, ok)
		assert.Equal(t, it.Value, v)
	}
}

func TestEngineTextSearch(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("doc1", String("hello world"), false))
	require.NoError(t, e.Set("doc2", Object{"text": String("hello kv store")}, false))

	keys := e.SearchText("hello")
	assert.ElementsMatch(t, []string{"doc1", "doc2"}, keys)
}

func TestEngineExactValueSearchPreservesInsertionOrder(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("k1", String("blue"), false))
	require.NoError(t, e.Set("k2", String("blue"), false))
	require.NoError(t, e.Set("k3", String("red"), false))

	assert.Equal(t, []string{"k1", "k2"}, e.SearchByValue(String("blue")))
}

func TestEngineVectorSearchRanksAndScores(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AddVector("v1", []float64{1, 0}, false))
	require.NoError(t, e.AddVector("v2", []float64{0, 1}, false))

	results := e.VectorSearch([]float64{1, 0}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].Key)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestEngineReindexesOnValueOverwrite(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("k1", String("blue"), false))
	require.NoError(t, e.Set("k1", String("red"), false))

	assert.Empty(t, e.SearchByValue(String("blue")))
	assert.Equal(t, []string{"k1"}, e.SearchByValue(String("red")))
}

func TestEngineApplyReplicationSet(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	err = e.ApplyReplication("set", map[string]any{"key": "k1", "value": "v1"})
	require.NoError(t, err)

	v, ok := e.Get("k1")
	require.True(t, ok)
	assert.Equal(t, String("v1"), v)
}

func TestEngineApplyReplicationUnknownOpErrors(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 0)
	require.NoError(t, err)
	defer e.Close()

	err = e.ApplyReplication("frobnicate", map[string]any{})
	assert.Error(t, err)
}

func TestEngineRebuildsIndexesOnStartup(t *testing.T) {
	dir := t.TempDir()

	e, err := NewEngine(dir, 0)
	require.NoError(t, err)
	require.NoError(t, e.Set("doc1", String("hello world"), false))
	require.NoError(t, e.Close())

	e2, err := NewEngine(dir, 0)
	require.NoError(t, err)
	defer e2.Close()

	assert.Equal(t, []string{"doc1"}, e2.SearchText("hello"))
}
