package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactIndexAddSearchRemove(t *testing.T) {
	idx := NewExactIndex()
	idx.Add("x", "k1")
	idx.Add("x", "k2")
	assert.Equal(t, []string{"k1", "k2"}, idx.Search("x"))

	idx.Remove("x", "k1")
	assert.Equal(t, []string{"k2"}, idx.Search("x"))

	idx.Remove("x", "k2")
	assert.Empty(t, idx.Search("x"))
}

func TestTextIndexAddSearchRemove(t *testing.T) {
	idx := NewTextIndex()
	idx.AddDocument("doc1", "the quick brown fox")
	idx.AddDocument("doc2", "the lazy fox")

	assert.ElementsMatch(t, []string{"doc1", "doc2"}, idx.Search("the"))
	assert.ElementsMatch(t, []string{"doc1", "doc2"}, idx.Search("Fox"))
	assert.Equal(t, []string{"doc1"}, idx.Search("quick"))

	idx.RemoveDocument("doc1", "the quick brown fox")
	assert.Equal(t, []string{"doc2"}, idx.Search("the"))
	assert.Empty(t, idx.Search("quick"))
}

func TestTextIndexDuplicateTokensAppendMultipleTimes(t *testing.T) {
	idx := NewTextIndex()
	idx.AddDocument("doc1", "fox fox fox")
	assert.Equal(t, []string{"doc1", "doc1", "doc1"}, idx.Search("fox"))
}

func TestVectorIndexSearchRanksBySimilarity(t *testing.T) {
	idx := NewVectorIndex()
	idx.AddVector("a", []float64{1, 0})
	idx.AddVector("b", []float64{0, 1})
	idx.AddVector("c", []float64{1, 1})

	results := idx.Search([]float64{1, 0}, 0)
	assert.Equal(t, "a", results[0].Key)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestVectorIndexSearchRespectsTopK(t *testing.T) {
	idx := NewVectorIndex()
	idx.AddVector("a", []float64{1, 0})
	idx.AddVector("b", []float64{0.9, 0.1})
	idx.AddVector("c", []float64{0, 1})

	results := idx.Search([]float64{1, 0}, 1)
	assert.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Key)
}

func TestVectorIndexSkipsMismatchedOrZeroVectors(t *testing.T) {
	idx := NewVectorIndex()
	idx.AddVector("short", []float64{1})
	idx.AddVector("zero", []float64{0, 0})
	idx.AddVector("ok", []float64{1, 1})

	results := idx.Search([]float64{1, 1}, 0)
	assert.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Key)
}

func TestVectorIndexRemoveVector(t *testing.T) {
	idx := NewVectorIndex()
	idx.AddVector("a", []float64{1, 0})
	idx.RemoveVector("a")
	assert.Empty(t, idx.Search([]float64{1, 0}, 0))
}
