package store

import "strings"

// TextIndex is an inverted index from lowercased whitespace token to the
// ordered list of keys whose text contains that token, grounded on
// lookup_tables.py's FullTextIndex. A key is appended once per occurrence
// of a token in its text — a key whose text repeats a word appears in
// that token's key list that many times.
type TextIndex struct {
	entries map[string][]string
}

// NewTextIndex returns an empty inverted text index.
func NewTextIndex() *TextIndex {
	return &TextIndex{entries: make(map[string][]string)}
}

// AddDocument tokenizes text and records key against every token.
func (idx *TextIndex) AddDocument(key, text string) {
	for _, token := range Tokenize(text) {
		idx.entries[token] = append(idx.entries[token], key)
	}
}

// RemoveDocument tokenizes text and removes every occurrence of key from
// every token's key list that text produces.
func (idx *TextIndex) RemoveDocument(key, text string) {
	for _, token := range Tokenize(text) {
		keys := idx.entries[token]
		if len(keys) == 0 {
			continue
		}
		filtered := keys[:0]
		for _, k := range keys {
			if k != key {
				filtered = append(filtered, k)
			}
		}
		if len(filtered) == 0 {
			delete(idx.entries, token)
		} else {
			idx.entries[token] = filtered
		}
	}
}

// Search returns the keys recorded against term, case-insensitively. Unlike
// AddDocument/RemoveDocument, term is matched as a single literal token —
// it is lowercased but not split on whitespace.
func (idx *TextIndex) Search(term string) []string {
	keys := idx.entries[strings.ToLower(term)]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}
