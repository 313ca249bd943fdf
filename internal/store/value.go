// Package store implements the durability layer (journal + snapshot),
// the three secondary indexes, and the storage engine that ties them
// together behind a single mutex.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Value is any JSON-representable datum a key can be bound to: null,
// bool, number, string, array, or object. It is the Go sum type named
// in spec.md §9's design note — "represent values as a sum type ...
// index extraction pattern-matches on this sum."
type Value interface {
	value()
}

type (
	Null   struct{}
	Bool   bool
	Number float64
	String string
	Array  []Value
	Object map[string]Value
)

func (Null) value()   {}
func (Bool) value()   {}
func (Number) value() {}
func (String) value() {}
func (Array) value()  {}
func (Object) value() {}

// FromAny converts a value decoded by encoding/json (map[string]any,
// []any, float64, string, bool, nil) into a Value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		arr := make(Array, len(t))
		for i, elem := range t {
			arr[i] = FromAny(elem)
		}
		return arr
	case map[string]any:
		obj := make(Object, len(t))
		for k, elem := range t {
			obj[k] = FromAny(elem)
		}
		return obj
	default:
		panic(fmt.Sprintf("store: value: unsupported type %T", v))
	}
}

// ToAny converts a Value back into the encoding/json-friendly shape
// FromAny accepts, for re-serialization or wire-response payloads.
func ToAny(v Value) any {
	switch t := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(t)
	case Number:
		return float64(t)
	case String:
		return string(t)
	case Array:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes a Value as plain JSON by way of ToAny. It is a
// package-level function, not a method, so encoding/json does not call it
// on its own; callers that hold a Value convert it explicitly.
func MarshalJSON(v Value) ([]byte, error) {
	return json.Marshal(ToAny(v))
}

// UnmarshalValue decodes raw JSON bytes into a Value.
func UnmarshalValue(raw []byte) (Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return FromAny(v), nil
}

// Hashable reports whether v can be used as an exact-value index key, and
// returns the comparable Go value to use as that key. Only null, bool,
// number and string are hashable — arrays and objects are not, mirroring
// Python's hash(value) raising TypeError for list/dict.
func Hashable(v Value) (any, bool) {
	switch t := v.(type) {
	case Null:
		return nil, true
	case Bool:
		return bool(t), true
	case Number:
		return float64(t), true
	case String:
		return string(t), true
	default:
		return nil, false
	}
}

// ExtractText returns the text content of a value for the text index: a
// plain string value, or an object with a string "text" field. Returns
// ("", false) otherwise.
func ExtractText(v Value) (string, bool) {
	switch t := v.(type) {
	case String:
		return string(t), true
	case Object:
		if text, ok := t["text"]; ok {
			if s, ok := text.(String); ok {
				return string(s), true
			}
		}
	}
	return "", false
}

// ExtractVector returns the numeric vector of a value for the vector
// index: an object with a "vector" field containing an array of numbers.
func ExtractVector(v Value) ([]float64, bool) {
	obj, ok := v.(Object)
	if !ok {
		return nil, false
	}
	field, ok := obj["vector"]
	if !ok {
		return nil, false
	}
	arr, ok := field.(Array)
	if !ok {
		return nil, false
	}
	vec := make([]float64, len(arr))
	for i, elem := range arr {
		n, ok := elem.(Number)
		if !ok {
			return nil, false
		}
		vec[i] = float64(n)
	}
	return vec, true
}

// Tokenize splits s into lowercase whitespace-delimited tokens, matching
// the original Python's text.split() + token.lower().
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
