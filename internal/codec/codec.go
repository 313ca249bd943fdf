// Package codec implements the line-framed JSON wire protocol: one JSON
// object per message, terminated by a newline. It performs no schema
// validation beyond "the decoded value is a JSON object".
package codec

import (
	"encoding/json"
	"fmt"
)

// ProtocolError is returned when a frame is malformed JSON or not a JSON
// object at the top level. Handlers translate it into an error response
// and close the connection, per the wire protocol's error contract.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string { return e.msg }

func newProtocolError(msg string) *ProtocolError {
	return &ProtocolError{msg: msg}
}

// Encode serializes a message as compact JSON followed by a trailing newline.
func Encode(msg map[string]any) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		// msg is always built from JSON-safe values by this module's own
		// callers; a marshal failure here means a caller put something
		// unmarshalable (e.g. a channel or func) into the message.
		panic(fmt.Sprintf("codec: encode: %v", err))
	}
	return append(data, '\n')
}

// Decode parses raw as a single JSON object. Anything else — malformed
// JSON, or valid JSON that isn't an object (an array, a string, a number,
// null, ...) — fails with a *ProtocolError.
func Decode(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, newProtocolError("Invalid JSON")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, newProtocolError("Message must be an object")
	}
	return obj, nil
}
