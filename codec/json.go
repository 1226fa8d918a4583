package codec

import (
	"encoding/json"
	"errors"

	"github.com/hooklab/dispatch"
)

// JSON implements Codec using JSON serialization.
// This is the default codec and matches the wire form webhook
// providers deliver: {"id": ..., "type": ..., "data": {"object": ...}}.
type JSON struct{}

// Encode serializes an event to JSON bytes
func (c JSON) Encode(evt *dispatch.Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	return data, nil
}

// Decode deserializes JSON bytes to an event
func (c JSON) Decode(data []byte) (*dispatch.Event, error) {
	var evt dispatch.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	if evt.Type == "" {
		return nil, ErrMissingType
	}
	return &evt, nil
}

// ContentType returns the MIME type for JSON
func (c JSON) ContentType() string {
	return "application/json"
}

// Name returns the codec identifier
func (c JSON) Name() string {
	return "json"
}

// Compile-time check
var _ Codec = JSON{}
