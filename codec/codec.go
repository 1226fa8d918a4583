// Package codec provides event serialization implementations for the
// ingress adapters.
//
// Supported formats:
//   - JSON (default, human-readable)
//   - MessagePack (binary, compact)
//   - Protocol Buffers (binary, via google.protobuf.Struct)
package codec

import (
	"errors"

	"github.com/hooklab/dispatch"
)

// Codec errors
var (
	ErrEncodeFailure = errors.New("failed to encode event")
	ErrDecodeFailure = errors.New("failed to decode event")
	ErrMissingType   = errors.New("decoded event has no type")
)

// Codec handles event serialization for external transports.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Encode serializes an event to bytes.
	// Returns ErrEncodeFailure if serialization fails.
	Encode(evt *dispatch.Event) ([]byte, error)

	// Decode deserializes bytes to an event.
	// Returns ErrDecodeFailure if deserialization fails and
	// ErrMissingType if the decoded event has no routing key.
	Decode(data []byte) (*dispatch.Event, error)

	// ContentType returns the MIME type for this codec.
	ContentType() string

	// Name returns a short identifier for this codec (e.g., "json").
	Name() string
}

// Default returns the default codec (JSON)
func Default() Codec {
	return JSON{}
}
