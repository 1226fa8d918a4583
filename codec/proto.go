package codec

import (
	"errors"

	"github.com/hooklab/dispatch"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto implements Codec using Protocol Buffers serialization.
// Events are carried as a google.protobuf.Struct, so payloads must be
// JSON-able values (maps, slices, strings, numbers, booleans, nil).
// Decoded payloads come back as the generic structpb mapping
// (map[string]any / []any), the same shape the JSON codec produces.
type Proto struct{}

// Encode serializes an event to Protocol Buffer bytes
func (c Proto) Encode(evt *dispatch.Event) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"id":   evt.ID,
		"type": evt.Type,
		"data": map[string]any{"object": evt.Data.Object},
	})
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	return data, nil
}

// Decode deserializes Protocol Buffer bytes to an event
func (c Proto) Decode(data []byte) (*dispatch.Event, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	fields := st.AsMap()

	evt := &dispatch.Event{}
	if id, ok := fields["id"].(string); ok {
		evt.ID = id
	}
	if eventType, ok := fields["type"].(string); ok {
		evt.Type = eventType
	}
	if evt.Type == "" {
		return nil, ErrMissingType
	}
	if d, ok := fields["data"].(map[string]any); ok {
		evt.Data.Object = d["object"]
	}
	return evt, nil
}

// ContentType returns the MIME type for Protocol Buffers
func (c Proto) ContentType() string {
	return "application/x-protobuf"
}

// Name returns the codec identifier
func (c Proto) Name() string {
	return "proto"
}

// Compile-time check
var _ Codec = Proto{}
