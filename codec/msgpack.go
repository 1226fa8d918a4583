package codec

import (
	"errors"

	"github.com/hooklab/dispatch"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack implements Codec using MessagePack serialization.
// MessagePack is a binary format that's more compact than JSON
// while maintaining schema-less flexibility.
type MsgPack struct{}

// msgpackEvent is the MessagePack wire format
type msgpackEvent struct {
	ID     string `msgpack:"id"`
	Type   string `msgpack:"type"`
	Object any    `msgpack:"object"`
}

// Encode serializes an event to MessagePack bytes
func (c MsgPack) Encode(evt *dispatch.Event) ([]byte, error) {
	me := msgpackEvent{
		ID:     evt.ID,
		Type:   evt.Type,
		Object: evt.Data.Object,
	}
	data, err := msgpack.Marshal(me)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	return data, nil
}

// Decode deserializes MessagePack bytes to an event
func (c MsgPack) Decode(data []byte) (*dispatch.Event, error) {
	var me msgpackEvent
	if err := msgpack.Unmarshal(data, &me); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	if me.Type == "" {
		return nil, ErrMissingType
	}
	return &dispatch.Event{
		ID:   me.ID,
		Type: me.Type,
		Data: dispatch.EventData{Object: me.Object},
	}, nil
}

// ContentType returns the MIME type for MessagePack
func (c MsgPack) ContentType() string {
	return "application/msgpack"
}

// Name returns the codec identifier
func (c MsgPack) Name() string {
	return "msgpack"
}

// Compile-time check
var _ Codec = MsgPack{}
