package stream

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes events for a wire transport.
type Codec interface {
	// Encode serializes an event to bytes.
	Encode(evt *Event) ([]byte, error)

	// Binary reports whether encoded events must travel as binary frames.
	Binary() bool

	// Name returns the codec identifier used in format negotiation.
	Name() string
}

// Codec names for format negotiation.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

// JSONCodec encodes events as JSON text.
type JSONCodec struct{}

func (JSONCodec) Encode(evt *Event) ([]byte, error) { return json.Marshal(evt) }
func (JSONCodec) Binary() bool                      { return false }
func (JSONCodec) Name() string                      { return CodecNameJSON }

// MsgpackCodec encodes events as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(evt *Event) ([]byte, error) { return msgpack.Marshal(evt) }
func (MsgpackCodec) Binary() bool                      { return true }
func (MsgpackCodec) Name() string                      { return CodecNameMsgpack }
