package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes values stored through a Layer.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Determinism: Unmarshal(Marshal(v)) must reproduce v for every type the
// Layer is asked to store.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec encodes values with MessagePack.
type MsgpackCodec struct{}

// Marshal implements Codec.
func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache: msgpack marshal: %w", err)
	}
	return b, nil
}

// Unmarshal implements Codec.
func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cache: msgpack unmarshal: %w", err)
	}
	return nil
}

var _ Codec = MsgpackCodec{}
