// Package codec provides pluggable value serialization used for
// snapshot cloning fallbacks.
package codec

import "encoding/json"

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// Roundtrip produces an isolated copy of v by serializing and re-parsing it.
// Only plain-data values survive this unchanged; anything carrying identity
// (keyed collections, custom time types) should implement its own clone
// instead of relying on Roundtrip.
func Roundtrip[T any](c Codec, v T) (T, error) {
	var out T
	data, err := c.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := c.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
