package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecName replaces the default protojson codec.
const codecName = "json"

// jsonCodec encodes messages as plain JSON.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
