package main

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/zkguest/host"
	"github.com/reglet-dev/zkguest/serde"
)

// inputValue is one typed entry of an input file. JSON numbers alone do not
// say which guest type to encode, so every value names its type.
type inputValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (v inputValue) decode() (any, error) {
	var out any
	switch v.Type {
	case "u32":
		out = new(uint32)
	case "i32":
		out = new(int32)
	case "u64":
		out = new(uint64)
	case "i64":
		out = new(int64)
	case "f64":
		out = new(float64)
	case "bool":
		out = new(bool)
	case "string":
		out = new(string)
	case "bytes":
		out = new([]byte) // base64
	case "u32s":
		out = new([]uint32)
	default:
		return nil, fmt.Errorf("unknown input type %q", v.Type)
	}
	if err := json.Unmarshal(v.Value, out); err != nil {
		return nil, fmt.Errorf("%s value: %w", v.Type, err)
	}
	return out, nil
}

// encodeInput encodes a JSON array of typed values into an initial-input
// blob.
func encodeInput(c serde.Codec, data []byte) ([]byte, error) {
	var vals []inputValue
	if err := json.Unmarshal(data, &vals); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	in := host.NewInput(c)
	for i, v := range vals {
		decoded, err := v.decode()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		in.Add(decoded)
	}
	return in.Bytes()
}
