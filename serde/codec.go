// Package serde encodes typed values into guest memory regions and decodes
// them back from host-supplied word buffers.
//
// Two codecs are provided. Word lays every value out in 32-bit words, the
// native unit of the guest; JSON writes newline-delimited JSON documents.
// Journals are the concatenation of every committed encoding, so a codec
// must decode a sequence of values from their concatenated encodings.
package serde

import (
	"fmt"

	zkerrors "github.com/reglet-dev/zkguest/errors"
)

// Codec encodes and decodes single values.
type Codec interface {
	Name() string
	// Append encodes v and appends it to dst.
	Append(dst []byte, v any) ([]byte, error)
	// Decode decodes the value at the start of src into v, which must be a
	// non-nil pointer, and returns the number of bytes consumed.
	Decode(src []byte, v any) (int, error)
}

// Codec names.
const (
	NameWord = "word"
	NameJSON = "json"
)

// Built-in codecs.
var (
	Word Codec = wordCodec{}
	JSON Codec = jsonCodec{}
)

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case NameWord, "":
		return Word, nil
	case NameJSON:
		return JSON, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// Marshal encodes v with c.
func Marshal(c Codec, v any) ([]byte, error) {
	return c.Append(nil, v)
}

// Unmarshal decodes exactly one value from data into v.
func Unmarshal(c Codec, data []byte, v any) error {
	n, err := c.Decode(data, v)
	if err != nil {
		return err
	}
	if n != len(data) {
		return &zkerrors.DecodeError{Offset: n, Err: fmt.Errorf("%d trailing bytes", len(data)-n)}
	}
	return nil
}
