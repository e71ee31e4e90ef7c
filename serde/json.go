package serde

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"

	zkerrors "github.com/reglet-dev/zkguest/errors"
)

// jsonCodec writes one JSON document per value, each terminated by a
// newline. Encodings are not word aligned.
type jsonCodec struct{}

func (jsonCodec) Name() string { return NameJSON }

func (jsonCodec) Append(dst []byte, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return dst, &zkerrors.EncodeError{Type: typeName(v), Err: err}
	}
	dst = append(dst, b...)
	return append(dst, '\n'), nil
}

func (jsonCodec) Decode(src []byte, v any) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, &zkerrors.DecodeError{Type: typeName(v), Err: err}
	}
	n := int(dec.InputOffset())
	for n < len(src) && isSpace(src[n]) {
		n++
	}
	return n, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
