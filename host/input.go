package host

import (
	"github.com/reglet-dev/zkguest/serde"
)

// Input builds the initial-input blob served on the input channel. Values
// are encoded back to back in the order the guest reads them.
type Input struct {
	codec serde.Codec
	buf   []byte
	err   error
}

// NewInput creates an empty input encoded with c.
func NewInput(c serde.Codec) *Input {
	return &Input{codec: c}
}

// Add appends v. The first encoding error is kept and reported by Bytes.
func (in *Input) Add(v any) *Input {
	if in.err != nil {
		return in
	}
	in.buf, in.err = in.codec.Append(in.buf, v)
	return in
}

// Bytes returns the encoded blob.
func (in *Input) Bytes() ([]byte, error) {
	if in.err != nil {
		return nil, in.err
	}
	return in.buf, nil
}
