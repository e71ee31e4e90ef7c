package serde

import (
	"encoding/binary"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/platform"
)

// Serializer appends encoded values into the words of one memory region.
// It never writes past the region: a value that does not fit is rejected
// whole and the region is left unchanged.
type Serializer struct {
	codec  Codec
	region platform.Region
	words  []uint32
	pos    int // bytes written
	mark   int // start of the unreleased bytes
	buf    []byte
}

// NewSerializer binds a serializer to region, whose words are backed by words.
func NewSerializer(c Codec, region platform.Region, words []uint32) *Serializer {
	return &Serializer{codec: c, region: region, words: words}
}

// Encode appends v at the current offset.
func (s *Serializer) Encode(v any) error {
	var err error
	s.buf, err = s.codec.Append(s.buf[:0], v)
	if err != nil {
		return err
	}
	have := len(s.words) * platform.WordSize
	if s.pos+len(s.buf) > have {
		return &zkerrors.CapacityError{Region: s.region.Name, Need: s.pos + len(s.buf), Have: have}
	}
	putBytes(s.words, s.pos, s.buf)
	s.pos += len(s.buf)
	return nil
}

// Release returns the bytes encoded since the previous release. Later
// encodes continue after them.
func (s *Serializer) Release() []byte {
	out := make([]byte, s.pos-s.mark)
	getBytes(s.words, s.mark, out)
	s.mark = s.pos
	return out
}

// Reset discards everything written, zeroing the used words, so the region
// can be reused from its start.
func (s *Serializer) Reset() {
	used := platform.AlignUp(s.pos) / platform.WordSize
	for i := 0; i < used; i++ {
		s.words[i] = 0
	}
	s.pos, s.mark = 0, 0
}

// Len returns the number of bytes written since the last Reset.
func (s *Serializer) Len() int { return s.pos }

// Region returns the region the serializer is bound to.
func (s *Serializer) Region() platform.Region { return s.region }

func putBytes(words []uint32, off int, b []byte) {
	for len(b) > 0 {
		idx, shift := off/platform.WordSize, off%platform.WordSize
		if shift == 0 && len(b) >= platform.WordSize {
			words[idx] = binary.LittleEndian.Uint32(b)
			b, off = b[platform.WordSize:], off+platform.WordSize
			continue
		}
		sh := uint(8 * shift)
		words[idx] = words[idx]&^(0xFF<<sh) | uint32(b[0])<<sh
		b, off = b[1:], off+1
	}
}

func getBytes(words []uint32, off int, dst []byte) {
	for i := range dst {
		a := off + i
		dst[i] = byte(words[a/platform.WordSize] >> (8 * uint(a%platform.WordSize)))
	}
}

// Deserializer decodes values in order from a word buffer.
type Deserializer struct {
	codec Codec
	src   []byte
	off   int
}

// NewDeserializer reads the first nbytes of words.
func NewDeserializer(c Codec, words []uint32, nbytes int) *Deserializer {
	if max := len(words) * platform.WordSize; nbytes > max {
		nbytes = max
	}
	src := make([]byte, nbytes)
	getBytes(words, 0, src)
	return &Deserializer{codec: c, src: src}
}

// Decode decodes the next value into v. Exhausted or malformed input
// yields a *errors.DecodeError carrying the absolute byte offset.
func (d *Deserializer) Decode(v any) error {
	n, err := d.codec.Decode(d.src[d.off:], v)
	if err != nil {
		if de, ok := err.(*zkerrors.DecodeError); ok {
			de.Offset += d.off
			return de
		}
		return &zkerrors.DecodeError{Offset: d.off, Err: err}
	}
	d.off += n
	return nil
}

// Remaining returns the number of undecoded bytes.
func (d *Deserializer) Remaining() int {
	return len(d.src) - d.off
}
