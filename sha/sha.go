// Package sha is the digest primitive used to summarize journals.
//
// Buffers are guest word slices holding little-endian bytes. A message of
// L bytes is digested in place: AddTrailer appends standard SHA-256 padding
// after the message inside a buffer of CapacityNeeded(L) words and
// DigestInto hashes the message the trailer describes.
package sha

import (
	"encoding/binary"
	"fmt"

	sha256 "github.com/minio/sha256-simd"

	zkerrors "github.com/reglet-dev/zkguest/errors"
	"github.com/reglet-dev/zkguest/platform"
)

const (
	blockBytes    = 64
	blockWords    = blockBytes / platform.WordSize
	lengthBytes   = 8
	trailerMark   = 0x80
	maxMessageLen = 1<<61 - 1
)

// MemoryType classifies the memory a trailer is written into.
type MemoryType int

const (
	// MemoryNormal buffers may hold stale bytes past the message; the
	// trailer overwrites them.
	MemoryNormal MemoryType = iota
	// MemoryWOM buffers are write-once: bytes past the message must never
	// have been written, so the trailer is the first and only write there.
	MemoryWOM
)

func (m MemoryType) String() string {
	switch m {
	case MemoryNormal:
		return "normal"
	case MemoryWOM:
		return "wom"
	default:
		return fmt.Sprintf("MemoryType(%d)", int(m))
	}
}

// Digest is the 8-word digest in guest word order.
type Digest [platform.DigestWords]uint32

// Bytes returns the digest as the 32 SHA-256 output bytes.
func (d Digest) Bytes() []byte {
	return platform.WordsToBytes(d[:])
}

// CapacityNeeded returns the number of words a buffer needs to hold a
// message of byteLen bytes plus its trailer.
func CapacityNeeded(byteLen int) int {
	blocks := (byteLen + 1 + lengthBytes + blockBytes - 1) / blockBytes
	return blocks * blockWords
}

// Engine computes digests for one run. After Shutdown it refuses work.
type Engine struct {
	shutdown bool
	blocks   int
}

// New returns a ready engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) check(op string) error {
	if e.shutdown {
		return &zkerrors.StateError{Op: "sha." + op, Reason: "engine is shut down"}
	}
	return nil
}

// AddTrailer writes the padding for a byteLen-byte message into buf, which
// must be exactly CapacityNeeded(byteLen) words.
func (e *Engine) AddTrailer(buf []uint32, byteLen int, mt MemoryType) error {
	if err := e.check("AddTrailer"); err != nil {
		return err
	}
	if byteLen < 0 || byteLen > maxMessageLen {
		return fmt.Errorf("sha: invalid message length %d", byteLen)
	}
	if want := CapacityNeeded(byteLen); len(buf) != want {
		return fmt.Errorf("sha: buffer holds %d words, trailer for %d bytes needs %d", len(buf), byteLen, want)
	}

	end := len(buf) * platform.WordSize
	if mt == MemoryWOM {
		for i := byteLen; i < end; i++ {
			if byteAt(buf, i) != 0 {
				return fmt.Errorf("sha: write-once buffer already written at byte %d", i)
			}
		}
	} else {
		for i := byteLen; i < end; i++ {
			setByte(buf, i, 0)
		}
	}

	setByte(buf, byteLen, trailerMark)
	var bits [lengthBytes]byte
	binary.BigEndian.PutUint64(bits[:], uint64(byteLen)*8)
	for i, b := range bits {
		setByte(buf, end-lengthBytes+i, b)
	}
	return nil
}

// DigestInto validates the trailer in buf and returns the SHA-256 digest of
// the message it describes.
func (e *Engine) DigestInto(buf []uint32) (Digest, error) {
	var d Digest
	if err := e.check("DigestInto"); err != nil {
		return d, err
	}
	byteLen, err := messageLen(buf)
	if err != nil {
		return d, err
	}

	msg := platform.WordsToBytes(buf)[:byteLen]
	sum := sha256.Sum256(msg)
	for i := range d {
		d[i] = binary.LittleEndian.Uint32(sum[i*platform.WordSize:])
	}
	e.blocks += len(buf) / blockWords
	return d, nil
}

// Blocks returns the number of compression blocks digested so far.
func (e *Engine) Blocks() int { return e.blocks }

// Shutdown flushes the engine. Later calls fail with a state error.
func (e *Engine) Shutdown() {
	e.shutdown = true
}

// Sum digests data without an in-place trailer.
func Sum(data []byte) Digest {
	var d Digest
	sum := sha256.Sum256(data)
	for i := range d {
		d[i] = binary.LittleEndian.Uint32(sum[i*platform.WordSize:])
	}
	return d
}

func messageLen(buf []uint32) (int, error) {
	if len(buf) == 0 || len(buf)%blockWords != 0 {
		return 0, fmt.Errorf("sha: buffer of %d words is not whole blocks", len(buf))
	}
	end := len(buf) * platform.WordSize
	var bits [lengthBytes]byte
	for i := range bits {
		bits[i] = byteAt(buf, end-lengthBytes+i)
	}
	n := binary.BigEndian.Uint64(bits[:])
	if n%8 != 0 || n/8 > maxMessageLen {
		return 0, fmt.Errorf("sha: trailer length %d bits is not a byte count", n)
	}
	byteLen := int(n / 8)
	if CapacityNeeded(byteLen) != len(buf) {
		return 0, fmt.Errorf("sha: trailer length %d does not match %d-word buffer", byteLen, len(buf))
	}
	if byteAt(buf, byteLen) != trailerMark {
		return 0, fmt.Errorf("sha: missing trailer marker at byte %d", byteLen)
	}
	for i := byteLen + 1; i < end-lengthBytes; i++ {
		if byteAt(buf, i) != 0 {
			return 0, fmt.Errorf("sha: non-zero padding at byte %d", i)
		}
	}
	return byteLen, nil
}

func byteAt(words []uint32, i int) byte {
	return byte(words[i/platform.WordSize] >> (8 * uint(i%platform.WordSize)))
}

func setByte(words []uint32, i int, b byte) {
	sh := 8 * uint(i%platform.WordSize)
	w := &words[i/platform.WordSize]
	*w = *w&^(0xFF<<sh) | uint32(b)<<sh
}
