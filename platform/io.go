package platform

import (
	"encoding/binary"
	"fmt"
)

// Digest-or-raw threshold of the Finalization Result. Journals up to this
// size are echoed verbatim instead of digested.
const (
	DigestWords          = 8
	DigestThresholdWords = DigestWords
	DigestThresholdBytes = DigestThresholdWords * WordSize
)

// ResultWords is the size of the Finalization Result record.
const ResultWords = DigestWords + 1

// IoDescriptorSize is the encoded size of an IoDescriptor.
const IoDescriptorSize = 8

// IoDescriptor points the host at a block of guest memory.
type IoDescriptor struct {
	Size uint32 // bytes
	Addr uint32
}

// MarshalBinary encodes the descriptor as two little-endian words {size, addr}.
func (d IoDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, IoDescriptorSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.Size)
	binary.LittleEndian.PutUint32(buf[4:8], d.Addr)
	return buf, nil
}

// UnmarshalBinary decodes a descriptor written by MarshalBinary.
func (d *IoDescriptor) UnmarshalBinary(data []byte) error {
	if len(data) < IoDescriptorSize {
		return fmt.Errorf("io descriptor: need %d bytes, got %d", IoDescriptorSize, len(data))
	}
	d.Size = binary.LittleEndian.Uint32(data[0:4])
	d.Addr = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// Result is the Finalization Result: words 0-7 hold the raw journal
// (zero padded) or its digest, word 8 holds the journal length in bytes.
type Result [ResultWords]uint32

// Digest returns the digest-or-raw words.
func (r Result) Digest() [DigestWords]uint32 {
	var d [DigestWords]uint32
	copy(d[:], r[:DigestWords])
	return d
}

// Len returns the committed journal length in bytes.
func (r Result) Len() uint32 {
	return r[DigestWords]
}

// IsRaw reports whether the digest words carry the journal verbatim.
func (r Result) IsRaw() bool {
	return r.Len() <= DigestThresholdBytes
}

// Bytes returns the digest words in memory order.
func (r Result) Bytes() []byte {
	return WordsToBytes(r[:DigestWords])
}

// WordsToBytes lays words out in little-endian memory order.
func WordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*WordSize:], w)
	}
	return buf
}

// BytesToWords packs bytes into little-endian words, zero padding the tail.
func BytesToWords(b []byte) []uint32 {
	words := make([]uint32, AlignUp(len(b))/WordSize)
	for i := range words {
		var tmp [WordSize]byte
		copy(tmp[:], b[i*WordSize:])
		words[i] = binary.LittleEndian.Uint32(tmp[:])
	}
	return words
}

// AlignUp rounds n up to a multiple of WordSize.
func AlignUp(n int) int {
	return (n + WordSize - 1) &^ (WordSize - 1)
}
