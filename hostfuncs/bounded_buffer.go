package hostfuncs

import "bytes"

// DefaultMaxStdout caps the guest stdout a session keeps (1MB).
const DefaultMaxStdout = 1 << 20

// BoundedBuffer keeps the first limit bytes written to it and counts the
// rest. Writes never fail, so a chatty guest cannot fail its own run.
type BoundedBuffer struct {
	buf     bytes.Buffer
	limit   int
	dropped int
}

// NewBoundedBuffer creates a BoundedBuffer holding at most limit bytes.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{limit: limit}
}

// Write implements io.Writer.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	room := max(0, b.limit-b.buf.Len())
	if len(p) > room {
		b.dropped += len(p) - room
		b.buf.Write(p[:room])
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// Bytes returns the kept bytes.
func (b *BoundedBuffer) Bytes() []byte { return b.buf.Bytes() }

// String returns the kept bytes as a string.
func (b *BoundedBuffer) String() string { return b.buf.String() }

// Len returns the number of kept bytes.
func (b *BoundedBuffer) Len() int { return b.buf.Len() }

// Truncated reports whether any bytes were dropped.
func (b *BoundedBuffer) Truncated() bool { return b.dropped > 0 }

// Dropped returns the number of bytes dropped.
func (b *BoundedBuffer) Dropped() int { return b.dropped }

// Reset empties the buffer.
func (b *BoundedBuffer) Reset() {
	b.buf.Reset()
	b.dropped = 0
}
