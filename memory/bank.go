package memory

import (
	"encoding/binary"
	"sort"
	"sync/atomic"

	"github.com/reglet-dev/zkguest/platform"
)

// InMemory stores the guest address space in a word slice.
type InMemory struct {
	words  []uint32
	sealed []span
}

type span struct {
	start, end uint32
}

// NewInMemory creates a zeroed bank of size bytes, rounded up to a word.
func NewInMemory(size uint32) *InMemory {
	return &InMemory{
		words: make([]uint32, platform.AlignUp(int(size))/platform.WordSize),
	}
}

// ForLayout creates a bank large enough to back every region of l.
func ForLayout(l platform.Layout) *InMemory {
	return NewInMemory(l.Size())
}

func (m *InMemory) Size() uint32 {
	return uint32(len(m.words) * platform.WordSize)
}

func (m *InMemory) check(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(m.Size()) {
		return ErrOutOfBounds
	}
	return nil
}

func (m *InMemory) ReadAt(addr uint32, dst []byte) error {
	if err := m.check(addr, len(dst)); err != nil {
		return err
	}
	for i := range dst {
		a := addr + uint32(i)
		w := atomic.LoadUint32(&m.words[a/platform.WordSize])
		dst[i] = byte(w >> (8 * (a % platform.WordSize)))
	}
	return nil
}

func (m *InMemory) WriteAt(addr uint32, src []byte) error {
	if err := m.check(addr, len(src)); err != nil {
		return err
	}
	if m.overlapsSealed(addr, uint32(len(src))) {
		return ErrSealed
	}
	for i, b := range src {
		a := addr + uint32(i)
		idx := a / platform.WordSize
		shift := 8 * (a % platform.WordSize)
		w := m.words[idx]
		w = w&^(0xFF<<shift) | uint32(b)<<shift
		atomic.StoreUint32(&m.words[idx], w)
	}
	return nil
}

func (m *InMemory) LoadWord(addr uint32) (uint32, error) {
	if addr%platform.WordSize != 0 {
		return 0, ErrMisaligned
	}
	if err := m.check(addr, platform.WordSize); err != nil {
		return 0, err
	}
	return atomic.LoadUint32(&m.words[addr/platform.WordSize]), nil
}

func (m *InMemory) StoreWord(addr uint32, val uint32) error {
	if addr%platform.WordSize != 0 {
		return ErrMisaligned
	}
	if err := m.check(addr, platform.WordSize); err != nil {
		return err
	}
	if m.overlapsSealed(addr, platform.WordSize) {
		return ErrSealed
	}
	atomic.StoreUint32(&m.words[addr/platform.WordSize], val)
	return nil
}

// Words panics if the region does not fit the bank; layouts are validated
// before a bank is bound to them.
func (m *InMemory) Words(r platform.Region) []uint32 {
	start := r.Start / platform.WordSize
	return m.words[start : start+uint32(r.LenWords()) : start+uint32(r.LenWords())]
}

func (m *InMemory) Seal(addr, n uint32) error {
	if err := m.check(addr, int(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	m.sealed = append(m.sealed, span{start: addr, end: addr + n})
	sort.Slice(m.sealed, func(i, j int) bool { return m.sealed[i].start < m.sealed[j].start })
	return nil
}

func (m *InMemory) Unseal(addr, n uint32) {
	end := addr + n
	kept := m.sealed[:0]
	for _, s := range m.sealed {
		if s.start < end && s.end > addr {
			continue
		}
		kept = append(kept, s)
	}
	m.sealed = kept
}

func (m *InMemory) Sealed(addr uint32) bool {
	return m.overlapsSealed(addr, 1)
}

func (m *InMemory) overlapsSealed(addr, n uint32) bool {
	end := addr + n
	for _, s := range m.sealed {
		if s.start >= end {
			break
		}
		if s.end > addr {
			return true
		}
	}
	return false
}

// Snapshot copies the bank's bytes in little-endian memory order.
func (m *InMemory) Snapshot() []byte {
	out := make([]byte, m.Size())
	for i := range m.words {
		binary.LittleEndian.PutUint32(out[i*platform.WordSize:], atomic.LoadUint32(&m.words[i]))
	}
	return out
}
