// Package memory provides the word-addressed guest memory bank.
//
// Word loads and stores are atomic so that writes observed by the host
// through memory-mapped registers behave like volatile accesses.
package memory

import (
	"errors"
	"sync/atomic"

	"github.com/reglet-dev/zkguest/platform"
)

var (
	ErrOutOfBounds = errors.New("address out of bounds")
	ErrMisaligned  = errors.New("address is not word aligned")
	ErrSealed      = errors.New("write into sealed write-once memory")
)

// View is read access to guest memory, as the host sees it.
type View interface {
	Size() uint32
	ReadAt(addr uint32, dst []byte) error
	LoadWord(addr uint32) (uint32, error)
}

// Bank is the guest address space.
type Bank interface {
	View
	WriteAt(addr uint32, src []byte) error
	StoreWord(addr uint32, val uint32) error
	// Words returns the region's words. The slice aliases the bank, and
	// stores through it are not checked against seals.
	Words(r platform.Region) []uint32
	// Seal marks [addr, addr+n) write-once: later writes through the bank fail.
	Seal(addr, n uint32) error
	// Unseal drops every seal overlapping [addr, addr+n).
	Unseal(addr, n uint32)
	Sealed(addr uint32) bool
}

var fence uint32

// Barrier orders every preceding memory access before any later one.
// sync/atomic operations are sequentially consistent, so an atomic
// read-modify-write acts as a full fence.
func Barrier() {
	atomic.AddUint32(&fence, 1)
}

// ReadCString reads a NUL-terminated string starting at addr, scanning at
// most max bytes. The terminator is required.
func ReadCString(v View, addr uint32, max int) (string, error) {
	var out []byte
	var word [platform.WordSize]byte
	// Read word-wise from the aligned address below addr.
	base := addr &^ (platform.WordSize - 1)
	skip := int(addr - base)
	for scanned := 0; scanned < max; base += platform.WordSize {
		if err := v.ReadAt(base, word[:]); err != nil {
			return "", err
		}
		for _, b := range word[skip:] {
			if b == 0 {
				return string(out), nil
			}
			out = append(out, b)
			scanned++
			if scanned == max {
				break
			}
		}
		skip = 0
	}
	return "", errors.New("string is not NUL terminated")
}
