//go:build wasip1

package memory

import "unsafe"

// Base returns the bank's address in WASM linear memory. Guest addresses
// handed to the host are offsets from it.
func (m *InMemory) Base() uint32 {
	if len(m.words) == 0 {
		return 0
	}
	// WASM linear memory: uint32 offset <-> pointer conversion is valid
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return uint32(uintptr(unsafe.Pointer(&m.words[0])))
}
