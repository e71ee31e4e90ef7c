//go:build wasip1

package abi

import "unsafe"

// Pack returns the packed pointer/length of data without copying it.
// The caller keeps data alive until the host call returns.
func Pack(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return PackPtrLen(uint32(uintptr(unsafe.Pointer(&data[0]))), uint32(len(data)))
}

// PackWords is Pack for a word buffer; the length is in bytes.
func PackWords(words []uint32) uint64 {
	if len(words) == 0 {
		return 0
	}
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return PackPtrLen(uint32(uintptr(unsafe.Pointer(&words[0]))), uint32(len(words)*4))
}
