//go:build wasip1

package transport

import (
	"runtime"

	"github.com/reglet-dev/zkguest/internal/abi"
	"github.com/reglet-dev/zkguest/platform"
)

// host_sendrecv blocks until the host answers and returns the response
// length in bytes. The host keeps the response until host_recv collects it.
//
//go:wasmimport zkvm sendrecv
//nolint:revive // intentional snake_case to match WASM import convention
func host_sendrecv(channel uint32, requestPacked uint64) uint32

// host_recv copies the pending response, zero padded to a word, into the
// packed destination and returns the number of bytes written.
//
//go:wasmimport zkvm recv
//nolint:revive // intentional snake_case to match WASM import convention
func host_recv(destPacked uint64) uint32

// Host is the transport of a guest running under a zkvm WASM host.
type Host struct{}

// SendRecv implements Transport.
func (Host) SendRecv(channel uint32, req []byte) ([]uint32, int, error) {
	n := int(host_sendrecv(channel, abi.Pack(req)))
	runtime.KeepAlive(req)

	words := make([]uint32, platform.AlignUp(n)/platform.WordSize)
	if len(words) > 0 {
		host_recv(abi.PackWords(words))
		runtime.KeepAlive(words)
	}
	return words, n, nil
}
