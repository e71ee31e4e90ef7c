// Package transport is the guest end of the host channel: a synchronous,
// blocking exchange of one request buffer for one word-aligned response.
//
// There is no timeout and no cancellation. The host answers every
// well-formed request; an unresponsive host is outside the failure model.
package transport

import (
	"fmt"

	"github.com/reglet-dev/zkguest/platform"
)

// Transport exchanges a request with the host over a numbered channel.
// The response is returned as words together with its length in bytes.
type Transport interface {
	SendRecv(channel uint32, req []byte) (words []uint32, nbytes int, err error)
}

// Func adapts a byte-level exchange function to Transport.
type Func func(channel uint32, req []byte) ([]byte, error)

// SendRecv implements Transport.
func (f Func) SendRecv(channel uint32, req []byte) ([]uint32, int, error) {
	resp, err := f(channel, req)
	if err != nil {
		return nil, 0, err
	}
	return platform.BytesToWords(resp), len(resp), nil
}

// Bytes truncates a word response to its reported byte length.
func Bytes(words []uint32, nbytes int) ([]byte, error) {
	if nbytes < 0 || nbytes > len(words)*platform.WordSize {
		return nil, fmt.Errorf("response length %d exceeds %d words", nbytes, len(words))
	}
	return platform.WordsToBytes(words)[:nbytes], nil
}

// Unavailable is the transport of an environment with no host attached.
// Every exchange fails.
type Unavailable struct{}

// SendRecv implements Transport.
func (Unavailable) SendRecv(channel uint32, _ []byte) ([]uint32, int, error) {
	return nil, 0, fmt.Errorf("channel %d: no host attached", channel)
}
