package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_SendRecv(t *testing.T) {
	var gotChannel uint32
	tr := Func(func(channel uint32, req []byte) ([]byte, error) {
		gotChannel = channel
		return append([]byte("ok:"), req...), nil
	})

	words, n, err := tr.SendRecv(20, []byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, uint32(20), gotChannel)
	assert.Equal(t, 5, n)
	assert.Len(t, words, 2)

	b, err := Bytes(words, n)
	require.NoError(t, err)
	assert.Equal(t, "ok:ab", string(b))
}

func TestFunc_Error(t *testing.T) {
	boom := errors.New("boom")
	tr := Func(func(uint32, []byte) ([]byte, error) { return nil, boom })
	_, _, err := tr.SendRecv(1, nil)
	assert.ErrorIs(t, err, boom)
}

func TestBytes_LengthChecked(t *testing.T) {
	_, err := Bytes([]uint32{1}, 5)
	assert.Error(t, err)

	b, err := Bytes(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestUnavailable(t *testing.T) {
	_, _, err := Unavailable{}.SendRecv(3, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no host attached")
}
