package host

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/zkguest/env"
	"github.com/reglet-dev/zkguest/serde"
)

func TestReceipt_Verify(t *testing.T) {
	x := newNative(t)
	r, err := x.Execute(context.Background(), func() {
		env.Commit("a journal long enough to be digested by finalize")
	}, nil)
	require.NoError(t, err)
	require.NoError(t, r.Verify())

	tests := []struct {
		name   string
		tamper func(r *Receipt)
	}{
		{"journal byte", func(r *Receipt) { r.Journal[5] ^= 1 }},
		{"length word", func(r *Receipt) { r.Result[8]++ }},
		{"digest word", func(r *Receipt) { r.Result[0] ^= 1 }},
		{"truncated journal", func(r *Receipt) { r.Journal = r.Journal[:8] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *r
			c.Journal = append([]byte(nil), r.Journal...)
			tt.tamper(&c)
			assert.Error(t, c.Verify())
		})
	}
}

func TestReceipt_ID(t *testing.T) {
	x := newNative(t)
	run := func(v uint32) *Receipt {
		r, err := x.Execute(context.Background(), func() { env.Commit(v) }, nil)
		require.NoError(t, err)
		return r
	}
	a, b, c := run(1), run(1), run(2)

	_, err := hex.DecodeString(a.ID())
	require.NoError(t, err)
	assert.Len(t, a.ID(), 64)
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestReceipt_Decode(t *testing.T) {
	r := &Receipt{Codec: serde.NameWord, Journal: input(t, serde.Word, uint32(9), "nine")}
	var n uint32
	var s string
	require.NoError(t, r.Decode(&n, &s))
	assert.Equal(t, uint32(9), n)
	assert.Equal(t, "nine", s)

	assert.Error(t, r.Decode(&n, &s, &n), "journal exhausted")

	r.Codec = "cbor"
	assert.Error(t, r.Decode(&n))
}

func TestInput_KeepsFirstError(t *testing.T) {
	in := NewInput(serde.Word).Add(uint32(1)).Add(make(chan int)).Add(uint32(2))
	_, err := in.Bytes()
	assert.Error(t, err)
}
