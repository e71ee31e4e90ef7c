package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/zkguest/platform"
)

func TestInMemory_ReadWrite(t *testing.T) {
	m := NewInMemory(64)
	assert.Equal(t, uint32(64), m.Size())

	require.NoError(t, m.WriteAt(5, []byte{0xAA, 0xBB, 0xCC}))

	w, err := m.LoadWord(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCCBBAA00), w)

	w, err = m.LoadWord(8)
	require.NoError(t, err)
	assert.Zero(t, w)

	buf := make([]byte, 4)
	require.NoError(t, m.ReadAt(5, buf))
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0x00}, buf)
}

func TestInMemory_Bounds(t *testing.T) {
	m := NewInMemory(16)

	assert.ErrorIs(t, m.WriteAt(14, []byte{1, 2, 3}), ErrOutOfBounds)
	assert.ErrorIs(t, m.ReadAt(16, make([]byte, 1)), ErrOutOfBounds)
	assert.ErrorIs(t, m.StoreWord(16, 1), ErrOutOfBounds)
	assert.ErrorIs(t, m.StoreWord(2, 1), ErrMisaligned)

	_, err := m.LoadWord(3)
	assert.ErrorIs(t, err, ErrMisaligned)
	_, err = m.LoadWord(0xFFFF_FFFC)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestInMemory_WordsAliasBank(t *testing.T) {
	l := platform.DefaultLayout()
	m := ForLayout(l)

	words := m.Words(l.Commit)
	require.Len(t, words, l.Commit.LenWords())

	words[1] = 0xDEADBEEF
	got, err := m.LoadWord(l.Commit.Start + 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), got)

	// Appending to the region view must not spill into the next region.
	assert.Equal(t, len(words), cap(words))
}

func TestInMemory_Seal(t *testing.T) {
	m := NewInMemory(64)
	require.NoError(t, m.StoreWord(8, 7))
	require.NoError(t, m.Seal(8, 8))

	assert.True(t, m.Sealed(8))
	assert.True(t, m.Sealed(15))
	assert.False(t, m.Sealed(16))
	assert.False(t, m.Sealed(4))

	assert.ErrorIs(t, m.StoreWord(12, 1), ErrSealed)
	assert.ErrorIs(t, m.WriteAt(6, []byte{1, 2, 3}), ErrSealed)
	assert.NoError(t, m.StoreWord(16, 1))
	assert.NoError(t, m.WriteAt(4, []byte{1, 2, 3, 4}))

	w, err := m.LoadWord(8)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), w, "sealed contents stay readable")
}

func TestInMemory_Unseal(t *testing.T) {
	m := NewInMemory(64)
	require.NoError(t, m.Seal(0, 8))
	require.NoError(t, m.Seal(16, 8))
	require.NoError(t, m.Seal(40, 8))

	m.Unseal(4, 16)
	assert.False(t, m.Sealed(0), "partially covered seals are dropped whole")
	assert.False(t, m.Sealed(20))
	assert.True(t, m.Sealed(40))
	assert.NoError(t, m.StoreWord(16, 1))
	assert.ErrorIs(t, m.StoreWord(44, 1), ErrSealed)

	m.Unseal(0, 64)
	assert.False(t, m.Sealed(40))
}

func TestReadCString(t *testing.T) {
	m := NewInMemory(64)
	require.NoError(t, m.WriteAt(6, []byte("hello guest\x00")))

	s, err := ReadCString(m, 6, 32)
	require.NoError(t, err)
	assert.Equal(t, "hello guest", s)

	_, err = ReadCString(m, 6, 5)
	assert.Error(t, err, "terminator beyond scan limit")

	empty, err := ReadCString(m, 40, 8)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestSnapshot(t *testing.T) {
	m := NewInMemory(8)
	require.NoError(t, m.StoreWord(4, 0x01020304))
	assert.Equal(t, []byte{0, 0, 0, 0, 4, 3, 2, 1}, m.Snapshot())
}
