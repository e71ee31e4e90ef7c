package serde

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zkerrors "github.com/reglet-dev/zkguest/errors"
)

type overdueBook struct {
	BookID  uint64
	Overdue bool
	Title   string
	Tags    []string
	Rating  *int32
	Digest  [5]byte
	Fines   map[string]uint32
	cache   int //nolint:unused // unexported fields are not encoded
	Ignored string `serde:"-"`
}

func TestWord_Layout(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []byte
	}{
		{"bool", true, []byte{1, 0, 0, 0}},
		{"uint8 takes a word", uint8(7), []byte{7, 0, 0, 0}},
		{"negative int16 sign extends", int16(-2), []byte{0xFE, 0xFF, 0xFF, 0xFF}},
		{"uint64 low word first", uint64(0x0000000200000001), []byte{1, 0, 0, 0, 2, 0, 0, 0}},
		{"string padded", "abcde", []byte{5, 0, 0, 0, 'a', 'b', 'c', 'd', 'e', 0, 0, 0}},
		{"empty bytes", []byte{}, []byte{0, 0, 0, 0}},
		{"byte array packed", [3]byte{9, 8, 7}, []byte{9, 8, 7, 0}},
		{"word slice", []uint32{1, 2}, []byte{2, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}},
		{"nil option", (*uint32)(nil), []byte{0, 0, 0, 0}},
		{"float32", float32(1), []byte{0, 0, 0x80, 0x3F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(Word, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, len(got)%4, "word encodings are word aligned")
		})
	}
}

func TestWord_TopLevelPointerIsReference(t *testing.T) {
	v := uint32(42)
	byRef, err := Marshal(Word, &v)
	require.NoError(t, err)
	byVal, err := Marshal(Word, v)
	require.NoError(t, err)
	assert.Equal(t, byVal, byRef)

	// Nested pointers are options.
	type opt struct{ V *uint32 }
	nested, err := Marshal(Word, opt{V: &v})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 42, 0, 0, 0}, nested)
}

func TestWord_StructRoundTrip(t *testing.T) {
	rating := int32(-3)
	in := overdueBook{
		BookID:  math.MaxUint64 - 1,
		Overdue: true,
		Title:   "The Dispossessed",
		Tags:    []string{"fiction", "sf"},
		Rating:  &rating,
		Digest:  [5]byte{1, 2, 3, 4, 5},
		Fines:   map[string]uint32{"week1": 25, "week2": 50},
		cache:   99,
		Ignored: "not encoded",
	}

	data, err := Marshal(Word, in)
	require.NoError(t, err)

	var out overdueBook
	require.NoError(t, Unmarshal(Word, data, &out))

	in.cache, in.Ignored = 0, ""
	assert.Equal(t, in, out)
}

type shelfMark uint8

func TestWord_NamedByteArrayRoundTrip(t *testing.T) {
	type catalogued struct {
		Mark  [5]shelfMark
		Plain [3]byte
	}
	in := catalogued{Mark: [5]shelfMark{1, 2, 3, 4, 5}, Plain: [3]byte{9, 8, 7}}

	data, err := Marshal(Word, in)
	require.NoError(t, err)
	// Each array is packed bytes padded to a word, like [N]byte.
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0, 9, 8, 7, 0}, data)

	var out catalogued
	require.NoError(t, Unmarshal(Word, data, &out))
	assert.Equal(t, in, out)

	top, err := Marshal(Word, [4]shelfMark{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, top)
}

func TestWord_MapEncodingIsDeterministic(t *testing.T) {
	m := map[uint32]string{}
	for i := uint32(0); i < 64; i++ {
		m[i*7919%101] = "v"
	}
	first, err := Marshal(Word, m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(Word, m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestWord_EncodeErrors(t *testing.T) {
	big := int64(math.MaxInt32) + 1
	tests := []struct {
		name string
		in   any
	}{
		{"int beyond word", int(big)},
		{"channel", make(chan int)},
		{"interface field", struct{ V any }{V: 1}},
		{"untyped nil", nil},
	}
	if math.MaxInt == math.MaxInt32 {
		tests = tests[1:]
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(Word, tt.in)
			require.Error(t, err)
			var ee *zkerrors.EncodeError
			assert.True(t, errors.As(err, &ee))
		})
	}
}

func TestWord_DecodeErrors(t *testing.T) {
	t.Run("exhausted", func(t *testing.T) {
		var v uint64
		err := Unmarshal(Word, []byte{1, 0, 0, 0}, &v)
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("invalid bool", func(t *testing.T) {
		var b bool
		err := Unmarshal(Word, []byte{2, 0, 0, 0}, &b)
		var de *zkerrors.DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "bool", de.Type)
	})

	t.Run("uint8 overflow", func(t *testing.T) {
		var b uint8
		assert.Error(t, Unmarshal(Word, []byte{0, 1, 0, 0}, &b))
	})

	t.Run("length beyond input", func(t *testing.T) {
		var s string
		assert.Error(t, Unmarshal(Word, []byte{0xFF, 0xFF, 0, 0, 'a', 0, 0, 0}, &s))
	})

	t.Run("invalid option tag", func(t *testing.T) {
		var p *uint32
		assert.Error(t, Unmarshal(Word, []byte{2, 0, 0, 0, 1, 0, 0, 0}, &p))
	})

	t.Run("trailing bytes", func(t *testing.T) {
		var v uint32
		assert.Error(t, Unmarshal(Word, []byte{1, 0, 0, 0, 2, 0, 0, 0}, &v))
	})

	t.Run("non pointer target", func(t *testing.T) {
		var v uint32
		_, err := Word.Decode([]byte{1, 0, 0, 0}, v)
		assert.Error(t, err)
	})
}

func TestByName(t *testing.T) {
	c, err := ByName("word")
	require.NoError(t, err)
	assert.Equal(t, NameWord, c.Name())

	c, err = ByName("")
	require.NoError(t, err)
	assert.Equal(t, NameWord, c.Name())

	c, err = ByName("json")
	require.NoError(t, err)
	assert.Equal(t, NameJSON, c.Name())

	_, err = ByName("cbor")
	assert.Error(t, err)
}
