package hostfuncs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedBuffer(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		writes    []string
		want      string
		truncated bool
		dropped   int
	}{
		{"under limit", 10, []string{"abc", "de"}, "abcde", false, 0},
		{"exact limit", 5, []string{"abcde"}, "abcde", false, 0},
		{"split write", 4, []string{"ab", "cdef"}, "abcd", true, 2},
		{"full buffer", 2, []string{"ab", "cd", "e"}, "ab", true, 3},
		{"zero limit", 0, []string{"x"}, "", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoundedBuffer(tt.limit)
			for _, w := range tt.writes {
				n, err := b.Write([]byte(w))
				assert.NoError(t, err)
				assert.Equal(t, len(w), n)
			}
			assert.Equal(t, tt.want, b.String())
			assert.Equal(t, len(tt.want), b.Len())
			assert.Equal(t, tt.truncated, b.Truncated())
			assert.Equal(t, tt.dropped, b.Dropped())

			b.Reset()
			assert.Zero(t, b.Len())
			assert.False(t, b.Truncated())
		})
	}
}
