//go:build wasip1

package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPack(t *testing.T) {
	assert.Zero(t, Pack(nil))
	ptr, n := UnpackPtrLen(Pack([]byte("req")))
	assert.NotZero(t, ptr)
	assert.Equal(t, uint32(3), n)
}

func TestPackWords(t *testing.T) {
	assert.Zero(t, PackWords(nil))
	ptr, n := UnpackPtrLen(PackWords(make([]uint32, 3)))
	assert.NotZero(t, ptr)
	assert.Equal(t, uint32(12), n)
}
