package memzero_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"credvault/internal/util/memzero"
)

func TestZero(t *testing.T) {
	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	window := key[2:5]

	memzero.Zero(window)

	assert.Equal(t, []byte{1, 2, 0, 0, 0, 6, 7, 8}, key)
	assert.NotPanics(t, func() { memzero.Zero(nil) })
}
