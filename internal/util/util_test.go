package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := RandomBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "two draws should differ")
}

func TestRandomBytesZeroLength(t *testing.T) {
	b, err := RandomBytes(0)
	require.NoError(t, err)
	assert.Empty(t, b)
}
