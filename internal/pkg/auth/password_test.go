package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)
	assert.True(t, CheckPassword(hash, "correct-horse"))
	assert.False(t, CheckPassword(hash, "wrong-horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct-horse"))

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.Error(t, err)
}
