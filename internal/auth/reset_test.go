package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResetToken(t *testing.T) {
	plain, hash, err := GenerateResetToken()
	require.NoError(t, err)

	assert.Len(t, plain, resetTokenBytes*2)
	_, err = hex.DecodeString(plain)
	assert.NoError(t, err, "plaintext token should be hex")

	assert.Equal(t, HashResetToken(plain), hash)
	assert.NotEqual(t, plain, hash)
}

func TestGenerateResetToken_Unique(t *testing.T) {
	p1, _, err := GenerateResetToken()
	require.NoError(t, err)
	p2, _, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}

func TestHashResetToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashResetToken("abc"), HashResetToken("abc"))
	assert.NotEqual(t, HashResetToken("abc"), HashResetToken("abd"))
	assert.Len(t, HashResetToken("abc"), 64)
}
