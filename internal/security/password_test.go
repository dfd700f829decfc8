package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)

	assert.True(t, VerifyCredential("admin123", hash))
	assert.False(t, VerifyCredential("admin124", hash))
	assert.NoError(t, CheckPassword(hash, "admin123"))
}

func TestVerifyCredential_RejectsEmptyAndMalformed(t *testing.T) {
	assert.False(t, VerifyCredential("", "$2a$10$abc"))
	assert.False(t, VerifyCredential("secret", ""))
	assert.False(t, VerifyCredential("secret", "not-a-bcrypt-hash"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
