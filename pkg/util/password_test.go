package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct-horse-battery", hash)

	assert.True(t, VerifyPassword(hash, "correct-horse-battery"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestGenerateTempPassword_Length(t *testing.T) {
	password, err := GenerateTempPassword()
	require.NoError(t, err)
	assert.Len(t, password, TempPasswordLength)
}

func TestGenerateTempPassword_CharacterClasses(t *testing.T) {
	// Class membership is probabilistic per run; check several generations
	for i := 0; i < 20; i++ {
		password, err := GenerateTempPassword()
		require.NoError(t, err)

		assert.True(t, strings.ContainsAny(password, passwordLower),
			"password %q has no lowercase letter", password)
		assert.True(t, strings.ContainsAny(password, passwordUpper),
			"password %q has no uppercase letter", password)
		assert.True(t, strings.ContainsAny(password, passwordDigits),
			"password %q has no digit", password)
		assert.True(t, strings.ContainsAny(password, passwordSymbols),
			"password %q has no symbol", password)
	}
}

func TestGenerateTempPassword_Unique(t *testing.T) {
	a, err := GenerateTempPassword()
	require.NoError(t, err)
	b, err := GenerateTempPassword()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
