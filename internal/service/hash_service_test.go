package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HashService_RoundTrip(t *testing.T) {
	svc := NewArgon2HashService()

	passwords := []string{
		"StrongPass123!",
		"",
		"pässwörd-ünïcode-密码",
		strings.Repeat("x", 1000),
	}

	for _, password := range passwords {
		hash, err := svc.Hash(password)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v="), "hash format: %s", hash)

		match, err := svc.Verify(password, hash)
		require.NoError(t, err)
		assert.True(t, match)

		match, err = svc.Verify(password+"x", hash)
		require.NoError(t, err)
		assert.False(t, match, "modified password must not verify")
	}
}

func TestArgon2HashService_SaltsDiffer(t *testing.T) {
	svc := NewArgon2HashService()

	first, err := svc.Hash("same-password")
	require.NoError(t, err)
	second, err := svc.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each hash carries a fresh random salt")
}

func TestArgon2HashService_RejectsMalformedHash(t *testing.T) {
	svc := NewArgon2HashService()

	for _, bad := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=1,p=4$only-one-part",
	} {
		_, err := svc.Verify("password", bad)
		assert.Error(t, err, "input: %q", bad)
	}
}

func TestArgon2HashService_EncodesParameters(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("parameters")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}
