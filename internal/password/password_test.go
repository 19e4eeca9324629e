package password

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	require.NotEqual(t, "secret123", hash)

	require.True(t, h.Verify("secret123", hash))
	require.False(t, h.Verify("secret124", hash))
}

func TestBcryptHasher_SaltedPerHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerify_EmptyHashNeverMatches(t *testing.T) {
	require.False(t, Verify("", ""))
	require.False(t, Verify("anything", ""))
}

func TestVerify_GarbageHash(t *testing.T) {
	require.False(t, Verify("secret123", "not-a-bcrypt-hash"))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
	require.Equal(t, bcrypt.MinCost, NewBcryptHasher(1).Cost)
	require.Equal(t, bcrypt.MaxCost, NewBcryptHasher(99).Cost)
}

func TestWithinPolicy(t *testing.T) {
	require.False(t, WithinPolicy("abc"))
	require.True(t, WithinPolicy("abcdef"))
	require.True(t, WithinPolicy("12345678901234567890"))
	require.False(t, WithinPolicy("123456789012345678901"))
}
