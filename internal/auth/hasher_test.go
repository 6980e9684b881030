package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherHashIsSaltedAndVerifiable(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("secret")
	require.NoError(t, err)
	second, err := h.Hash("secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "digests of the same input must differ")
	assert.NotContains(t, first, "secret")
	assert.True(t, h.Verify("secret", first))
	assert.True(t, h.Verify("secret", second))
	assert.False(t, h.Verify("Secret", first))
}

func TestHasherVerifyMalformedDigest(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	for _, digest := range []string{"", "plain-text", "$2a$10$short", strings.Repeat("x", 60)} {
		assert.False(t, h.Verify("secret", digest), "digest %q", digest)
	}
}

func TestNewHasherCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, NewHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost())
	assert.Equal(t, 12, NewHasher(12).Cost())
}

func TestHasherDigestUsesConfiguredCost(t *testing.T) {
	t.Parallel()

	digest, err := NewHasher(bcrypt.MinCost).Hash("secret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.True(t, ValidDigest(digest))
	assert.False(t, ValidDigest("nope"))
}
