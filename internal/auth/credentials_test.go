package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialStoreLookup(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore(Credential{Username: "admin", PasswordHash: "h"})

	cred, ok := store.Lookup("admin")
	require.True(t, ok)
	assert.Equal(t, "h", cred.PasswordHash)

	_, ok = store.Lookup("Admin")
	assert.False(t, ok, "lookup is case-sensitive")
	_, ok = store.Lookup("ghost")
	assert.False(t, ok)
}

func TestCredentialStoreIsolatedFromInput(t *testing.T) {
	t.Parallel()

	records := []Credential{{Username: "admin", PasswordHash: "h"}}
	store := NewCredentialStore(records...)
	records[0].PasswordHash = "changed"

	cred, ok := store.Lookup("admin")
	require.True(t, ok)
	assert.Equal(t, "h", cred.PasswordHash)
}

func TestSeedCredentialStore(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	store, err := SeedCredentialStore(h, "admin", "securepassword")
	require.NoError(t, err)

	cred, ok := store.Lookup("admin")
	require.True(t, ok)
	assert.NotEqual(t, "securepassword", cred.PasswordHash)
	assert.True(t, h.Verify("securepassword", cred.PasswordHash))

	_, err = SeedCredentialStore(h, " ", "pw")
	assert.Error(t, err)
	_, err = SeedCredentialStore(h, "admin", "")
	assert.Error(t, err)
}

func TestSeedCredentialStoreFromHash(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	digest, err := h.Hash("pw")
	require.NoError(t, err)

	store, err := SeedCredentialStoreFromHash("admin", digest)
	require.NoError(t, err)
	cred, ok := store.Lookup("admin")
	require.True(t, ok)
	assert.Equal(t, digest, cred.PasswordHash)

	_, err = SeedCredentialStoreFromHash("admin", "not-bcrypt")
	assert.Error(t, err)
}
