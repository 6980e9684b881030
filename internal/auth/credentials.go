package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Credential is a stored username and password digest.
type Credential struct {
	Username     string
	PasswordHash string
}

// Identity is an authenticated principal. It never carries the digest.
type Identity struct {
	Username string `json:"username"`
}

// CredentialStore is a read-only username -> Credential table. It is filled
// once at construction and never mutated, so concurrent lookups need no locking.
type CredentialStore struct {
	records map[string]Credential
}

// NewCredentialStore builds a store from records. Later duplicates win.
func NewCredentialStore(records ...Credential) *CredentialStore {
	m := make(map[string]Credential, len(records))
	for _, rec := range records {
		m[rec.Username] = rec
	}
	return &CredentialStore{records: m}
}

// SeedCredentialStore hashes password and returns a store holding the single
// seed account.
func SeedCredentialStore(hasher *Hasher, username, password string) (*CredentialStore, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("seed username is required")
	}
	if password == "" {
		return nil, errors.New("seed password is required")
	}
	digest, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return NewCredentialStore(Credential{Username: username, PasswordHash: digest}), nil
}

// SeedCredentialStoreFromHash is SeedCredentialStore for a precomputed digest.
func SeedCredentialStoreFromHash(username, digest string) (*CredentialStore, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("seed username is required")
	}
	if !ValidDigest(digest) {
		return nil, errors.New("seed password hash is not a valid bcrypt digest")
	}
	return NewCredentialStore(Credential{Username: username, PasswordHash: digest}), nil
}

// Lookup finds a credential by exact, case-sensitive username.
func (s *CredentialStore) Lookup(username string) (Credential, bool) {
	rec, ok := s.records[username]
	return rec, ok
}
