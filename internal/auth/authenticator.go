package auth

import "fmt"

// Authenticator verifies username/password pairs against a CredentialStore.
type Authenticator struct {
	store  *CredentialStore
	hasher *Hasher

	// dummyDigest is verified against when the username is unknown, so both
	// failure paths pay the same bcrypt cost.
	dummyDigest string
}

// NewAuthenticator checks logins against store. It hashes a placeholder
// password up front at the hasher's cost, used for unknown usernames.
func NewAuthenticator(store *CredentialStore, hasher *Hasher) (*Authenticator, error) {
	dummy, err := hasher.Hash("unknown-user-placeholder")
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}
	return &Authenticator{store: store, hasher: hasher, dummyDigest: dummy}, nil
}

// Authenticate returns the Identity for valid credentials. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(username, password string) (Identity, error) {
	cred, ok := a.store.Lookup(username)
	if !ok {
		_ = a.hasher.Verify(password, a.dummyDigest)
		return Identity{}, ErrInvalidCredentials
	}
	if !a.hasher.Verify(password, cred.PasswordHash) {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{Username: cred.Username}, nil
}
