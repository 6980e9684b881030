package auth

// SessionValidator turns a raw bearer token into an Identity. Extracting the
// token from a request is the caller's job.
type SessionValidator struct {
	codec *TokenCodec
	store *CredentialStore
}

// NewSessionValidator resolves tokens issued by codec against store.
func NewSessionValidator(codec *TokenCodec, store *CredentialStore) *SessionValidator {
	return &SessionValidator{codec: codec, store: store}
}

// Resolve decodes token and checks that its subject is still a known
// principal. An unknown subject is reported as ErrInvalidClaims.
func (v *SessionValidator) Resolve(token string) (Identity, error) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return Identity{}, err
	}
	cred, ok := v.store.Lookup(claims.Subject)
	if !ok {
		return Identity{}, ErrInvalidClaims
	}
	return Identity{Username: cred.Username}, nil
}
