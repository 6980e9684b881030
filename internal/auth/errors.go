// Package auth verifies admin credentials and issues and validates the
// signed bearer tokens that guard write access to the API.
package auth

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is the class every per-request authentication failure
// belongs to. Boundaries match it with errors.Is and never expose the
// specific kind to clients.
var ErrUnauthenticated = errors.New("unauthenticated")

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)

	ErrMalformedToken   = fmt.Errorf("malformed token: %w", ErrUnauthenticated)
	ErrInvalidSignature = fmt.Errorf("invalid token signature: %w", ErrUnauthenticated)
	ErrTokenExpired     = fmt.Errorf("token expired: %w", ErrUnauthenticated)
	ErrInvalidClaims    = fmt.Errorf("invalid token claims: %w", ErrUnauthenticated)
)

// ErrMissingSecret is returned at construction time when no signing secret is
// configured. It is fatal: the server must not start without a secret.
var ErrMissingSecret = errors.New("signing secret is required")
