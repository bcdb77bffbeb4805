package admin

import "errors"

var (
	// ErrMissingCredentials is returned when a request has no bearer token.
	ErrMissingCredentials = errors.New("admin: missing credentials")

	// ErrInvalidCredentials is returned for tokens that fail signature,
	// issuer or expiry checks.
	ErrInvalidCredentials = errors.New("admin: invalid credentials")

	// ErrTokenExpired is returned for expired tokens.
	ErrTokenExpired = errors.New("admin: token expired")

	// ErrForbidden is returned when a valid token lacks the admin role.
	ErrForbidden = errors.New("admin: access denied")

	// ErrNilRegistry is returned when a Handler is built without a registry.
	ErrNilRegistry = errors.New("admin: registry is nil")
)
