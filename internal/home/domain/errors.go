package domain

import "errors"

// Sentinel errors the service layer returns; the HTTP layer maps them onto
// response bodies with errors.Is.
var (
	ErrInvalidCredentials = errors.New("domain: invalid credentials")
	ErrInvalidGrant       = errors.New("domain: invalid or expired grant")
	ErrUnsupportedGrant   = errors.New("domain: unsupported grant type")
	ErrAccessDenied       = errors.New("domain: access denied")
	ErrUsernameTaken      = errors.New("domain: username already taken")
	ErrNotFound           = errors.New("domain: not found")
)
