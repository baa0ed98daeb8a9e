package domain

import (
	"time"

	"github.com/hearth-im/hearth/pkg/idx"
)

// RefreshToken is the stored record of an issued refresh token. Only the
// SHA-256 fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID          idx.ID
	UserID      idx.ID
	ClientID    string
	Scope       string
	Fingerprint string

	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked reports whether the token has been explicitly revoked.
func (t RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// Expired reports whether the token is past its lifetime at now.
func (t RefreshToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// TokenPair is the successful token endpoint response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
