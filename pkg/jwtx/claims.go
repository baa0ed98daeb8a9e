package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes.
const (
	// AccessTokenTTL bounds how long a signed access token is honored.
	AccessTokenTTL = time.Hour
	// RefreshTokenTTL bounds how long a refresh token may mint new access
	// tokens before the client must re-authenticate.
	RefreshTokenTTL = 30 * 24 * time.Hour
	// FederationTokenTTL is the lifetime of server-to-server tokens. Kept
	// short: federation clients mint them per exchange.
	FederationTokenTTL = 5 * time.Minute
)

// Validation errors shared by the local verifier and the federation resolver.
var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrIssuer    = errors.New("jwtx: unexpected issuer")
	ErrAudience  = errors.New("jwtx: unexpected audience")
	ErrExpired   = errors.New("jwtx: token expired")
	ErrSignature = errors.New("jwtx: signature verification failed")
)

// ClientClaims is the payload of an access token issued to a local client.
// Issuer and audience are both the server's own canonical URL.
type ClientClaims struct {
	jwt.RegisteredClaims

	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// NewClientClaims builds claims for an access token issued at now.
func NewClientClaims(subject, clientID, scope, serverURL string, now time.Time) ClientClaims {
	return ClientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    serverURL,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{serverURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
		Scope:    scope,
		ClientID: clientID,
	}
}

// DelegatedUser identifies the remote user a federation request acts for.
// Optional: pure server-to-server traffic carries no user claim.
type DelegatedUser struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// FederationClaims is the payload of a server-to-server token. The issuer is
// the origin server's canonical URL and the audience names the target server.
type FederationClaims struct {
	jwt.RegisteredClaims

	User *DelegatedUser `json:"user,omitempty"`
}

// NewFederationClaims builds claims for a federation token addressed to
// targetURL, optionally acting on behalf of user.
func NewFederationClaims(originURL, targetURL string, user *DelegatedUser, now time.Time) FederationClaims {
	return FederationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    originURL,
			Subject:   originURL,
			Audience:  jwt.ClaimStrings{targetURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(FederationTokenTTL)),
		},
		User: user,
	}
}

// validateRegistered applies the issuer, audience and expiry checks shared by
// both claim shapes. golang-jwt already enforces exp during parsing; the
// explicit check here keeps the error taxonomy ours.
func validateRegistered(rc jwt.RegisteredClaims, issuer, audience string, now time.Time) error {
	if rc.Issuer != issuer {
		return ErrIssuer
	}
	if audience != "" {
		found := false
		for _, aud := range rc.Audience {
			if aud == audience {
				found = true
				break
			}
		}
		if !found {
			return ErrAudience
		}
	}
	if rc.ExpiresAt == nil || !now.Before(rc.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
