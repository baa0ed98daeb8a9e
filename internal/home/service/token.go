// Package service implements the application logic between HTTP handlers and
// storage: token issuance, authorization evaluation, account and community
// management, and background housekeeping.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/pkg/cryptox"
	"github.com/hearth-im/hearth/pkg/idx"
	"github.com/hearth-im/hearth/pkg/jwtx"
	"github.com/hearth-im/hearth/pkg/slogx"
)

// Grant types accepted by the token endpoint.
const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// TokenService mints access and refresh tokens and dispatches grants.
type TokenService struct {
	store     store.Store
	identity  *jwtx.SigningIdentity
	serverURL string
	now       func() time.Time
}

func NewTokenService(st store.Store, identity *jwtx.SigningIdentity, serverURL string) *TokenService {
	return &TokenService{store: st, identity: identity, serverURL: serverURL, now: time.Now}
}

// GrantRequest is the parsed form body of POST /auth/token.
type GrantRequest struct {
	GrantType    string
	Username     string
	Password     string
	RefreshToken string
	ClientID     string
	Scope        string
}

// HandleGrant dispatches on grant_type. Unknown types are a BadRequest-class
// error, not an auth failure.
func (s *TokenService) HandleGrant(ctx context.Context, req GrantRequest) (domain.TokenPair, error) {
	switch req.GrantType {
	case GrantPassword:
		return s.passwordGrant(ctx, req)
	case GrantRefreshToken:
		return s.refreshGrant(ctx, req)
	default:
		return domain.TokenPair{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedGrant, req.GrantType)
	}
}

// passwordGrant verifies the user's password and issues a fresh token pair,
// including a brand-new refresh token independent of any prior one.
func (s *TokenService) passwordGrant(ctx context.Context, req GrantRequest) (domain.TokenPair, error) {
	if req.Username == "" || req.Password == "" {
		return domain.TokenPair{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidCredentials)
	}

	user, err := s.store.Users().GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same category as a wrong password so responses cannot be
			// used to probe for account existence. Logs keep the detail.
			slogx.FromContext(ctx).Info("password grant for unknown user", "username", req.Username)
			return domain.TokenPair{}, domain.ErrInvalidCredentials
		}
		return domain.TokenPair{}, fmt.Errorf("look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.TokenPair{}, domain.ErrInvalidCredentials
		}
		return domain.TokenPair{}, fmt.Errorf("verify password: %w", err)
	}

	access, err := s.signAccessToken(user.ID, req.ClientID, req.Scope)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.issueRefreshToken(ctx, user.ID, req.ClientID, req.Scope)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return s.tokenPair(access, refresh, req.Scope), nil
}

// refreshGrant validates a stored refresh token and mints a new access token
// bound to the same refresh token. The stored row is not touched: no
// rotation, the caller keeps presenting the same opaque value until it
// expires or is revoked.
func (s *TokenService) refreshGrant(ctx context.Context, req GrantRequest) (domain.TokenPair, error) {
	if req.RefreshToken == "" {
		return domain.TokenPair{}, fmt.Errorf("%w: refresh_token is required", domain.ErrInvalidGrant)
	}

	stored, err := s.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// Scope and client_id are carried over from the request rather than
	// pinned to the original grant.
	access, err := s.signAccessToken(stored.UserID, req.ClientID, req.Scope)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair := s.tokenPair(access, req.RefreshToken, req.Scope)
	return pair, nil
}

// ValidateRefresh resolves an opaque refresh token string to its stored row,
// rejecting revoked and expired tokens.
func (s *TokenService) ValidateRefresh(ctx context.Context, token string) (domain.RefreshToken, error) {
	stored, err := s.store.RefreshTokens().GetByFingerprint(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, domain.ErrInvalidGrant
		}
		return domain.RefreshToken{}, fmt.Errorf("look up refresh token: %w", err)
	}
	if stored.Revoked() {
		return domain.RefreshToken{}, fmt.Errorf("%w: revoked", domain.ErrInvalidGrant)
	}
	if stored.Expired(s.now()) {
		return domain.RefreshToken{}, fmt.Errorf("%w: expired", domain.ErrInvalidGrant)
	}
	return stored, nil
}

// RevokeAllForUser revokes every live refresh token of a user, e.g. after a
// password change.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID idx.ID) error {
	return s.store.RefreshTokens().RevokeAllForUser(ctx, userID, s.now())
}

// IssueFederationToken mints a short-lived server-to-server token addressed
// to targetURL, optionally delegating for a local user.
func (s *TokenService) IssueFederationToken(targetURL string, user *jwtx.DelegatedUser) (string, error) {
	token, err := s.identity.Sign(jwtx.NewFederationClaims(s.serverURL, targetURL, user, s.now()))
	if err != nil {
		return "", fmt.Errorf("sign federation token: %w", err)
	}
	return token, nil
}

func (s *TokenService) signAccessToken(userID idx.ID, clientID, scope string) (string, error) {
	token, err := s.identity.Sign(jwtx.NewClientClaims(userID.String(), clientID, scope, s.serverURL, s.now()))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

func (s *TokenService) issueRefreshToken(ctx context.Context, userID idx.ID, clientID, scope string) (string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	row := domain.RefreshToken{
		ID:          idx.New(),
		UserID:      userID,
		ClientID:    clientID,
		Scope:       scope,
		Fingerprint: cryptox.FingerprintToken(opaque),
		ExpiresAt:   now.Add(jwtx.RefreshTokenTTL),
		CreatedAt:   now,
	}
	if err := s.store.RefreshTokens().Create(ctx, row); err != nil {
		return "", fmt.Errorf("persist refresh token: %w", err)
	}
	return opaque, nil
}

func (s *TokenService) tokenPair(access, refresh, scope string) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(jwtx.AccessTokenTTL.Seconds()),
		RefreshToken: refresh,
		Scope:        scope,
	}
}
