package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/service"
	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/internal/home/store/sqlite"
	"github.com/hearth-im/hearth/pkg/jwtx"
)

const testServerURL = "https://hearth.test"

type fixture struct {
	store     store.Store
	identity  *jwtx.SigningIdentity
	tokens    *service.TokenService
	users     *service.UserService
	community *service.CommunityService
	evaluator *service.Evaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	id, err := jwtx.LoadOrGenerate(t.TempDir())
	require.NoError(t, err)

	return &fixture{
		store:     st,
		identity:  id,
		tokens:    service.NewTokenService(st, id, testServerURL),
		users:     service.NewUserService(st),
		community: service.NewCommunityService(st),
		evaluator: service.NewEvaluator(st),
	}
}

func (f *fixture) register(t *testing.T, ctx context.Context, username string, hostAdmin bool) domain.User {
	t.Helper()
	u, err := f.users.Register(ctx, username, "hunter2hunter2", hostAdmin)
	require.NoError(t, err)
	return u
}

func TestPasswordGrantIssuesVerifiablePair(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	u := f.register(t, ctx, "ana", false)

	pair, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword,
		Username:  "ana",
		Password:  "hunter2hunter2",
		ClientID:  "cli_1",
		Scope:     "openid chat",
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.EqualValues(t, 3600, pair.ExpiresIn)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := jwtx.NewVerifier(f.identity, testServerURL).Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), claims.Subject)
	require.Equal(t, "cli_1", claims.ClientID)
	require.Equal(t, "openid chat", claims.Scope)
}

func TestPasswordGrantRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.register(t, ctx, "ana", false)

	_, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword,
		Username:  "ana",
		Password:  "wrong",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// Unknown user yields the same category as a wrong password.
	_, err = f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword,
		Username:  "nobody",
		Password:  "hunter2hunter2",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestPasswordGrantsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.register(t, ctx, "ana", false)

	first, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword, Username: "ana", Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	second, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword, Username: "ana", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	// Each password grant mints a fresh refresh token; the first stays valid.
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	_, err = f.tokens.ValidateRefresh(ctx, first.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshGrantReusesToken(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	u := f.register(t, ctx, "ana", false)

	pair, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword, Username: "ana", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	refreshed, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType:    service.GrantRefreshToken,
		RefreshToken: pair.RefreshToken,
		ClientID:     "cli_2",
		Scope:        "openid",
	})
	require.NoError(t, err)

	// No rotation: the same opaque value is handed back and stays valid.
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
	_, err = f.tokens.ValidateRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Scope and client_id come from the refresh request, not the original grant.
	claims, err := jwtx.NewVerifier(f.identity, testServerURL).Verify(refreshed.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), claims.Subject)
	require.Equal(t, "cli_2", claims.ClientID)
	require.Equal(t, "openid", claims.Scope)
}

func TestRefreshGrantRejectsRevokedToken(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	u := f.register(t, ctx, "ana", false)

	pair, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword, Username: "ana", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeAllForUser(ctx, u.ID))

	_, err = f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantRefreshToken, RefreshToken: pair.RefreshToken,
	})
	require.ErrorIs(t, err, domain.ErrInvalidGrant)
}

func TestRefreshGrantRejectsUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.tokens.HandleGrant(t.Context(), service.GrantRequest{
		GrantType: service.GrantRefreshToken, RefreshToken: "never-issued",
	})
	require.ErrorIs(t, err, domain.ErrInvalidGrant)
}

func TestUnsupportedGrantType(t *testing.T) {
	f := newFixture(t)

	_, err := f.tokens.HandleGrant(t.Context(), service.GrantRequest{GrantType: "client_credentials"})
	require.ErrorIs(t, err, domain.ErrUnsupportedGrant)
}

func TestHousekeeperPrunesExpiredTokens(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.register(t, ctx, "ana", false)

	pair, err := f.tokens.HandleGrant(ctx, service.GrantRequest{
		GrantType: service.GrantPassword, Username: "ana", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	// Nothing is expired yet, so a sweep at now keeps the row.
	n, err := f.store.RefreshTokens().DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = f.store.RefreshTokens().DeleteExpired(ctx, time.Now().Add(jwtx.RefreshTokenTTL+time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = f.tokens.ValidateRefresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidGrant)
}
