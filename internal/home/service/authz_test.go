package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

func TestAuthorizeHostAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	admin := f.register(t, ctx, "root", true)
	regular := f.register(t, ctx, "ana", false)

	spec := domain.Require(domain.HostAdmin())

	_, err := f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: admin.ID}, spec)
	require.NoError(t, err)

	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: regular.ID}, spec)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.evaluator.Authorize(ctx, domain.FederationPrincipal{Origin: "https://peer.test"}, spec)
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestAuthorizeServerRoles(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	owner := f.register(t, ctx, "owner", false)
	member := f.register(t, ctx, "member", false)
	outsider := f.register(t, ctx, "outsider", false)

	srv, err := f.community.CreateServer(ctx, owner.ID, "general")
	require.NoError(t, err)
	require.NoError(t, f.community.AddMember(ctx, srv.ID, member.ID, domain.RoleMember))

	adminSpec := domain.Require(domain.ServerAdmin(srv.ID))
	memberSpec := domain.Require(domain.ServerMember(srv.ID))

	// The owner was enrolled as admin at creation, so both pass.
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: owner.ID}, adminSpec)
	require.NoError(t, err)
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: owner.ID}, memberSpec)
	require.NoError(t, err)

	// A plain member passes the member check but not the admin check.
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: member.ID}, memberSpec)
	require.NoError(t, err)
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: member.ID}, adminSpec)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: outsider.ID}, memberSpec)
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestAuthorizeFederation(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	u := f.register(t, ctx, "ana", false)

	spec := domain.Require(domain.Federation())

	_, err := f.evaluator.Authorize(ctx, domain.FederationPrincipal{Origin: "https://peer.test"}, spec)
	require.NoError(t, err)

	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: u.ID}, spec)
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestAuthorizeConjunction(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	owner := f.register(t, ctx, "owner", false)
	admin := f.register(t, ctx, "root", true)

	srv, err := f.community.CreateServer(ctx, owner.ID, "general")
	require.NoError(t, err)

	both := domain.Require(domain.HostAdmin(), domain.ServerAdmin(srv.ID))

	// Host admin alone fails the second requirement.
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: admin.ID}, both)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	// Server admin alone fails the first; short-circuits before the
	// membership lookup ever happens.
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: owner.ID}, both)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	require.NoError(t, f.community.AddMember(ctx, srv.ID, admin.ID, domain.RoleAdmin))
	_, err = f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: admin.ID}, both)
	require.NoError(t, err)
}

func TestAuthorizeEmptySpecAdmitsAnyPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	u := f.register(t, ctx, "ana", false)

	sess, err := f.evaluator.Authorize(ctx, domain.ClientPrincipal{UserID: u.ID}, domain.AuthSpec{})
	require.NoError(t, err)
	require.Equal(t, domain.ClientPrincipal{UserID: u.ID}, sess.Principal())
}

func TestAuthorizeDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	// A principal whose user row never existed (token outlived account).
	_, err := f.evaluator.Authorize(ctx,
		domain.ClientPrincipal{UserID: idx.New()},
		domain.Require(domain.HostAdmin()))
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}
