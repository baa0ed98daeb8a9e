package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/pkg/idx"
)

// Session is a resolved principal plus the lazily fetched local state needed
// to evaluate requirements. Fetches are cached for the session's lifetime, a
// single request, so one request never hits the same row twice.
type Session struct {
	store     store.Store
	principal domain.Principal

	user        *domain.User
	memberships map[idx.ID]*domain.Membership
}

func NewSession(st store.Store, p domain.Principal) *Session {
	return &Session{
		store:       st,
		principal:   p,
		memberships: make(map[idx.ID]*domain.Membership),
	}
}

func (s *Session) Principal() domain.Principal { return s.principal }

// User returns the local user record behind a ClientPrincipal, fetching it
// on first use. Federation principals have no local user.
func (s *Session) User(ctx context.Context) (*domain.User, error) {
	cp, ok := s.principal.(domain.ClientPrincipal)
	if !ok {
		return nil, nil
	}
	if s.user != nil {
		return s.user, nil
	}

	u, err := s.store.Users().GetByID(ctx, cp.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token outlived the account.
			return nil, fmt.Errorf("%w: user %s no longer exists", domain.ErrAccessDenied, cp.UserID)
		}
		return nil, fmt.Errorf("fetch session user: %w", err)
	}
	s.user = &u
	return s.user, nil
}

// membership returns the caller's membership in serverID, nil when absent.
// The nil result is cached too: absence is an answer.
func (s *Session) membership(ctx context.Context, serverID idx.ID) (*domain.Membership, error) {
	cp, ok := s.principal.(domain.ClientPrincipal)
	if !ok {
		return nil, nil
	}
	if m, fetched := s.memberships[serverID]; fetched {
		return m, nil
	}

	m, err := s.store.Memberships().Get(ctx, serverID, cp.UserID)
	switch {
	case err == nil:
		s.memberships[serverID] = &m
		return &m, nil
	case errors.Is(err, store.ErrNotFound):
		s.memberships[serverID] = nil
		return nil, nil
	default:
		return nil, fmt.Errorf("fetch membership: %w", err)
	}
}

// Evaluator checks sessions against declarative AuthSpecs.
type Evaluator struct {
	store store.Store
}

func NewEvaluator(st store.Store) *Evaluator {
	return &Evaluator{store: st}
}

// Authorize resolves principal into a Session and evaluates spec with AND
// semantics, short-circuiting on the first unmet requirement. The returned
// error wraps domain.ErrAccessDenied and names the missing capability for
// logs; HTTP responses stay generic.
func (e *Evaluator) Authorize(ctx context.Context, principal domain.Principal, spec domain.AuthSpec) (*Session, error) {
	sess := NewSession(e.store, principal)
	for _, req := range spec.Requirements {
		if err := e.check(ctx, sess, req); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (e *Evaluator) check(ctx context.Context, sess *Session, req domain.Requirement) error {
	switch req.Kind {
	case domain.RequireHostAdmin:
		user, err := sess.User(ctx)
		if err != nil {
			return err
		}
		if user == nil || !user.IsHostAdmin {
			return deny(req)
		}
		return nil

	case domain.RequireServerAdmin:
		m, err := sess.membership(ctx, req.ServerID)
		if err != nil {
			return err
		}
		if m == nil || !m.IsAdmin() {
			return deny(req)
		}
		return nil

	case domain.RequireServerMember:
		m, err := sess.membership(ctx, req.ServerID)
		if err != nil {
			return err
		}
		if m == nil {
			return deny(req)
		}
		return nil

	case domain.RequireFederation:
		if _, ok := sess.principal.(domain.FederationPrincipal); !ok {
			return deny(req)
		}
		return nil

	default:
		return fmt.Errorf("unknown requirement kind %v", req.Kind)
	}
}

func deny(req domain.Requirement) error {
	return fmt.Errorf("%w: requires %s", domain.ErrAccessDenied, req.Kind)
}
