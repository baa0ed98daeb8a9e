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
	"github.com/hearth-im/hearth/pkg/slogx"
)

// UserService manages local accounts.
type UserService struct {
	store store.Store
	now   func() time.Time
}

func NewUserService(st store.Store) *UserService {
	return &UserService{store: st, now: time.Now}
}

// Register creates a local account with a hashed password.
func (s *UserService) Register(ctx context.Context, username, password string, hostAdmin bool) (domain.User, error) {
	if _, err := s.store.Users().GetByUsername(ctx, username); err == nil {
		return domain.User{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := domain.User{
		ID:           idx.New(),
		Username:     username,
		PasswordHash: hash,
		IsHostAdmin:  hostAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// EnsureHostAdmin creates the bootstrap admin account on first boot. An
// existing account with the same name is left untouched, password included.
func (s *UserService) EnsureHostAdmin(ctx context.Context, username, password string) error {
	_, err := s.store.Users().GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	u, err := s.Register(ctx, username, password, true)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	slogx.FromContext(ctx).Info("created bootstrap host admin", "user_id", u.ID, "username", username)
	return nil
}

// GetByID fetches a user for display, mapping missing rows to ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id idx.ID) (domain.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
