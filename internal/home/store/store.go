// Package store defines the persistence interfaces the service layer works
// against. Drivers live in subpackages; sqlite is the only one today.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

// ErrNotFound is returned when a lookup matches no row. Drivers translate
// their own not-found conditions into it so callers can use errors.Is.
var ErrNotFound = errors.New("store: not found")

// Store aggregates the repositories and transaction support.
type Store interface {
	Users() UserRepo
	RefreshTokens() RefreshTokenRepo
	Servers() ServerRepo
	Memberships() MembershipRepo
	Channels() ChannelRepo
	Messages() MessageRepo

	// WithTx runs fn against a transactional view of the store. fn's error
	// rolls back; nil commits.
	WithTx(ctx context.Context, fn func(Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

type UserRepo interface {
	Create(ctx context.Context, u domain.User) error
	GetByID(ctx context.Context, id idx.ID) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

type RefreshTokenRepo interface {
	Create(ctx context.Context, t domain.RefreshToken) error
	GetByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshToken, error)
	Revoke(ctx context.Context, id idx.ID, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID idx.ID, at time.Time) error
	// DeleteExpired removes tokens whose lifetime ended before cutoff and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type ServerRepo interface {
	Create(ctx context.Context, s domain.Server) error
	GetByID(ctx context.Context, id idx.ID) (domain.Server, error)
	List(ctx context.Context) ([]domain.Server, error)
	Delete(ctx context.Context, id idx.ID) error
}

type MembershipRepo interface {
	Upsert(ctx context.Context, m domain.Membership) error
	Get(ctx context.Context, serverID, userID idx.ID) (domain.Membership, error)
	ListForServer(ctx context.Context, serverID idx.ID) ([]domain.Membership, error)
	Delete(ctx context.Context, serverID, userID idx.ID) error
}

type ChannelRepo interface {
	Create(ctx context.Context, c domain.Channel) error
	GetByID(ctx context.Context, id idx.ID) (domain.Channel, error)
	ListForServer(ctx context.Context, serverID idx.ID) ([]domain.Channel, error)
	Delete(ctx context.Context, id idx.ID) error
}

type MessageRepo interface {
	Create(ctx context.Context, m domain.Message) error
	ListForChannel(ctx context.Context, channelID idx.ID, limit int) ([]domain.Message, error)
}
