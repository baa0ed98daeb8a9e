package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/pkg/idx"
)

// CommunityService manages the community servers hosted here: their
// channels, members and messages. Authorization is the caller's concern;
// handlers run the evaluator before reaching these methods.
type CommunityService struct {
	store store.Store
	now   func() time.Time
}

func NewCommunityService(st store.Store) *CommunityService {
	return &CommunityService{store: st, now: time.Now}
}

// CreateServer creates a community server and enrolls the owner as its
// first admin in the same transaction.
func (s *CommunityService) CreateServer(ctx context.Context, ownerID idx.ID, name string) (domain.Server, error) {
	now := s.now()
	srv := domain.Server{
		ID:        idx.New(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Servers().Create(ctx, srv); err != nil {
			return fmt.Errorf("create server: %w", err)
		}
		m := domain.Membership{ServerID: srv.ID, UserID: ownerID, Role: domain.RoleAdmin, CreatedAt: now}
		if err := tx.Memberships().Upsert(ctx, m); err != nil {
			return fmt.Errorf("enroll owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Server{}, err
	}
	return srv, nil
}

func (s *CommunityService) GetServer(ctx context.Context, id idx.ID) (domain.Server, error) {
	srv, err := s.store.Servers().GetByID(ctx, id)
	if err != nil {
		return domain.Server{}, mapStoreErr("get server", err)
	}
	return srv, nil
}

func (s *CommunityService) ListServers(ctx context.Context) ([]domain.Server, error) {
	return s.store.Servers().List(ctx)
}

func (s *CommunityService) DeleteServer(ctx context.Context, id idx.ID) error {
	if err := s.store.Servers().Delete(ctx, id); err != nil {
		return mapStoreErr("delete server", err)
	}
	return nil
}

// AddMember enrolls (or re-roles) a user in a community server.
func (s *CommunityService) AddMember(ctx context.Context, serverID, userID idx.ID, role string) error {
	if role != domain.RoleMember && role != domain.RoleAdmin {
		return fmt.Errorf("invalid role %q", role)
	}
	if _, err := s.store.Servers().GetByID(ctx, serverID); err != nil {
		return mapStoreErr("get server", err)
	}
	m := domain.Membership{ServerID: serverID, UserID: userID, Role: role, CreatedAt: s.now()}
	return s.store.Memberships().Upsert(ctx, m)
}

// ListMembers returns a server's memberships, used by peers to discover
// which local users belong to a space.
func (s *CommunityService) ListMembers(ctx context.Context, serverID idx.ID) ([]domain.Membership, error) {
	if _, err := s.store.Servers().GetByID(ctx, serverID); err != nil {
		return nil, mapStoreErr("get server", err)
	}
	return s.store.Memberships().ListForServer(ctx, serverID)
}

func (s *CommunityService) CreateChannel(ctx context.Context, serverID idx.ID, name, topic string) (domain.Channel, error) {
	if _, err := s.store.Servers().GetByID(ctx, serverID); err != nil {
		return domain.Channel{}, mapStoreErr("get server", err)
	}
	ch := domain.Channel{
		ID:        idx.New(),
		ServerID:  serverID,
		Name:      name,
		Topic:     topic,
		CreatedAt: s.now(),
	}
	if err := s.store.Channels().Create(ctx, ch); err != nil {
		return domain.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	return ch, nil
}

func (s *CommunityService) GetChannel(ctx context.Context, id idx.ID) (domain.Channel, error) {
	ch, err := s.store.Channels().GetByID(ctx, id)
	if err != nil {
		return domain.Channel{}, mapStoreErr("get channel", err)
	}
	return ch, nil
}

func (s *CommunityService) ListChannels(ctx context.Context, serverID idx.ID) ([]domain.Channel, error) {
	return s.store.Channels().ListForServer(ctx, serverID)
}

func (s *CommunityService) DeleteChannel(ctx context.Context, id idx.ID) error {
	if err := s.store.Channels().Delete(ctx, id); err != nil {
		return mapStoreErr("delete channel", err)
	}
	return nil
}

// PostMessage records a message from either a local user or a delegated
// remote author.
func (s *CommunityService) PostMessage(ctx context.Context, channelID idx.ID, author domain.Principal, body string) (domain.Message, error) {
	msg := domain.Message{
		ID:        idx.New(),
		ChannelID: channelID,
		Body:      body,
		CreatedAt: s.now(),
	}

	switch p := author.(type) {
	case domain.ClientPrincipal:
		u, err := s.store.Users().GetByID(ctx, p.UserID)
		if err != nil {
			return domain.Message{}, mapStoreErr("get author", err)
		}
		msg.AuthorID = u.ID
		msg.AuthorName = u.Username
	case domain.FederationPrincipal:
		if p.User == nil {
			return domain.Message{}, fmt.Errorf("%w: federation message without delegated user", domain.ErrAccessDenied)
		}
		msg.AuthorName = p.User.Name
		msg.AuthorDomain = p.User.Domain
	default:
		return domain.Message{}, fmt.Errorf("unknown principal type %T", author)
	}

	if err := s.store.Messages().Create(ctx, msg); err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

func (s *CommunityService) ListMessages(ctx context.Context, channelID idx.ID, limit int) ([]domain.Message, error) {
	return s.store.Messages().ListForChannel(ctx, channelID, limit)
}

func mapStoreErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
