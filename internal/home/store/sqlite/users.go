package sqlite

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

type userRepo struct {
	q querier
}

func (r *userRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, is_host_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Username, u.PasswordHash, boolToInt(u.IsHostAdmin),
		u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id idx.ID) (domain.User, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_host_admin, created_at, updated_at
		FROM users WHERE id = ?`, id.String()))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_host_admin, created_at, updated_at
		FROM users WHERE username = ?`, username))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *userRepo) scanOne(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		id                   string
		hostAdmin            int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &u.Username, &u.PasswordHash, &hostAdmin, &createdAt, &updatedAt); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.ID = idx.ID(id)
	u.IsHostAdmin = hostAdmin != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
