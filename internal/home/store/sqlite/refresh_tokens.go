package sqlite

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

type refreshTokenRepo struct {
	q querier
}

func (r *refreshTokenRepo) Create(ctx context.Context, t domain.RefreshToken) error {
	var revokedAt any
	if t.RevokedAt != nil {
		revokedAt = t.RevokedAt.Unix()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, client_id, scope, fingerprint, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.UserID.String(), t.ClientID, t.Scope, t.Fingerprint,
		t.ExpiresAt.Unix(), revokedAt, t.CreatedAt.Unix(),
	)
	return err
}

func (r *refreshTokenRepo) GetByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, scope, fingerprint, expires_at, revoked_at, created_at
		FROM refresh_tokens WHERE fingerprint = ?`, fingerprint)

	var (
		t                    domain.RefreshToken
		id, userID           string
		expiresAt, createdAt int64
		revokedAt            *int64
	)
	if err := row.Scan(&id, &userID, &t.ClientID, &t.Scope, &t.Fingerprint, &expiresAt, &revokedAt, &createdAt); err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ID = idx.ID(id)
	t.UserID = idx.ID(userID)
	t.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	if revokedAt != nil {
		at := time.Unix(*revokedAt, 0).UTC()
		t.RevokedAt = &at
	}
	return t, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, id idx.ID, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		at.Unix(), id.String())
	return err
}

func (r *refreshTokenRepo) RevokeAllForUser(ctx context.Context, userID idx.ID, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		at.Unix(), userID.String())
	return err
}

func (r *refreshTokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
