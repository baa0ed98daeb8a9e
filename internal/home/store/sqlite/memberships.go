package sqlite

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

type membershipRepo struct {
	q querier
}

func (r *membershipRepo) Upsert(ctx context.Context, m domain.Membership) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO memberships (server_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (server_id, user_id) DO UPDATE SET role = excluded.role`,
		m.ServerID.String(), m.UserID.String(), m.Role, m.CreatedAt.Unix(),
	)
	return err
}

func (r *membershipRepo) Get(ctx context.Context, serverID, userID idx.ID) (domain.Membership, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT server_id, user_id, role, created_at
		FROM memberships WHERE server_id = ? AND user_id = ?`,
		serverID.String(), userID.String())
	return scanMembership(row)
}

func (r *membershipRepo) ListForServer(ctx context.Context, serverID idx.ID) ([]domain.Membership, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT server_id, user_id, role, created_at
		FROM memberships WHERE server_id = ? ORDER BY created_at, user_id`,
		serverID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipRepo) Delete(ctx context.Context, serverID, userID idx.ID) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM memberships WHERE server_id = ? AND user_id = ?`,
		serverID.String(), userID.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapNotFoundAffected()
	}
	return nil
}

func scanMembership(row rowScanner) (domain.Membership, error) {
	var (
		m                domain.Membership
		serverID, userID string
		createdAt        int64
	)
	if err := row.Scan(&serverID, &userID, &m.Role, &createdAt); err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	m.ServerID = idx.ID(serverID)
	m.UserID = idx.ID(userID)
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	return m, nil
}
