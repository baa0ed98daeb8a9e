package sqlite

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

type serverRepo struct {
	q querier
}

func (r *serverRepo) Create(ctx context.Context, s domain.Server) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO servers (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID.String(), s.Name, s.OwnerID.String(), s.CreatedAt.Unix(), s.UpdatedAt.Unix(),
	)
	return err
}

func (r *serverRepo) GetByID(ctx context.Context, id idx.ID) (domain.Server, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM servers WHERE id = ?`, id.String())
	return scanServer(row)
}

func (r *serverRepo) List(ctx context.Context) ([]domain.Server, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM servers ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *serverRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapNotFoundAffected()
	}
	return nil
}

func scanServer(row rowScanner) (domain.Server, error) {
	var (
		s                    domain.Server
		id, ownerID          string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &s.Name, &ownerID, &createdAt, &updatedAt); err != nil {
		return domain.Server{}, mapNotFound(err)
	}
	s.ID = idx.ID(id)
	s.OwnerID = idx.ID(ownerID)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return s, nil
}
