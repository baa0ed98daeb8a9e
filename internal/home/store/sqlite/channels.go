package sqlite

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

type channelRepo struct {
	q querier
}

func (r *channelRepo) Create(ctx context.Context, c domain.Channel) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO channels (id, server_id, name, topic, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.ServerID.String(), c.Name, c.Topic, c.CreatedAt.Unix(),
	)
	return err
}

func (r *channelRepo) GetByID(ctx context.Context, id idx.ID) (domain.Channel, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, server_id, name, topic, created_at
		FROM channels WHERE id = ?`, id.String())
	return scanChannel(row)
}

func (r *channelRepo) ListForServer(ctx context.Context, serverID idx.ID) ([]domain.Channel, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, server_id, name, topic, created_at
		FROM channels WHERE server_id = ? ORDER BY created_at, id`,
		serverID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *channelRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapNotFoundAffected()
	}
	return nil
}

func scanChannel(row rowScanner) (domain.Channel, error) {
	var (
		c            domain.Channel
		id, serverID string
		createdAt    int64
	)
	if err := row.Scan(&id, &serverID, &c.Name, &c.Topic, &createdAt); err != nil {
		return domain.Channel{}, mapNotFound(err)
	}
	c.ID = idx.ID(id)
	c.ServerID = idx.ID(serverID)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return c, nil
}
