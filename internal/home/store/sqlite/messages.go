package sqlite

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/domain"
	"github.com/hearth-im/hearth/pkg/idx"
)

type messageRepo struct {
	q querier
}

func (r *messageRepo) Create(ctx context.Context, m domain.Message) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, author_id, author_name, author_domain, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.ChannelID.String(), m.AuthorID.String(),
		m.AuthorName, m.AuthorDomain, m.Body, m.CreatedAt.Unix(),
	)
	return err
}

func (r *messageRepo) ListForChannel(ctx context.Context, channelID idx.ID, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, channel_id, author_id, author_name, author_domain, body, created_at
		FROM messages WHERE channel_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		channelID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m              domain.Message
			id, chID, auID string
			createdAt      int64
		)
		if err := rows.Scan(&id, &chID, &auID, &m.AuthorName, &m.AuthorDomain, &m.Body, &createdAt); err != nil {
			return nil, err
		}
		m.ID = idx.ID(id)
		m.ChannelID = idx.ID(chID)
		m.AuthorID = idx.ID(auID)
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
