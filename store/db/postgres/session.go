package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/sera-ai/sera/store"
)

func (d *DB) UpsertSession(ctx context.Context, upsert *store.Session) (*store.Session, error) {
	cards := upsert.Cards
	if cards == "" {
		cards = "[]"
	}

	fields := []string{"uid", "user_id", "cards"}
	args := []any{upsert.UID, upsert.UserID, cards}
	if upsert.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		args = append(args, upsert.CreatedTs)
	}

	stmt := `INSERT INTO user_session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (uid) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			cards = EXCLUDED.cards
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&upsert.ID,
		&upsert.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert session")
	}

	upsert.Cards = cards
	return upsert, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UID; v != nil {
		where, args = append(where, "user_session.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_session.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, user_id, cards, created_ts
		FROM user_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY user_session.created_ts DESC, user_session.id DESC`

	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sessions")
	}
	defer rows.Close()

	list := make([]*store.Session, 0)
	for rows.Next() {
		var session store.Session
		if err := rows.Scan(
			&session.ID,
			&session.UID,
			&session.UserID,
			&session.Cards,
			&session.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		list = append(list, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sessions")
	}

	return list, nil
}
