package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/sera-ai/sera/store"
)

func (d *DB) UpsertCard(ctx context.Context, upsert *store.SuggestionCard) (*store.SuggestionCard, error) {
	primaryAction, alternatives, metadata, err := marshalCardFields(upsert)
	if err != nil {
		return nil, err
	}

	fields := []string{"uid", "type", "title", "description", "primary_action", "alternatives", "confidence", "metadata", "status", "user_id"}
	args := []any{
		upsert.UID, upsert.Type, upsert.Title, upsert.Description,
		primaryAction, alternatives, upsert.Confidence, metadata,
		upsert.Status.String(), upsert.UserID,
	}
	if upsert.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		args = append(args, upsert.CreatedTs)
	}

	stmt := `INSERT INTO card (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (uid) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			primary_action = EXCLUDED.primary_action,
			alternatives = EXCLUDED.alternatives,
			confidence = EXCLUDED.confidence,
			metadata = EXCLUDED.metadata,
			status = EXCLUDED.status,
			user_id = EXCLUDED.user_id
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&upsert.ID,
		&upsert.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert card")
	}

	return upsert, nil
}

func (d *DB) ListCards(ctx context.Context, find *store.FindCard) ([]*store.SuggestionCard, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UID; v != nil {
		where, args = append(where, "card.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "card.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "card.status = "+placeholder(len(args)+1)), append(args, v.String())
	}

	// Most recent first; id breaks created_ts ties by insertion order.
	query := `
		SELECT
			id, uid, type, title, description,
			primary_action, alternatives, confidence, metadata,
			status, user_id, created_ts
		FROM card
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY card.created_ts DESC, card.id DESC`

	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cards")
	}
	defer rows.Close()

	list := make([]*store.SuggestionCard, 0)
	for rows.Next() {
		var card store.SuggestionCard
		var primaryAction, alternatives, metadata, status string

		if err := rows.Scan(
			&card.ID,
			&card.UID,
			&card.Type,
			&card.Title,
			&card.Description,
			&primaryAction,
			&alternatives,
			&card.Confidence,
			&metadata,
			&status,
			&card.UserID,
			&card.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan card")
		}

		card.Status = store.CardStatus(status)
		if err := unmarshalCardFields(&card, primaryAction, alternatives, metadata); err != nil {
			return nil, err
		}
		list = append(list, &card)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate cards")
	}

	return list, nil
}

// UpdateCardStatus sets the status unconditionally. A missing uid updates
// zero rows and is not an error.
func (d *DB) UpdateCardStatus(ctx context.Context, uid string, status store.CardStatus) error {
	if _, err := d.db.ExecContext(ctx,
		`UPDATE card SET status = $1 WHERE uid = $2`,
		status.String(), uid,
	); err != nil {
		return errors.Wrap(err, "failed to update card status")
	}
	return nil
}

func marshalCardFields(card *store.SuggestionCard) (primaryAction, alternatives, metadata string, err error) {
	pa := card.PrimaryAction
	if pa == nil {
		pa = map[string]any{}
	}
	paBytes, err := json.Marshal(pa)
	if err != nil {
		return "", "", "", errors.Wrap(err, "failed to marshal primary_action")
	}

	alts := card.Alternatives
	if alts == nil {
		alts = []store.TimeSlot{}
	}
	altBytes, err := json.Marshal(alts)
	if err != nil {
		return "", "", "", errors.Wrap(err, "failed to marshal alternatives")
	}

	meta := card.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", "", "", errors.Wrap(err, "failed to marshal metadata")
	}

	return string(paBytes), string(altBytes), string(metaBytes), nil
}

func unmarshalCardFields(card *store.SuggestionCard, primaryAction, alternatives, metadata string) error {
	card.PrimaryAction = map[string]any{}
	if primaryAction != "" {
		if err := json.Unmarshal([]byte(primaryAction), &card.PrimaryAction); err != nil {
			return errors.Wrap(err, "failed to unmarshal primary_action")
		}
	}

	card.Alternatives = []store.TimeSlot{}
	if alternatives != "" {
		if err := json.Unmarshal([]byte(alternatives), &card.Alternatives); err != nil {
			return errors.Wrap(err, "failed to unmarshal alternatives")
		}
	}

	card.Metadata = map[string]any{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &card.Metadata); err != nil {
			return errors.Wrap(err, "failed to unmarshal metadata")
		}
	}

	return nil
}
