package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/sera-ai/sera/store"
)

func (d *DB) UpsertUserPreference(ctx context.Context, upsert *store.UserPreference) (*store.UserPreference, error) {
	preferences := upsert.Preferences
	if preferences == "" {
		preferences = "{}"
	}

	stmt := `INSERT INTO user_preference (user_id, preferences, updated_ts)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT (user_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			updated_ts = strftime('%s', 'now')
		RETURNING updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, upsert.UserID, preferences).Scan(
		&upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert user preference")
	}

	upsert.Preferences = preferences
	return upsert, nil
}

func (d *DB) GetUserPreference(ctx context.Context, find *store.FindUserPreference) (*store.UserPreference, error) {
	if find.UserID == nil {
		return nil, errors.New("user_id is required")
	}

	var pref store.UserPreference
	err := d.db.QueryRowContext(ctx,
		`SELECT user_id, preferences, updated_ts FROM user_preference WHERE user_id = ?`,
		*find.UserID,
	).Scan(&pref.UserID, &pref.Preferences, &pref.UpdatedTs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user preference")
	}

	return &pref, nil
}
