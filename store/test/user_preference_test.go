package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sera-ai/sera/store"
)

func TestUserPreferenceMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	pref, err := ts.GetUserPreference(ctx, &store.FindUserPreference{UserID: stringPtr("user-1")})
	require.NoError(t, err)
	assert.Nil(t, pref)
}

func TestUserPreferenceUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	doc := `{"working_hours":{"start":"09:00","end":"17:00"}}`
	_, err := ts.UpsertUserPreference(ctx, &store.UserPreference{
		UserID:      "user-1",
		Preferences: doc,
	})
	require.NoError(t, err)

	pref, err := ts.GetUserPreference(ctx, &store.FindUserPreference{UserID: stringPtr("user-1")})
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, doc, pref.Preferences)
	assert.NotZero(t, pref.UpdatedTs)

	// Second upsert replaces the document.
	updated := `{"working_hours":{"start":"08:00","end":"16:00"}}`
	_, err = ts.UpsertUserPreference(ctx, &store.UserPreference{UserID: "user-1", Preferences: updated})
	require.NoError(t, err)

	pref, err = ts.GetUserPreference(ctx, &store.FindUserPreference{UserID: stringPtr("user-1")})
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, updated, pref.Preferences)
}
