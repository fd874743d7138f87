package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sera-ai/sera/store"
)

func TestSessionUpsertAndList(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	snapshot := `[{"card_id":"card-1","type":"schedule"}]`
	_, err := ts.UpsertSession(ctx, &store.Session{
		UID:    "session-1",
		UserID: "user-1",
		Cards:  snapshot,
	})
	require.NoError(t, err)

	sessions, err := ts.ListSessions(ctx, &store.FindSession{UserID: stringPtr("user-1")})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "session-1", sessions[0].UID)
	assert.Equal(t, snapshot, sessions[0].Cards)
	assert.NotZero(t, sessions[0].CreatedTs)
}

func TestSessionSnapshotIndependentOfCardMutation(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	card := newTestCard("card-1", "user-1", 1700000000)
	_, err := ts.UpsertCard(ctx, card)
	require.NoError(t, err)

	snapshot := `[{"card_id":"card-1","status":"pending"}]`
	_, err = ts.UpsertSession(ctx, &store.Session{UID: "session-1", UserID: "user-1", Cards: snapshot})
	require.NoError(t, err)

	// Mutating the card later must not touch the recorded snapshot.
	require.NoError(t, ts.UpdateCardStatus(ctx, "card-1", store.CardStatusAccepted))

	sessions, err := ts.ListSessions(ctx, &store.FindSession{UID: stringPtr("session-1")})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, snapshot, sessions[0].Cards)
}

func TestSessionEmptyCardsDefaultsToEmptyList(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.UpsertSession(ctx, &store.Session{UID: "session-1", UserID: "user-1"})
	require.NoError(t, err)

	sessions, err := ts.ListSessions(ctx, &store.FindSession{UID: stringPtr("session-1")})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "[]", sessions[0].Cards)
}
