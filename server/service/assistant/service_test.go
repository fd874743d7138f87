package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sera-ai/sera/plugin/generator"
	"github.com/sera-ai/sera/store"
)

// mockStore implements Store with configurable failures.
type mockStore struct {
	mu       sync.Mutex
	cards    []*store.SuggestionCard
	sessions []*store.Session
	statuses map[string]store.CardStatus

	failUpsertCard bool
	failSession    bool
}

func newMockStore() *mockStore {
	return &mockStore{statuses: map[string]store.CardStatus{}}
}

func (m *mockStore) UpsertCard(_ context.Context, upsert *store.SuggestionCard) (*store.SuggestionCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsertCard {
		return nil, errors.New("database unavailable")
	}
	m.cards = append(m.cards, upsert)
	return upsert, nil
}

func (m *mockStore) ListCards(_ context.Context, find *store.FindCard) ([]*store.SuggestionCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*store.SuggestionCard
	for _, card := range m.cards {
		if find.UserID != nil && card.UserID != *find.UserID {
			continue
		}
		result = append(result, card)
	}
	return result, nil
}

func (m *mockStore) UpdateCardStatus(_ context.Context, uid string, status store.CardStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[uid] = status
	return nil
}

func (m *mockStore) UpsertSession(_ context.Context, upsert *store.Session) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSession {
		return nil, errors.New("database unavailable")
	}
	m.sessions = append(m.sessions, upsert)
	return upsert, nil
}

// mockNotifier captures pushed messages and signals on each delivery.
type mockNotifier struct {
	mu       sync.Mutex
	messages []any
	signal   chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{signal: make(chan struct{}, 8)}
}

func (m *mockNotifier) SendToUser(message any, _ string) {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	m.signal <- struct{}{}
}

func (m *mockNotifier) waitForMessage(t *testing.T) map[string]any {
	t.Helper()
	select {
	case <-m.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push message")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[len(m.messages)-1].(map[string]any)
	require.True(t, ok)
	return msg
}

func newTestService(st Store, notifier Notifier) *Service {
	return NewService(generator.NewRuleGenerator(), st, notifier, nil)
}

func TestProcessRequestPersistsAndPushes(t *testing.T) {
	ctx := context.Background()
	st := newMockStore()
	notifier := newMockNotifier()
	svc := newTestService(st, notifier)

	resp, err := svc.ProcessRequest(ctx, "user-1", "schedule a meeting tomorrow")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.SessionID)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "schedule", resp.Cards[0].Type)

	assert.Len(t, st.cards, 1)
	require.Len(t, st.sessions, 1)
	assert.Equal(t, resp.SessionID, st.sessions[0].UID)
	assert.Equal(t, "user-1", st.sessions[0].UserID)
	assert.NotEmpty(t, st.sessions[0].Cards)

	msg := notifier.waitForMessage(t)
	assert.Equal(t, "suggestion_cards", msg["type"])
	assert.Equal(t, resp.SessionID, msg["session_id"])
}

func TestProcessRequestSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	st := newMockStore()
	st.failUpsertCard = true
	st.failSession = true
	notifier := newMockNotifier()
	svc := newTestService(st, notifier)

	resp, err := svc.ProcessRequest(ctx, "user-1", "remind me to call")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Cards)
	assert.Equal(t, "success", resp.Status)

	// The push still goes out even though nothing was persisted.
	msg := notifier.waitForMessage(t)
	assert.Equal(t, "suggestion_cards", msg["type"])
}

func TestHandleCardAction(t *testing.T) {
	ctx := context.Background()
	st := newMockStore()
	notifier := newMockNotifier()
	svc := newTestService(st, notifier)

	resp, err := svc.HandleCardAction(ctx, "user-1", "card-1", "accept", nil)
	require.NoError(t, err)
	assert.Equal(t, "card-1", resp.CardID)
	assert.Equal(t, "accept", resp.Action)
	assert.Equal(t, "accepted", resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "Action 'accept' completed successfully", resp.Result.Message)

	assert.Equal(t, store.CardStatusAccepted, st.statuses["card-1"])

	msg := notifier.waitForMessage(t)
	assert.Equal(t, "card_action_processed", msg["type"])
	assert.Equal(t, "card-1", msg["card_id"])
}

func TestHandleCardActionStatusMapping(t *testing.T) {
	ctx := context.Background()
	st := newMockStore()
	notifier := newMockNotifier()
	svc := newTestService(st, notifier)

	for action, want := range map[string]store.CardStatus{
		"accept": store.CardStatusAccepted,
		"reject": store.CardStatusRejected,
		"modify": store.CardStatusModified,
		"snooze": store.CardStatusPending,
	} {
		resp, err := svc.HandleCardAction(ctx, "user-1", "card-"+action, action, nil)
		require.NoError(t, err)
		assert.Equal(t, want.String(), resp.Status)
		assert.Equal(t, want, st.statuses["card-"+action])
		notifier.waitForMessage(t)
	}
}

func TestHandleCardActionUnknownAction(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMockStore(), newMockNotifier())

	_, err := svc.HandleCardAction(ctx, "user-1", "card-1", "explode", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestListCards(t *testing.T) {
	ctx := context.Background()
	st := newMockStore()
	st.cards = []*store.SuggestionCard{
		{UID: "a", UserID: "user-1"},
		{UID: "b", UserID: "user-2"},
	}
	svc := newTestService(st, newMockNotifier())

	cards, err := svc.ListCards(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "a", cards[0].UID)
}

func TestHealth(t *testing.T) {
	svc := newTestService(newMockStore(), newMockNotifier())
	assert.Equal(t, generator.StatusHealthyTestMode, svc.Health(context.Background()))
}

// ctxSensitiveGenerator reports unhealthy whenever the probe context is
// already cancelled, mimicking a transport client that checks ctx.Err.
type ctxSensitiveGenerator struct {
	generator.CardGenerator
}

func (g *ctxSensitiveGenerator) HealthCheck(ctx context.Context) string {
	if ctx.Err() != nil {
		return generator.StatusUnhealthy
	}
	return generator.StatusHealthy
}

func TestHealthSurvivesCancelledCaller(t *testing.T) {
	svc := NewService(&ctxSensitiveGenerator{CardGenerator: generator.NewRuleGenerator()},
		newMockStore(), newMockNotifier(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A caller whose request was already cancelled must not poison the
	// coalesced probe result.
	assert.Equal(t, generator.StatusHealthy, svc.Health(ctx))
}
