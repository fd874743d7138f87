package generator

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sera-ai/sera/store"
)

// stubChatClient replays a canned response or error for every request.
type stubChatClient struct {
	content string
	err     error
	noText  bool
}

func (c *stubChatClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	if c.noText {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.content}},
		},
	}, nil
}

func newTestModelGenerator(client ChatClient) *ModelGenerator {
	return NewModelGeneratorWithClient(client, &Config{Model: "test-model"})
}

func TestModelGeneratorParsesFencedOutput(t *testing.T) {
	ctx := context.Background()
	client := &stubChatClient{content: "```json\n" + `{
		"cards": [{
			"type": "schedule",
			"title": "Team Sync",
			"description": "Weekly team sync",
			"confidence": 0.9,
			"primary_action": {
				"start_time": "2025-03-11T10:00:00Z",
				"end_time": "2025-03-11T11:00:00Z"
			},
			"alternatives": [{
				"start_time": "2025-03-11T14:00:00Z",
				"end_time": "2025-03-11T15:00:00Z",
				"reason": "Afternoon slot"
			}]
		}]
	}` + "\n```"}

	g := newTestModelGenerator(client)
	cards := g.GenerateCards(ctx, "schedule the weekly sync", "user-1")

	require.Len(t, cards, 1)
	card := cards[0]
	assert.Equal(t, "Team Sync", card.Title)
	assert.Equal(t, store.CardStatusPending, card.Status)
	assert.Equal(t, "user-1", card.UserID)
	assert.NotEmpty(t, card.UID)
	assert.NotZero(t, card.CreatedTs)
	require.Len(t, card.Alternatives, 1)
	assert.Equal(t, "Afternoon slot", card.Alternatives[0].Reason)
}

func TestModelGeneratorFallsBackOnTransportError(t *testing.T) {
	ctx := context.Background()
	g := newTestModelGenerator(&stubChatClient{err: errors.New("connection refused")})

	cards := g.GenerateCards(ctx, "schedule a meeting", "user-1")
	require.NotEmpty(t, cards)
	assert.Equal(t, "schedule", cards[0].Type)
	assert.Equal(t, 0.9, cards[0].Confidence)
}

func TestModelGeneratorFallsBackOnMalformedOutput(t *testing.T) {
	ctx := context.Background()

	for _, content := range []string{
		"Sure! Here are some suggestions for you.",
		`{"not_cards": []}`,
		"```json\n{broken\n```",
	} {
		g := newTestModelGenerator(&stubChatClient{content: content})
		cards := g.GenerateCards(ctx, "remind me to call", "user-1")
		require.NotEmpty(t, cards, "content: %s", content)
		assert.Equal(t, "reminder", cards[0].Type)
	}
}

func TestModelGeneratorFallsBackOnEmptyChoices(t *testing.T) {
	ctx := context.Background()
	g := newTestModelGenerator(&stubChatClient{noText: true})

	cards := g.GenerateCards(ctx, "plan something", "user-1")
	require.NotEmpty(t, cards)
	assert.Equal(t, "task", cards[0].Type)
}

func TestModelGeneratorFallsBackWhenAllCandidatesRejected(t *testing.T) {
	ctx := context.Background()
	g := newTestModelGenerator(&stubChatClient{content: `{
		"cards": [{
			"title": "Broken",
			"primary_action": {"start_time": "sometime soon"}
		}]
	}`})

	cards := g.GenerateCards(ctx, "schedule a review", "user-1")
	require.NotEmpty(t, cards)
	assert.Equal(t, "schedule", cards[0].Type)
}

func TestModelGeneratorKeepsValidCandidatesDropsInvalid(t *testing.T) {
	ctx := context.Background()
	g := newTestModelGenerator(&stubChatClient{content: `{
		"cards": [
			{"title": "Good", "type": "task"},
			{"title": "Bad", "primary_action": {"start_time": "whenever"}}
		]
	}`})

	cards := g.GenerateCards(ctx, "plan my day", "user-1")
	require.Len(t, cards, 1)
	assert.Equal(t, "Good", cards[0].Title)
}

func TestModelGeneratorProcessCardAction(t *testing.T) {
	ctx := context.Background()

	g := newTestModelGenerator(&stubChatClient{content: `{
		"message": "Meeting confirmed",
		"next_steps": ["Invite sent"],
		"calendar_update": {"status": "accepted"},
		"notifications": ["Organizer notified"]
	}`})
	result := g.ProcessCardAction(ctx, "card-1", "accept", nil)
	require.NotNil(t, result)
	assert.Equal(t, "Meeting confirmed", result.Message)
	assert.Equal(t, []string{"Invite sent"}, result.NextSteps)

	// Any failure produces the canned confirmation.
	g = newTestModelGenerator(&stubChatClient{err: errors.New("timeout")})
	result = g.ProcessCardAction(ctx, "card-1", "reject", nil)
	require.NotNil(t, result)
	assert.Equal(t, "Action 'reject' completed", result.Message)
	assert.Equal(t, "reject", result.CalendarUpdate["status"])

	g = newTestModelGenerator(&stubChatClient{content: "not json"})
	result = g.ProcessCardAction(ctx, "card-1", "snooze", nil)
	require.NotNil(t, result)
	assert.Equal(t, "Action 'snooze' completed", result.Message)
}

func TestModelGeneratorHealthCheck(t *testing.T) {
	ctx := context.Background()

	g := newTestModelGenerator(&stubChatClient{content: "OK"})
	assert.Equal(t, StatusHealthy, g.HealthCheck(ctx))

	g = newTestModelGenerator(&stubChatClient{err: errors.New("unreachable")})
	assert.Equal(t, StatusUnhealthy, g.HealthCheck(ctx))

	g = newTestModelGenerator(&stubChatClient{noText: true})
	assert.Equal(t, StatusUnhealthy, g.HealthCheck(ctx))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}
