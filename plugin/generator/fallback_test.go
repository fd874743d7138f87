package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sera-ai/sera/store"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestRuleGeneratorScheduleKeyword(t *testing.T) {
	ctx := context.Background()
	g := NewRuleGeneratorWithClock(fixedClock())

	cards := g.GenerateCards(ctx, "Please schedule a Meeting with the team", "user-1")
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, "schedule", card.Type)
	assert.Equal(t, "Schedule Meeting", card.Title)
	assert.Equal(t, 0.9, card.Confidence)
	assert.Equal(t, store.CardStatusPending, card.Status)
	assert.Equal(t, "user-1", card.UserID)
	assert.NotEmpty(t, card.UID)

	// One-hour slot starting an hour out, with a +3h alternative.
	assert.Equal(t, "2025-03-10T10:00:00Z", card.PrimaryAction["start_time"])
	assert.Equal(t, "2025-03-10T11:00:00Z", card.PrimaryAction["end_time"])
	assert.Equal(t, float64(60), card.PrimaryAction["duration_minutes"])
	require.Len(t, card.Alternatives, 1)
	assert.Equal(t, "2025-03-10T12:00:00Z", card.Alternatives[0].StartTime)
	assert.Equal(t, "Later time available", card.Alternatives[0].Reason)
}

func TestRuleGeneratorReminderKeyword(t *testing.T) {
	ctx := context.Background()
	g := NewRuleGeneratorWithClock(fixedClock())

	cards := g.GenerateCards(ctx, "remind me to submit the report", "user-1")
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, "reminder", card.Type)
	assert.Equal(t, 0.8, card.Confidence)
	assert.Equal(t, float64(0), card.PrimaryAction["duration_minutes"])
	assert.Equal(t, card.PrimaryAction["start_time"], card.PrimaryAction["end_time"])
	assert.Empty(t, card.Alternatives)
}

func TestRuleGeneratorDefaultsToTask(t *testing.T) {
	ctx := context.Background()
	g := NewRuleGeneratorWithClock(fixedClock())

	cards := g.GenerateCards(ctx, "buy groceries", "user-1")
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, "task", card.Type)
	assert.Equal(t, "Create Task", card.Title)
	assert.Equal(t, 0.7, card.Confidence)
	assert.Equal(t, float64(30), card.PrimaryAction["duration_minutes"])
}

func TestRuleGeneratorBothCategories(t *testing.T) {
	ctx := context.Background()
	g := NewRuleGeneratorWithClock(fixedClock())

	cards := g.GenerateCards(ctx, "schedule a meeting and remind me beforehand", "user-1")
	require.Len(t, cards, 2)
	assert.Equal(t, "schedule", cards[0].Type)
	assert.Equal(t, "reminder", cards[1].Type)
	assert.NotEqual(t, cards[0].UID, cards[1].UID)
}

func TestRuleGeneratorProcessCardAction(t *testing.T) {
	ctx := context.Background()
	g := NewRuleGenerator()

	result := g.ProcessCardAction(ctx, "card-1", "accept", nil)
	require.NotNil(t, result)
	assert.Equal(t, "Action 'accept' completed successfully", result.Message)
	assert.NotEmpty(t, result.NextSteps)
	assert.Equal(t, "accept", result.CalendarUpdate["action"])
}

func TestRuleGeneratorHealthCheck(t *testing.T) {
	g := NewRuleGenerator()
	assert.Equal(t, StatusHealthyTestMode, g.HealthCheck(context.Background()))
}
