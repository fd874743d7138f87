package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sera-ai/sera/store"
)

// Keyword categories for rule-based card synthesis.
var (
	scheduleKeywords = []string{"meeting", "schedule", "appointment"}
	reminderKeywords = []string{"remind", "reminder"}
)

// RuleGenerator synthesizes cards by keyword matching. It is deterministic
// modulo timestamps and card ids, which makes it usable both as the model
// backend's recovery path and standalone for offline operation.
type RuleGenerator struct {
	nowFn func() time.Time
}

// NewRuleGenerator creates a rule-based generator using the wall clock.
func NewRuleGenerator() *RuleGenerator {
	return &RuleGenerator{nowFn: func() time.Time { return time.Now().UTC() }}
}

// NewRuleGeneratorWithClock creates a rule-based generator with an injected
// clock for snapshot testing.
func NewRuleGeneratorWithClock(nowFn func() time.Time) *RuleGenerator {
	return &RuleGenerator{nowFn: nowFn}
}

// GenerateCards emits one card per matched keyword category, or a generic
// task card when nothing matches. The result is never empty.
func (g *RuleGenerator) GenerateCards(_ context.Context, userText, userID string) []*store.SuggestionCard {
	now := g.nowFn()
	lowered := strings.ToLower(userText)
	cards := []*store.SuggestionCard{}

	if containsAny(lowered, scheduleKeywords) {
		cards = append(cards, &store.SuggestionCard{
			UID:         uuid.New().String(),
			Type:        "schedule",
			Title:       "Schedule Meeting",
			Description: fmt.Sprintf("Schedule a meeting: %s", userText),
			PrimaryAction: map[string]any{
				"event_title":      "Team Meeting",
				"start_time":       formatTimestamp(now.Add(1 * time.Hour)),
				"end_time":         formatTimestamp(now.Add(2 * time.Hour)),
				"duration_minutes": float64(60),
				"location":         "Office",
				"participants":     []any{"team"},
				"notes":            userText,
			},
			Alternatives: []store.TimeSlot{
				{
					StartTime: formatTimestamp(now.Add(3 * time.Hour)),
					EndTime:   formatTimestamp(now.Add(4 * time.Hour)),
					Reason:    "Later time available",
				},
			},
			Confidence: 0.9,
			Metadata: map[string]any{
				"urgency":     "medium",
				"flexibility": "flexible",
				"priority":    "medium",
			},
			Status:    store.CardStatusPending,
			UserID:    userID,
			CreatedTs: now.Unix(),
		})
	}

	if containsAny(lowered, reminderKeywords) {
		cards = append(cards, &store.SuggestionCard{
			UID:         uuid.New().String(),
			Type:        "reminder",
			Title:       "Set Reminder",
			Description: fmt.Sprintf("Set reminder: %s", userText),
			PrimaryAction: map[string]any{
				"event_title":      "Reminder",
				"start_time":       formatTimestamp(now.Add(1 * time.Hour)),
				"end_time":         formatTimestamp(now.Add(1 * time.Hour)),
				"duration_minutes": float64(0),
				"notes":            userText,
			},
			Alternatives: []store.TimeSlot{},
			Confidence:   0.8,
			Metadata: map[string]any{
				"urgency":     "low",
				"flexibility": "flexible",
				"priority":    "low",
			},
			Status:    store.CardStatusPending,
			UserID:    userID,
			CreatedTs: now.Unix(),
		})
	}

	if len(cards) == 0 {
		cards = append(cards, &store.SuggestionCard{
			UID:         uuid.New().String(),
			Type:        "task",
			Title:       "Create Task",
			Description: fmt.Sprintf("Create task: %s", userText),
			PrimaryAction: map[string]any{
				"event_title":      "New Task",
				"start_time":       formatTimestamp(now.Add(1 * time.Hour)),
				"end_time":         formatTimestamp(now.Add(1 * time.Hour)),
				"duration_minutes": float64(30),
				"notes":            userText,
			},
			Alternatives: []store.TimeSlot{},
			Confidence:   0.7,
			Metadata: map[string]any{
				"urgency":     "medium",
				"flexibility": "flexible",
				"priority":    "medium",
			},
			Status:    store.CardStatusPending,
			UserID:    userID,
			CreatedTs: now.Unix(),
		})
	}

	return cards
}

// ProcessCardAction returns a canned confirmation for the action.
func (g *RuleGenerator) ProcessCardAction(_ context.Context, _ string, action string, _ map[string]any) *ActionResult {
	return &ActionResult{
		Message:        fmt.Sprintf("Action '%s' completed successfully", action),
		NextSteps:      []string{"Calendar updated", "Notifications sent"},
		CalendarUpdate: map[string]any{"status": action, "action": action},
		Notifications:  []string{"Schedule updated"},
	}
}

// HealthCheck always succeeds; the rule generator has no external dependency.
func (g *RuleGenerator) HealthCheck(_ context.Context) string {
	return StatusHealthyTestMode
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
