// Package generator turns free-text user requests into suggestion cards.
//
// Two interchangeable backends implement CardGenerator: ModelGenerator calls a
// chat-completion API and parses its JSON output, RuleGenerator synthesizes
// cards from keyword matching. The model backend embeds the rule backend as
// its recovery path, so GenerateCards never fails and never returns an empty
// result.
package generator

import (
	"context"

	"github.com/sera-ai/sera/store"
)

// Health probe results.
const (
	StatusHealthy         = "healthy"
	StatusHealthyTestMode = "healthy (test mode)"
	StatusUnhealthy       = "unhealthy"
)

// ActionResult is the confirmation payload for a processed card action.
type ActionResult struct {
	Message        string         `json:"message"`
	NextSteps      []string       `json:"next_steps"`
	CalendarUpdate map[string]any `json:"calendar_update"`
	Notifications  []string       `json:"notifications"`
}

// CardGenerator is the generation backend contract.
type CardGenerator interface {
	// GenerateCards converts user text into suggestion cards. It never
	// returns an empty slice: when the primary backend fails, degraded
	// rule-based output is produced instead.
	GenerateCards(ctx context.Context, userText, userID string) []*store.SuggestionCard

	// ProcessCardAction produces a confirmation payload for a user action
	// on a card. It never fails; a canned confirmation is returned when the
	// explainer backend is unavailable.
	ProcessCardAction(ctx context.Context, cardUID, action string, modifications map[string]any) *ActionResult

	// HealthCheck reports whether the backend can currently be reached.
	HealthCheck(ctx context.Context) string
}
