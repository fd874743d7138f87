// Package assistant orchestrates the card-generation pipeline: free text goes
// in, the generation backend produces candidate cards, the store persists
// them, and live connections are notified asynchronously.
//
// Persistence faults are logged and absorbed; the in-memory result is still
// returned and pushed, because a single user's generation request must not
// fail on a storage hiccup.
package assistant

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/sera-ai/sera/internal/observability"
	"github.com/sera-ai/sera/plugin/generator"
	"github.com/sera-ai/sera/store"
)

// Store is the interface for store operations needed by the assistant service.
type Store interface {
	UpsertCard(ctx context.Context, upsert *store.SuggestionCard) (*store.SuggestionCard, error)
	ListCards(ctx context.Context, find *store.FindCard) ([]*store.SuggestionCard, error)
	UpdateCardStatus(ctx context.Context, uid string, status store.CardStatus) error
	UpsertSession(ctx context.Context, upsert *store.Session) (*store.Session, error)
}

// Notifier is the push-channel surface the service needs.
type Notifier interface {
	SendToUser(message any, userID string)
}

// GenerationResponse is the result of one generation request.
type GenerationResponse struct {
	SessionID string                  `json:"session_id"`
	Cards     []*store.SuggestionCard `json:"cards"`
	Status    string                  `json:"status"`
}

// ActionResponse is the result of one card action request.
type ActionResponse struct {
	CardID string                  `json:"card_id"`
	Action string                  `json:"action"`
	Status string                  `json:"status"`
	Result *generator.ActionResult `json:"result"`
}

// actionStatus maps user actions onto card lifecycle statuses. Snoozing keeps
// the card pending.
var actionStatus = map[string]store.CardStatus{
	"accept": store.CardStatusAccepted,
	"reject": store.CardStatusRejected,
	"modify": store.CardStatusModified,
	"snooze": store.CardStatusPending,
}

// ErrUnknownAction is returned for card actions outside accept/reject/modify/snooze.
var ErrUnknownAction = errors.New("unknown card action")

// Service wires the generation backend, the card store, and the push registry.
type Service struct {
	generator generator.CardGenerator
	store     Store
	notifier  Notifier
	logger    *slog.Logger

	healthGroup singleflight.Group
}

// NewService creates the orchestrator service.
func NewService(gen generator.CardGenerator, st Store, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: gen,
		store:     st,
		notifier:  notifier,
		logger:    logger,
	}
}

// ProcessRequest runs the full pipeline for one free-text request:
// generate, persist, record the session snapshot, then notify asynchronously.
func (s *Service) ProcessRequest(ctx context.Context, userID, text string) (*GenerationResponse, error) {
	reqCtx := observability.NewRequestContext(s.logger, backendName(s.generator), userID)
	reqCtx.Info("processing generation request", slog.Int("text_length", len(text)))

	cards := s.generator.GenerateCards(ctx, text, userID)

	for _, card := range cards {
		if _, err := s.store.UpsertCard(ctx, card); err != nil {
			// Persisting is best-effort for this request; the in-memory
			// result is still returned and pushed.
			reqCtx.Error("failed to persist card", err, slog.String("card_uid", card.UID))
		}
	}

	sessionID := shortuuid.New()
	snapshot, err := json.Marshal(cards)
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot cards for session")
	}
	if _, err := s.store.UpsertSession(ctx, &store.Session{
		UID:    sessionID,
		UserID: userID,
		Cards:  string(snapshot),
	}); err != nil {
		reqCtx.Error("failed to persist session", err, slog.String(observability.LogFieldSessionID, sessionID))
	}

	go s.notifier.SendToUser(map[string]any{
		"type":       "suggestion_cards",
		"session_id": sessionID,
		"cards":      cards,
	}, userID)

	observability.GlobalMetrics().RecordGeneration(reqCtx.Duration())
	reqCtx.Info("generation request completed",
		slog.Int(observability.LogFieldCardCount, len(cards)),
		slog.String(observability.LogFieldSessionID, sessionID),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return &GenerationResponse{
		SessionID: sessionID,
		Cards:     cards,
		Status:    "success",
	}, nil
}

// HandleCardAction applies a user action to a card and returns the
// confirmation payload. The status update is unconditional; acting on an
// unknown card succeeds without effect.
func (s *Service) HandleCardAction(ctx context.Context, userID, cardUID, action string, modifications map[string]any) (*ActionResponse, error) {
	status, ok := actionStatus[action]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAction, "action %q", action)
	}

	reqCtx := observability.NewRequestContext(s.logger, backendName(s.generator), userID)

	if err := s.store.UpdateCardStatus(ctx, cardUID, status); err != nil {
		reqCtx.Error("failed to update card status", err, slog.String("card_uid", cardUID))
	}

	result := s.generator.ProcessCardAction(ctx, cardUID, action, modifications)

	go s.notifier.SendToUser(map[string]any{
		"type":    "card_action_processed",
		"card_id": cardUID,
		"action":  action,
		"result":  result,
	}, userID)

	reqCtx.Info("card action processed",
		slog.String("card_uid", cardUID),
		slog.String("action", action),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return &ActionResponse{
		CardID: cardUID,
		Action: action,
		Status: status.String(),
		Result: result,
	}, nil
}

// ListCards returns the user's stored cards, most recent first.
func (s *Service) ListCards(ctx context.Context, userID string) ([]*store.SuggestionCard, error) {
	return s.store.ListCards(ctx, &store.FindCard{UserID: &userID})
}

// Health reports whether the active generation backend is reachable.
// Concurrent probes are collapsed into one backend call. The probe runs
// detached from the caller's cancellation: coalesced callers share one
// result, and the first caller hanging up must not fail the probe for
// everyone behind it. The generator applies its own timeout.
func (s *Service) Health(ctx context.Context) string {
	result, _, _ := s.healthGroup.Do("health", func() (any, error) {
		return s.generator.HealthCheck(context.WithoutCancel(ctx)), nil
	})
	status, _ := result.(string)
	if status == "" {
		status = generator.StatusUnhealthy
	}
	return status
}

func backendName(gen generator.CardGenerator) string {
	switch gen.(type) {
	case *generator.ModelGenerator:
		return "model"
	case *generator.RuleGenerator:
		return "rule"
	default:
		return "unknown"
	}
}
