package generator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/sera-ai/sera/internal/observability"
	"github.com/sera-ai/sera/store"
)

// Config holds the model backend configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		TopP:        0.8,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
	}
}

// ChatClient is the slice of the OpenAI-compatible client the generator needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelGenerator asks a chat-completion model to produce suggestion cards.
// Every failure mode (transport, timeout, malformed output, all candidates
// rejected) degrades to the embedded rule generator.
type ModelGenerator struct {
	client   ChatClient
	config   *Config
	fallback *RuleGenerator
	nowFn    func() time.Time
}

// NewModelGenerator creates a model-backed generator.
func NewModelGenerator(cfg *Config) *ModelGenerator {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	return NewModelGeneratorWithClient(client, cfg)
}

// NewModelGeneratorWithClient creates a model-backed generator around an
// existing client. Used by tests to substitute a stub client.
func NewModelGeneratorWithClient(client ChatClient, cfg *Config) *ModelGenerator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &ModelGenerator{
		client:   client,
		config:   cfg,
		fallback: NewRuleGenerator(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// GenerateCards implements CardGenerator.
func (g *ModelGenerator) GenerateCards(ctx context.Context, userText, userID string) []*store.SuggestionCard {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildCardsPrompt(userText)},
		},
		Temperature: g.config.Temperature,
		TopP:        g.config.TopP,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		slog.Warn("model request failed, using rule generator", "error", err)
		return g.useFallback(ctx, userText, userID)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("model returned no choices, using rule generator")
		return g.useFallback(ctx, userText, userID)
	}

	candidates, err := parseCardsResponse(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("failed to parse model output, using rule generator", "error", err)
		return g.useFallback(ctx, userText, userID)
	}

	now := g.nowFn()
	cards := make([]*store.SuggestionCard, 0, len(candidates))
	for i, candidate := range candidates {
		card, err := NormalizeCandidate(candidate, userID, now)
		if err != nil {
			observability.GlobalMetrics().RecordValidationDrop()
			slog.Warn("dropping invalid candidate card", "index", i, "error", err)
			continue
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		slog.Warn("all candidate cards rejected, using rule generator")
		return g.useFallback(ctx, userText, userID)
	}

	return cards
}

// ProcessCardAction asks the model for a confirmation payload, degrading to a
// canned confirmation on any failure.
func (g *ModelGenerator) ProcessCardAction(ctx context.Context, cardUID, action string, modifications map[string]any) *ActionResult {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	fallbackResult := &ActionResult{
		Message:        "Action '" + action + "' completed",
		NextSteps:      []string{},
		CalendarUpdate: map[string]any{"status": action},
		Notifications:  []string{},
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildActionPrompt(cardUID, action)},
		},
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil || len(resp.Choices) == 0 {
		return fallbackResult
	}

	var result ActionResult
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Choices[0].Message.Content)), &result); err != nil {
		return fallbackResult
	}
	if result.Message == "" {
		return fallbackResult
	}
	if result.NextSteps == nil {
		result.NextSteps = []string{}
	}
	if result.CalendarUpdate == nil {
		result.CalendarUpdate = map[string]any{"status": action}
	}
	if result.Notifications == nil {
		result.Notifications = []string{}
	}
	return &result
}

// HealthCheck probes the model with a minimal completion request.
func (g *ModelGenerator) HealthCheck(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Say 'OK'"},
		},
		MaxTokens: 8,
	})
	if err != nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return StatusUnhealthy
	}
	return StatusHealthy
}

func (g *ModelGenerator) useFallback(ctx context.Context, userText, userID string) []*store.SuggestionCard {
	observability.GlobalMetrics().RecordFallback()
	return g.fallback.GenerateCards(ctx, userText, userID)
}

// parseCardsResponse strips optional code fences from the model output and
// extracts the cards array.
func parseCardsResponse(content string) ([]map[string]any, error) {
	var payload struct {
		Cards []map[string]any `json:"cards"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &payload); err != nil {
		return nil, err
	}
	if payload.Cards == nil {
		return nil, errMissingCards
	}
	return payload.Cards, nil
}

// errMissingCards marks model output that parsed as JSON but carries no
// cards array.
var errMissingCards = errors.New("model output has no cards array")

func stripCodeFences(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
