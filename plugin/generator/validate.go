package generator

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sera-ai/sera/store"
)

// defaultConfidence is assigned when a candidate carries no usable confidence.
const defaultConfidence = 0.5

// Timestamp layouts accepted from model output. Models frequently omit the
// zone designator, so the bare layout is tried after RFC 3339.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// NormalizeCandidate turns a raw candidate card of arbitrary shape into a
// well-formed SuggestionCard, or returns the reason it must be rejected.
//
// Identity and state fields (card id, status, user id, creation time) coming
// from the candidate are discarded: the model is untrusted for those, so they
// are minted here. Out-of-range confidence is clamped and logged, never
// propagated as an error. Unparseable timestamps reject the whole card rather
// than letting a malformed card reach the store.
func NormalizeCandidate(raw map[string]any, userID string, now time.Time) (*store.SuggestionCard, error) {
	if raw == nil {
		return nil, errors.New("candidate card is nil")
	}

	card := &store.SuggestionCard{
		UID:         uuid.New().String(),
		Type:        stringField(raw, "type", "task"),
		Title:       stringField(raw, "title", "Suggestion"),
		Description: stringField(raw, "description", ""),
		Status:      store.CardStatusPending,
		UserID:      userID,
		CreatedTs:   now.UTC().Unix(),
	}

	card.Confidence = clampConfidence(raw["confidence"])

	primaryAction, err := normalizePrimaryAction(raw["primary_action"])
	if err != nil {
		return nil, err
	}
	card.PrimaryAction = primaryAction

	alternatives, err := normalizeAlternatives(raw["alternatives"])
	if err != nil {
		return nil, err
	}
	card.Alternatives = alternatives

	metadata, _ := raw["metadata"].(map[string]any)
	if metadata == nil {
		metadata = map[string]any{}
	}
	card.Metadata = metadata

	return card, nil
}

func stringField(raw map[string]any, key, fallback string) string {
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func clampConfidence(value any) float64 {
	confidence, ok := toFloat(value)
	if !ok {
		return defaultConfidence
	}
	if confidence < 0 || confidence > 1 {
		clamped := min(max(confidence, 0), 1)
		slog.Warn("confidence out of range, clamping",
			slog.Float64("confidence", confidence),
			slog.Float64("clamped", clamped))
		return clamped
	}
	return confidence
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// normalizePrimaryAction accepts the action payload as an open mapping. No
// field is structurally required, but start_time/end_time must parse as
// ISO-8601 when present.
func normalizePrimaryAction(value any) (map[string]any, error) {
	if value == nil {
		return map[string]any{}, nil
	}
	action, ok := value.(map[string]any)
	if !ok {
		return nil, errors.Errorf("primary_action has unexpected type %T", value)
	}

	for _, key := range []string{"start_time", "end_time"} {
		if ts, ok := action[key].(string); ok && ts != "" {
			if _, err := parseTimestamp(ts); err != nil {
				return nil, errors.Wrapf(err, "primary_action.%s is not a valid timestamp", key)
			}
		}
	}

	return action, nil
}

func normalizeAlternatives(value any) ([]store.TimeSlot, error) {
	if value == nil {
		return []store.TimeSlot{}, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, errors.Errorf("alternatives has unexpected type %T", value)
	}

	slots := make([]store.TimeSlot, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Errorf("alternatives[%d] has unexpected type %T", i, item)
		}

		slot := store.TimeSlot{
			StartTime: stringField(entry, "start_time", ""),
			EndTime:   stringField(entry, "end_time", ""),
			Reason:    stringField(entry, "reason", ""),
		}
		for _, ts := range []string{slot.StartTime, slot.EndTime} {
			if ts == "" {
				continue
			}
			if _, err := parseTimestamp(ts); err != nil {
				return nil, errors.Wrapf(err, "alternatives[%d] has an invalid timestamp", i)
			}
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
