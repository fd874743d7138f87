package store

import (
	"context"

	"github.com/sera-ai/sera/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// UpsertCard inserts or replaces a card keyed by its UID. Replaying the same
// card twice yields the same stored state.
func (s *Store) UpsertCard(ctx context.Context, upsert *SuggestionCard) (*SuggestionCard, error) {
	return s.driver.UpsertCard(ctx, upsert)
}

// ListCards returns cards matching the find condition, most recent first.
func (s *Store) ListCards(ctx context.Context, find *FindCard) ([]*SuggestionCard, error) {
	return s.driver.ListCards(ctx, find)
}

// UpdateCardStatus unconditionally sets the status of a card. Updating a
// nonexistent card is a no-op success, not an error.
func (s *Store) UpdateCardStatus(ctx context.Context, uid string, status CardStatus) error {
	return s.driver.UpdateCardStatus(ctx, uid, status)
}

func (s *Store) UpsertSession(ctx context.Context, upsert *Session) (*Session, error) {
	return s.driver.UpsertSession(ctx, upsert)
}

func (s *Store) ListSessions(ctx context.Context, find *FindSession) ([]*Session, error) {
	return s.driver.ListSessions(ctx, find)
}

func (s *Store) UpsertUserPreference(ctx context.Context, upsert *UserPreference) (*UserPreference, error) {
	return s.driver.UpsertUserPreference(ctx, upsert)
}

// GetUserPreference returns the stored preference document for a user, or nil
// when none has been saved yet.
func (s *Store) GetUserPreference(ctx context.Context, find *FindUserPreference) (*UserPreference, error) {
	return s.driver.GetUserPreference(ctx, find)
}
