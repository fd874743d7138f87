package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SuggestionCard model related methods.
	UpsertCard(ctx context.Context, upsert *SuggestionCard) (*SuggestionCard, error)
	ListCards(ctx context.Context, find *FindCard) ([]*SuggestionCard, error)
	UpdateCardStatus(ctx context.Context, uid string, status CardStatus) error

	// Session model related methods.
	UpsertSession(ctx context.Context, upsert *Session) (*Session, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*Session, error)

	// UserPreference model related methods.
	UpsertUserPreference(ctx context.Context, upsert *UserPreference) (*UserPreference, error)
	GetUserPreference(ctx context.Context, find *FindUserPreference) (*UserPreference, error)
}
