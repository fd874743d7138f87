package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sera-ai/sera/internal/profile"
	"github.com/sera-ai/sera/store"
	"github.com/sera-ai/sera/store/db"
)

// NewTestingStore creates a store backed by a fresh SQLite database in a
// per-test temporary directory, with the schema applied.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	dir := t.TempDir()
	testProfile := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "sera_test.db"),
	}

	driver, err := db.NewDBDriver(testProfile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	t.Cleanup(func() {
		_ = driver.Close()
	})

	ts := store.New(driver, testProfile)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return ts
}
