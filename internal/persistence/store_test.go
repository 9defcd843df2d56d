package persistence

import (
	"testing"

	"github.com/atomicswap/htlcengine/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: ""}, config.DefaultSwapConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrationsExactlyOnce(t *testing.T) {
	s := newTestStore(t)

	v, err := schemaVersion(s.db)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("schema version = %d, want %d", v, len(migrations))
	}

	// Re-running migrate on an already-current database must be a no-op,
	// not re-apply CREATE TABLE statements that would error without
	// IF NOT EXISTS.
	if err := migrate(s.db); err != nil {
		t.Fatalf("re-running migrate: %v", err)
	}
}
