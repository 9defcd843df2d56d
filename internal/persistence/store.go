// Package persistence is the SQLite-backed swap and secret store: durable
// state a restarted engine reads back to resume in-flight swaps, backed
// by a single WAL-mode database, a single-writer connection pool, and
// idempotent upserts.
package persistence

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atomicswap/htlcengine/internal/config"
	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// Config configures where the database file lives.
type Config struct {
	// Path is the SQLite database file path. Empty means in-memory,
	// useful for tests.
	Path string
}

// Store is the durable swap/secret/address store. All access goes through
// a single *sql.DB with SetMaxOpenConns(1), a single-writer pattern for a
// WAL-mode SQLite file shared by concurrent goroutines.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	cfg config.SwapConfig
	log *logging.Logger
}

// Open opens (creating if necessary) the database at cfg.Path, applies
// pending migrations, and returns a ready Store. swapCfg is retained so
// swaps read back from disk can be rehydrated with their timing
// configuration via swapfsm.RestoreSwap.
func Open(cfg Config, swapCfg config.SwapConfig) (*Store, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	} else {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", dsn)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.Open", err)
	}

	// A single writer avoids SQLITE_BUSY under WAL from concurrent
	// goroutines.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, cfg: swapCfg, log: logging.New(logging.DefaultConfig())}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.Open", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers that need a transaction
// spanning more than one Store method (kept narrow deliberately - most
// callers should use the typed methods below).
func (s *Store) DB() *sql.DB {
	return s.db
}
