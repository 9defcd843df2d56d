package persistence

import (
	"database/sql"
	"fmt"
)

// migrations is a version-ordered ladder applied via PRAGMA user_version,
// each entry taking the schema from index i to i+1. Tracking the applied
// version explicitly means a migration runs exactly once and can add or
// rename columns safely instead of being restricted to additive,
// error-tolerant statements re-run on every startup.
var migrations = []string{
	// 0 -> 1: swaps and secrets.
	`
	CREATE TABLE IF NOT EXISTS swaps (
		id                    TEXT PRIMARY KEY,
		symbol                TEXT NOT NULL,
		side                  TEXT NOT NULL,
		price                 REAL NOT NULL,
		qty                   INTEGER NOT NULL,
		sold_currency         TEXT NOT NULL,
		purchased_currency    TEXT NOT NULL,
		role                  TEXT NOT NULL,
		secret                TEXT,
		secret_hash           TEXT,
		timestamp             INTEGER NOT NULL,
		party_address         TEXT,
		to_address            TEXT,
		payment_txid          TEXT,
		party_payment_txid    TEXT,
		refund_txid           TEXT,
		redeem_txid           TEXT,
		redeem_script         TEXT,
		party_redeem_script   TEXT,
		state_flags           INTEGER NOT NULL DEFAULT 0,
		created_at            INTEGER NOT NULL,
		updated_at            INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_swaps_state_flags ON swaps(state_flags);

	CREATE TABLE IF NOT EXISTS secrets (
		secret_hash TEXT PRIMARY KEY,
		swap_id     TEXT NOT NULL,
		secret      TEXT,
		revealed_at INTEGER,
		FOREIGN KEY (swap_id) REFERENCES swaps(id)
	);
	`,
	// 1 -> 2: wallet address and transaction bookkeeping for coin
	// selection and history queries.
	`
	CREATE TABLE IF NOT EXISTS wallet_addresses (
		address     TEXT NOT NULL,
		currency    TEXT NOT NULL,
		derivation  TEXT NOT NULL DEFAULT '',
		spent       INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (currency, address)
	);
	CREATE INDEX IF NOT EXISTS idx_wallet_addresses_unspent
		ON wallet_addresses(currency, spent);

	CREATE TABLE IF NOT EXISTS transactions (
		txid        TEXT NOT NULL,
		currency    TEXT NOT NULL,
		address     TEXT NOT NULL,
		amount      INTEGER NOT NULL,
		direction   TEXT NOT NULL,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (currency, txid, address)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_currency ON transactions(currency);
	`,
}

func schemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// migrate brings db from its current PRAGMA user_version up to
// len(migrations), applying each pending step in its own transaction and
// advancing the version only on success.
func migrate(db *sql.DB) error {
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("advance schema version to %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
