package persistence

import (
	"context"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

// Transaction is one recorded movement of funds on a currency, collapsed
// to what a selector needs for history queries rather than full UTXO
// tracking (internal/selector already owns live UTXO state via
// internal/backend).
type Transaction struct {
	TxID      string
	Currency  string
	Address   string
	Amount    uint64
	Direction string // "in" or "out"
	CreatedAt time.Time
}

// RecordTransaction appends a transaction observed on currency to the
// history GetTransactionsByCurrency serves.
func (s *Store) RecordTransaction(ctx context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (txid, currency, address, amount, direction, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(currency, txid, address) DO NOTHING
	`, tx.TxID, tx.Currency, tx.Address, tx.Amount, tx.Direction, tx.CreatedAt.UTC().Unix())
	if err != nil {
		return swaperrors.New(swaperrors.InternalError, "persistence.RecordTransaction", err)
	}
	return nil
}

// GetTransactionsByCurrency returns every recorded transaction for
// currency, most recent first.
func (s *Store) GetTransactionsByCurrency(ctx context.Context, currency string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT txid, currency, address, amount, direction, created_at
		FROM transactions WHERE currency = ?
		ORDER BY created_at DESC
	`, currency)
	if err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetTransactionsByCurrency", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		var createdAt int64
		if err := rows.Scan(&tx.TxID, &tx.Currency, &tx.Address, &tx.Amount, &tx.Direction, &createdAt); err != nil {
			return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetTransactionsByCurrency", err)
		}
		tx.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetTransactionsByCurrency", err)
	}
	return out, nil
}

// WalletAddress is a derived address the engine tracks funding/change
// usage for.
type WalletAddress struct {
	Address    string
	Currency   string
	Derivation string
	Spent      bool
	CreatedAt  time.Time
}

// RecordWalletAddress registers addr as belonging to the engine's wallet.
func (s *Store) RecordWalletAddress(ctx context.Context, addr WalletAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_addresses (address, currency, derivation, spent, created_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(currency, address) DO NOTHING
	`, addr.Address, addr.Currency, addr.Derivation, addr.CreatedAt.UTC().Unix())
	if err != nil {
		return swaperrors.New(swaperrors.InternalError, "persistence.RecordWalletAddress", err)
	}
	return nil
}

// MarkAddressSpent flags addr as spent so it drops out of
// GetUnspentAddresses - a UTXO chain never reuses a spent address for a
// fresh payment.
func (s *Store) MarkAddressSpent(ctx context.Context, currency, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE wallet_addresses SET spent = 1 WHERE currency = ? AND address = ?
	`, currency, address)
	if err != nil {
		return swaperrors.New(swaperrors.InternalError, "persistence.MarkAddressSpent", err)
	}
	return nil
}

// GetUnspentAddresses returns every address recorded for currency that
// has not been marked spent, the pool a selector draws fresh payment and
// change addresses from.
func (s *Store) GetUnspentAddresses(ctx context.Context, currency string) ([]WalletAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, currency, derivation, spent, created_at
		FROM wallet_addresses WHERE currency = ? AND spent = 0
		ORDER BY created_at ASC
	`, currency)
	if err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetUnspentAddresses", err)
	}
	defer rows.Close()

	var out []WalletAddress
	for rows.Next() {
		var a WalletAddress
		var spent int
		var createdAt int64
		if err := rows.Scan(&a.Address, &a.Currency, &a.Derivation, &spent, &createdAt); err != nil {
			return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetUnspentAddresses", err)
		}
		a.Spent = spent != 0
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetUnspentAddresses", err)
	}
	return out, nil
}
