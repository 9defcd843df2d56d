package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/helpers"
)

// UpsertSecret records the mapping from secret_hash to swap ID, and the
// secret itself once revealed - a durable copy of what swapfsm.Swap
// otherwise holds only in memory, so a restarted engine can recognize a
// secret arriving on the relay channel after a crash without waiting on
// the counter-party to resend the hash.
func (s *Store) UpsertSecret(ctx context.Context, swapID string, secretHash, secret []byte) error {
	if len(secretHash) == 0 {
		return swaperrors.New(swaperrors.InternalError, "persistence.UpsertSecret", errEmptySecretHash)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var revealedAt interface{}
	var secretVal interface{}
	if len(secret) > 0 {
		secretVal = helpers.BytesToHex(secret)
		revealedAt = time.Now().UTC().Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (secret_hash, swap_id, secret, revealed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(secret_hash) DO UPDATE SET
			secret      = COALESCE(excluded.secret, secrets.secret),
			revealed_at = COALESCE(excluded.revealed_at, secrets.revealed_at)
	`, helpers.BytesToHex(secretHash), swapID, secretVal, revealedAt)
	if err != nil {
		return swaperrors.New(swaperrors.InternalError, "persistence.UpsertSecret", err)
	}
	return nil
}

var errEmptySecretHash = errors.New("secret_hash must not be empty")
