package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/internal/swapfsm"
	"github.com/atomicswap/htlcengine/pkg/helpers"
)

// ErrSwapNotFound is returned by GetSwap when no row matches the given ID.
var ErrSwapNotFound = errors.New("persistence: swap not found")

// UpsertSwap persists s, inserting a new row or updating every mutable
// column of an existing one keyed by ID via INSERT ... ON CONFLICT DO
// UPDATE.
func (s *Store) UpsertSwap(ctx context.Context, swap *swapfsm.Swap) error {
	rec := swap.ToRecord()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swaps (
			id, symbol, side, price, qty, sold_currency, purchased_currency,
			role, secret, secret_hash, timestamp, party_address, to_address,
			payment_txid, party_payment_txid, refund_txid, redeem_txid,
			redeem_script, party_redeem_script, state_flags,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			secret              = excluded.secret,
			secret_hash         = excluded.secret_hash,
			party_address       = excluded.party_address,
			to_address          = excluded.to_address,
			payment_txid        = excluded.payment_txid,
			party_payment_txid  = excluded.party_payment_txid,
			refund_txid         = excluded.refund_txid,
			redeem_txid         = excluded.redeem_txid,
			redeem_script       = excluded.redeem_script,
			party_redeem_script = excluded.party_redeem_script,
			state_flags         = excluded.state_flags,
			updated_at          = excluded.updated_at
	`,
		rec.ID, rec.Symbol, string(rec.Side), rec.Price, rec.Qty,
		rec.SoldCurrency, rec.PurchasedCurrency, string(rec.Role),
		nullableHex(rec.Secret), nullableHex(rec.SecretHash),
		rec.Timestamp.UTC().Unix(), nullableStr(rec.PartyAddress), nullableStr(rec.ToAddress),
		nullableStr(rec.PaymentTxID), nullableStr(rec.PartyPaymentTxID),
		nullableStr(rec.RefundTxID), nullableStr(rec.RedeemTxID),
		nullableHex(rec.RedeemScript), nullableHex(rec.PartyRedeemScript),
		uint32(rec.StateFlags), now, now,
	)
	if err != nil {
		return swaperrors.New(swaperrors.InternalError, "persistence.UpsertSwap", err)
	}
	return nil
}

// GetSwap loads a swap by ID and rehydrates it with cfg's timing
// configuration.
func (s *Store) GetSwap(ctx context.Context, id string) (*swapfsm.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, swapSelectColumns+` FROM swaps WHERE id = ?`, id)
	rec, err := scanSwapRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrSwapNotFound
	}
	if err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.GetSwap", err)
	}
	return swapfsm.RestoreSwap(rec, s.cfg), nil
}

// ListPendingSwaps returns every swap that has not yet reached a terminal
// outcome (RedeemConfirmed or RefundConfirmed), the set an engine must
// re-register on startup recovery.
func (s *Store) ListPendingSwaps(ctx context.Context) ([]*swapfsm.Swap, error) {
	terminal := uint32(swapfsm.RedeemConfirmed | swapfsm.RefundConfirmed)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, swapSelectColumns+` FROM swaps WHERE state_flags & ? = 0`, terminal)
	if err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.ListPendingSwaps", err)
	}
	defer rows.Close()

	var out []*swapfsm.Swap
	for rows.Next() {
		rec, err := scanSwapRecord(rows)
		if err != nil {
			return nil, swaperrors.New(swaperrors.InternalError, "persistence.ListPendingSwaps", err)
		}
		out = append(out, swapfsm.RestoreSwap(rec, s.cfg))
	}
	if err := rows.Err(); err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "persistence.ListPendingSwaps", err)
	}
	return out, nil
}

const swapSelectColumns = `
	SELECT id, symbol, side, price, qty, sold_currency, purchased_currency,
		role, secret, secret_hash, timestamp, party_address, to_address,
		payment_txid, party_payment_txid, refund_txid, redeem_txid,
		redeem_script, party_redeem_script, state_flags`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting
// scanSwapRecord serve GetSwap's single-row and ListPendingSwaps'
// multi-row callers alike from one helper, since database/sql already
// gives both types a compatible Scan method.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSwapRecord(row rowScanner) (swapfsm.Record, error) {
	var rec swapfsm.Record
	var side, role string
	var secretHex, secretHashHex, partyAddress, toAddress sql.NullString
	var paymentTxID, partyPaymentTxID, refundTxID, redeemTxID sql.NullString
	var redeemScriptHex, partyRedeemScriptHex sql.NullString
	var ts int64
	var flags uint32

	err := row.Scan(
		&rec.ID, &rec.Symbol, &side, &rec.Price, &rec.Qty,
		&rec.SoldCurrency, &rec.PurchasedCurrency, &role,
		&secretHex, &secretHashHex, &ts, &partyAddress, &toAddress,
		&paymentTxID, &partyPaymentTxID, &refundTxID, &redeemTxID,
		&redeemScriptHex, &partyRedeemScriptHex, &flags,
	)
	if err != nil {
		return swapfsm.Record{}, err
	}

	rec.Side = swapfsm.Side(side)
	rec.Role = swapfsm.Role(role)
	rec.Timestamp = time.Unix(ts, 0).UTC()
	rec.PartyAddress = partyAddress.String
	rec.ToAddress = toAddress.String
	rec.PaymentTxID = paymentTxID.String
	rec.PartyPaymentTxID = partyPaymentTxID.String
	rec.RefundTxID = refundTxID.String
	rec.RedeemTxID = redeemTxID.String
	rec.StateFlags = swapfsm.Flag(flags)

	if secretHex.Valid {
		rec.Secret, _ = helpers.HexToBytes(secretHex.String)
	}
	if secretHashHex.Valid {
		rec.SecretHash, _ = helpers.HexToBytes(secretHashHex.String)
	}
	if redeemScriptHex.Valid {
		rec.RedeemScript, _ = helpers.HexToBytes(redeemScriptHex.String)
	}
	if partyRedeemScriptHex.Valid {
		rec.PartyRedeemScript, _ = helpers.HexToBytes(partyRedeemScriptHex.String)
	}

	return rec, nil
}

func nullableHex(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return helpers.BytesToHex(b)
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
