package chainwatch

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/atomicswap/htlcengine/internal/backend"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// SpentPoint identifies the transaction and input index that spent a
// watched output.
type SpentPoint struct {
	SpendingTxID string
	InputIndex   int
	Input        backend.TxInput
}

// UTXOSpendWatcher polls the output at (TxID, Index) for the address it
// pays to, and reports the spending input once found, or refund_time_reached
// if RefundDeadline passes unspent.
type UTXOSpendWatcher struct {
	Backend        backend.Backend
	Address        string
	TxID           string
	Index          uint32
	RefundDeadline time.Time
	log            *logging.Logger
}

// NewUTXOSpendWatcher constructs a watcher for a single HTLC output.
func NewUTXOSpendWatcher(b backend.Backend, address, txID string, index uint32, refundDeadline time.Time) *UTXOSpendWatcher {
	return &UTXOSpendWatcher{
		Backend:        b,
		Address:        address,
		TxID:           txID,
		Index:          index,
		RefundDeadline: refundDeadline,
		log:            logging.GetDefault().Component("chainwatch-utxospend"),
	}
}

// Run polls until the output is spent, the RefundDeadline passes (reported
// as DeadlineReached), or ctx is canceled.
func (w *UTXOSpendWatcher) Run(ctx context.Context, p Params) Result {
	if p.Deadline.IsZero() || w.RefundDeadline.Before(p.Deadline) {
		p.Deadline = w.RefundDeadline
	}

	return pollLoop(ctx, p, w.log, func(ctx context.Context) (any, bool, error) {
		txs, err := w.Backend.GetAddressTxs(ctx, w.Address, "")
		if err != nil {
			return nil, false, swaperrors.New(swaperrors.RequestError, "UTXOSpendWatcher.Run", err)
		}

		for _, tx := range txs {
			for i, in := range tx.Inputs {
				if in.TxID == w.TxID && in.Vout == w.Index {
					return SpentPoint{SpendingTxID: tx.TxID, InputIndex: i, Input: in}, true, nil
				}
			}
		}
		return nil, false, nil
	})
}

// ExtractSecret pulls a 32-byte claim secret out of a spending input's
// witness stack, verifying it against expectedHash. Operates on an
// already-located SpentPoint rather than re-scanning address history.
func ExtractSecret(point SpentPoint, expectedHash []byte) ([]byte, error) {
	for _, witnessHex := range point.Input.Witness {
		raw, err := hex.DecodeString(witnessHex)
		if err != nil || len(raw) != 32 {
			continue
		}
		if htlcbuild.VerifySecret(raw, expectedHash) {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("chainwatch: no matching secret found in spending witness")
}
