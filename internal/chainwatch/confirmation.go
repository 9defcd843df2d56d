package chainwatch

import (
	"context"

	"github.com/atomicswap/htlcengine/internal/backend"
	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// ConfirmationWatcher polls get_transaction(tx_id) until it reaches at
// least one confirmation.
type ConfirmationWatcher struct {
	Backend backend.Backend
	TxID    string
	log     *logging.Logger
}

// NewConfirmationWatcher constructs a watcher for a single transaction.
func NewConfirmationWatcher(b backend.Backend, txID string) *ConfirmationWatcher {
	return &ConfirmationWatcher{Backend: b, TxID: txID, log: logging.GetDefault().Component("chainwatch-confirmation")}
}

// Run polls until tx.Confirmations >= 1, the deadline passes, or ctx is
// canceled. Transient errors (RequestError, including NotFound - the
// transaction may not have propagated to this backend yet) do not
// terminate the watch; only non-transient errors do.
func (w *ConfirmationWatcher) Run(ctx context.Context, p Params) Result {
	return pollLoop(ctx, p, w.log, func(ctx context.Context) (any, bool, error) {
		tx, err := w.Backend.GetTransaction(ctx, w.TxID)
		if err != nil {
			return nil, false, swaperrors.New(swaperrors.RequestError, "ConfirmationWatcher.Run", err)
		}
		if tx == nil {
			// NotFound is transient per backend.Backend's contract.
			return nil, false, swaperrors.New(swaperrors.RequestError, "ConfirmationWatcher.Run", nil)
		}
		if tx.Confirmations >= 1 {
			return tx, true, nil
		}
		return nil, false, nil
	})
}
