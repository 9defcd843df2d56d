package htlcbuild

import (
	"github.com/atomicswap/htlcengine/internal/amount"
	"github.com/atomicswap/htlcengine/internal/config"
)

// FeeQuote is the (gas_limit, storage_limit, size, fee) tuple every
// account-chain HTLC operation produces before broadcast, so a caller can
// decide whether the swap is still economical before spending the RPC
// round trip to actually send it.
type FeeQuote struct {
	Op           config.OperationKind
	GasLimit     uint64
	StorageLimit uint64
	Size         uint64
	Fee          uint64
}

// QuoteOperation computes the fee quote for op under params. Refund is
// special-cased through amount.RefundFee, which uses the
// storage_limit-in-place-of-size formula documented in DESIGN.md.
func QuoteOperation(params config.FeeParams, op config.OperationKind) FeeQuote {
	q := FeeQuote{
		Op:           op,
		GasLimit:     params.GasLimit[op],
		StorageLimit: params.StorageLimit[op],
		Size:         params.Size[op],
	}
	if op == config.OpRefund {
		q.Fee = amount.RefundFee(params)
	} else {
		q.Fee = amount.Fee(params, op)
	}
	return q
}

// QuoteAll computes a FeeQuote for every operation kind known to params, for
// callers (e.g. a swap acceptance check) that need the full cost schedule
// up front rather than one operation at a time.
func QuoteAll(params config.FeeParams) map[config.OperationKind]FeeQuote {
	quotes := make(map[config.OperationKind]FeeQuote, len(params.GasLimit))
	for op := range params.GasLimit {
		quotes[op] = QuoteOperation(params, op)
	}
	return quotes
}
