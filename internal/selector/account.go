// Package selector picks which inputs (UTXO side) or which sending
// addresses (account side) fund a swap payment, under configurable
// address-usage and fee-usage policies. The account-side algorithm
// generalizes the UTXO-side greedy selection idiom to a set of candidate
// sending addresses instead of a single derived one.
package selector

import (
	"fmt"
	"sort"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

// AddressUsagePolicy controls the order candidate addresses are tried in.
type AddressUsagePolicy string

const (
	MinBalanceFirst AddressUsagePolicy = "min_balance_first"
	MaxBalanceFirst AddressUsagePolicy = "max_balance_first"
	OnlyOne         AddressUsagePolicy = "only_one"
)

// FeeUsagePolicy controls how the fee budget is attributed across the
// transactions a selection may span.
type FeeUsagePolicy string

const (
	EstimatedFee          FeeUsagePolicy = "estimated_fee"
	FeeForAllTransactions FeeUsagePolicy = "fee_for_all_transactions"
	FeePerTransaction     FeeUsagePolicy = "fee_per_transaction"
)

// Address is a candidate sending address on an account-model chain.
type Address struct {
	Address           string
	AvailableBalance  uint64
}

// FeeFunc returns the fee to charge a transaction that is the txIndex-th
// (0-based) transaction of a txCount-transaction selection. The EstimatedFee
// policy ignores txCount/txIndex and always returns the builder's per-op
// fee; FeeForAllTransactions divides a fixed total evenly; FeePerTransaction
// charges the same fixed fee to every transaction.
type FeeFunc func(txCount, txIndex int) uint64

// EstimatedFeeFunc returns a FeeFunc for the EstimatedFee policy.
func EstimatedFeeFunc(perOpFee uint64) FeeFunc {
	return func(txCount, txIndex int) uint64 { return perOpFee }
}

// FeeForAllTransactionsFunc returns a FeeFunc for the FeeForAllTransactions
// policy: totalFee split evenly (remainder on the first transaction).
func FeeForAllTransactionsFunc(totalFee uint64) FeeFunc {
	return func(txCount, txIndex int) uint64 {
		if txCount <= 0 {
			return totalFee
		}
		share := totalFee / uint64(txCount)
		if txIndex == 0 {
			share += totalFee % uint64(txCount)
		}
		return share
	}
}

// FeePerTransactionFunc returns a FeeFunc for the FeePerTransaction policy.
func FeePerTransactionFunc(perTxFee uint64) FeeFunc {
	return func(txCount, txIndex int) uint64 { return perTxFee }
}

// Allocation is one (address, amount, fee) leg of a multi-transaction
// account-side payment selection.
type Allocation struct {
	Address string
	Amount  uint64
	Fee     uint64
}

// ErrInsufficientFunds is returned when no selection across any transaction
// count can satisfy the requested amount.
var ErrInsufficientFunds = fmt.Errorf("selector: insufficient funds across all candidate addresses")

// SelectAccountAddresses implements the account-model funding algorithm:
// try funding the payment with 1 transaction, then 2, up to len(addresses),
// walking candidates in the policy's order and greedily using as much of
// each address's balance (net of its fee) as needed. gasLimit is the
// operation's required gas_limit; once a funds-sufficient selection is
// found, its per-transaction fee share (total fee / selected_count) must
// cover gasLimit or the selection is rejected as InsufficientGas rather
// than accepted with a transaction that would be rejected on-chain for
// underpriced gas. Pass gasLimit 0 to skip this check.
func SelectAccountAddresses(addresses []Address, amount uint64, usage AddressUsagePolicy, fee FeeFunc, gasLimit uint64) ([]Allocation, error) {
	if amount == 0 {
		return nil, fmt.Errorf("selector: amount must be positive")
	}
	if len(addresses) == 0 {
		return nil, ErrInsufficientFunds
	}

	ordered := orderAddresses(addresses, usage)
	maxTx := len(ordered)
	if usage == OnlyOne {
		maxTx = 1
	}

	for txCount := 1; txCount <= maxTx; txCount++ {
		allocs, ok := trySelect(ordered, amount, txCount, fee)
		if !ok {
			continue
		}
		if gasLimit > 0 {
			var totalFee uint64
			for _, a := range allocs {
				totalFee += a.Fee
			}
			if totalFee/uint64(len(allocs)) < gasLimit {
				return nil, swaperrors.New(swaperrors.InsufficientGas, "SelectAccountAddresses",
					fmt.Errorf("fee %d / selected_count %d < gas_limit %d", totalFee, len(allocs), gasLimit))
			}
		}
		return allocs, nil
	}
	return nil, ErrInsufficientFunds
}

func trySelect(ordered []Address, amount uint64, txCount int, fee FeeFunc) ([]Allocation, bool) {
	required := amount
	var allocs []Allocation

	for _, addr := range ordered {
		if required == 0 {
			break
		}
		txFee := fee(txCount, len(allocs))
		if addr.AvailableBalance <= txFee {
			continue
		}
		spendable := addr.AvailableBalance - txFee
		use := spendable
		if use > required {
			use = required
		}
		allocs = append(allocs, Allocation{Address: addr.Address, Amount: use, Fee: txFee})
		required -= use

		if len(allocs) == txCount {
			break
		}
	}

	return allocs, required == 0
}

func orderAddresses(addresses []Address, usage AddressUsagePolicy) []Address {
	ordered := make([]Address, len(addresses))
	copy(ordered, addresses)

	switch usage {
	case MinBalanceFirst:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AvailableBalance < ordered[j].AvailableBalance
		})
	case MaxBalanceFirst, OnlyOne:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AvailableBalance > ordered[j].AvailableBalance
		})
	}
	return ordered
}
