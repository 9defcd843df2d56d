package htlc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atomicswap/htlcengine/internal/chainwatch"
)

// TransactionReader adapts Client's historical event queries to
// chainwatch.AccountChainReader, translating the contract's typed
// SwapCreated/SwapClaimed/SwapRefunded events into chainwatch's
// ABI-agnostic AccountCall so internal/chainwatch never needs to import
// go-ethereum's bindings directly.
type TransactionReader struct {
	Client *Client
}

var _ chainwatch.AccountChainReader = (*TransactionReader)(nil)

// GetTransactions scans from block 0 through the chain head for every
// SwapCreated/SwapClaimed/SwapRefunded call made against contractAddress,
// which must match the reader's bound Client.
func (r *TransactionReader) GetTransactions(ctx context.Context, contractAddress string) ([]chainwatch.AccountCall, error) {
	if common.HexToAddress(contractAddress) != r.Client.ContractAddress() {
		return nil, fmt.Errorf("htlc.TransactionReader: contract address %s does not match bound client %s", contractAddress, r.Client.ContractAddress().Hex())
	}

	head, err := r.Client.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("htlc.TransactionReader: block number: %w", err)
	}

	created, err := r.Client.GetSwapCreatedEvents(ctx, 0, head, nil)
	if err != nil {
		return nil, fmt.Errorf("htlc.TransactionReader: SwapCreated: %w", err)
	}

	// SwapRefunded carries no secret_hash of its own; join back to the
	// initiating SwapCreated event by swap ID so refund calls can still
	// be matched by secret_hash the way CounterPartyRefundWatcher expects.
	secretHashBySwapID := make(map[[32]byte][32]byte, len(created))

	var calls []chainwatch.AccountCall
	for _, e := range created {
		secretHashBySwapID[e.SwapID] = e.SecretHash
		calls = append(calls, chainwatch.AccountCall{
			TxHash:     e.TxHash.Hex(),
			SwapID:     common.Hash(e.SwapID).Hex(),
			Selector:   "initiate",
			SecretHash: e.SecretHash[:],
			Receiver:   e.Receiver.Hex(),
			Value:      e.Amount.Uint64(),
			LockTime:   e.Timelock.Int64(),
		})
	}

	claimed, err := r.Client.GetSwapClaimedEvents(ctx, 0, head, nil)
	if err != nil {
		return nil, fmt.Errorf("htlc.TransactionReader: SwapClaimed: %w", err)
	}
	for _, e := range claimed {
		hash := secretHashBySwapID[e.SwapID]
		calls = append(calls, chainwatch.AccountCall{
			TxHash:     e.TxHash.Hex(),
			SwapID:     common.Hash(e.SwapID).Hex(),
			Selector:   "redeem",
			SecretHash: hash[:],
			Secret:     e.Secret[:],
			Receiver:   e.Receiver.Hex(),
		})
	}

	refunded, err := r.Client.GetSwapRefundedEvents(ctx, 0, head, nil)
	if err != nil {
		return nil, fmt.Errorf("htlc.TransactionReader: SwapRefunded: %w", err)
	}
	for _, e := range refunded {
		hash := secretHashBySwapID[e.SwapID]
		calls = append(calls, chainwatch.AccountCall{
			TxHash:     e.TxHash.Hex(),
			SwapID:     common.Hash(e.SwapID).Hex(),
			Selector:   "refund",
			SecretHash: hash[:],
			Receiver:   e.Sender.Hex(),
		})
	}

	return calls, nil
}
