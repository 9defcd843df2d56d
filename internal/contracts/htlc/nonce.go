package htlc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atomicswap/htlcengine/internal/nonce"
)

// NonceSource adapts Client to nonce.ChainClient, translating the
// account-model string address nonce.Manager works with into the
// common.Address ethclient.Client.PendingNonceAt expects, and reading the
// pending (not just confirmed) transaction count so a manager backed by
// this source can hand out a nonce immediately after a prior send.
type NonceSource struct {
	Client *Client
}

var _ nonce.ChainClient = (*NonceSource)(nil)

// TransactionCount returns the pending transaction count for address.
func (n *NonceSource) TransactionCount(ctx context.Context, address string) (uint64, error) {
	count, err := n.Client.client.PendingNonceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("htlc.NonceSource: pending nonce for %s: %w", address, err)
	}
	return count, nil
}
