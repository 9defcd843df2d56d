package txfactory

import (
	"context"
	"math/big"
	"testing"

	"github.com/atomicswap/htlcengine/internal/config"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
	"github.com/atomicswap/htlcengine/internal/nonce"
)

type stubAccountSigner struct {
	address string
}

func (s stubAccountSigner) Address() string { return s.address }

func (s stubAccountSigner) SignHash(hash []byte) ([]byte, error) {
	sig := make([]byte, 65)
	copy(sig, hash)
	return sig, nil
}

type stubChainClient struct{ count uint64 }

func (c stubChainClient) TransactionCount(ctx context.Context, address string) (uint64, error) {
	return c.count, nil
}

func TestAccountTxOptsUsesQuotedGasLimitAndFreshNonce(t *testing.T) {
	nonces := nonce.New(stubChainClient{count: 7})
	signer := stubAccountSigner{address: "0x0000000000000000000000000000000000dEaD"}
	params := config.DefaultEthereumFeeParams()
	quote := htlcbuild.QuoteOperation(params, config.OpInitiate)

	opts, err := AccountTxOpts(context.Background(), nonces, signer, big.NewInt(1), quote, big.NewInt(0))
	if err != nil {
		t.Fatalf("AccountTxOpts: %v", err)
	}
	if opts.GasLimit != quote.GasLimit {
		t.Errorf("GasLimit = %d, want %d", opts.GasLimit, quote.GasLimit)
	}
	if opts.Nonce.Uint64() != 7 {
		t.Errorf("Nonce = %d, want 7", opts.Nonce.Uint64())
	}
}
