package txfactory

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/atomicswap/htlcengine/internal/htlcbuild"
	"github.com/atomicswap/htlcengine/internal/nonce"
	"github.com/atomicswap/htlcengine/internal/wallet"
)

// AccountTxOpts builds a *bind.TransactOpts for an account-chain HTLC call,
// wiring together the process-wide nonce manager (internal/nonce), the fee
// quote for the operation (internal/htlcbuild), and an external
// wallet.AccountSigner instead of a raw private key - go-ethereum's
// bind.TransactOpts.Signer accepts any bind.SignerFn, so custody stays
// pluggable without holding an *ecdsa.PrivateKey directly.
func AccountTxOpts(
	ctx context.Context,
	nonces *nonce.Manager,
	signer wallet.AccountSigner,
	chainID *big.Int,
	quote htlcbuild.FeeQuote,
	value *big.Int,
) (*bind.TransactOpts, error) {
	addr := common.HexToAddress(signer.Address())

	n, err := nonces.GetNonce(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("txfactory: fetch nonce: %w", err)
	}

	opts := &bind.TransactOpts{
		From:     addr,
		Nonce:    new(big.Int).SetUint64(n),
		GasLimit: quote.GasLimit,
		Value:    value,
		Context:  ctx,
		Signer: func(a common.Address, tx *types.Transaction) (*types.Transaction, error) {
			s := types.LatestSignerForChainID(chainID)
			hash := s.Hash(tx)
			sig, err := signer.SignHash(hash[:])
			if err != nil {
				return nil, fmt.Errorf("txfactory: sign tx: %w", err)
			}
			return tx.WithSignature(s, sig)
		},
	}
	return opts, nil
}

// AccountAddressFromSigner derives the checksummed hex address for a
// wallet.AccountSigner, matching go-ethereum's crypto.PubkeyToAddress
// convention used throughout internal/contracts/htlc.
func AccountAddressFromSigner(signer wallet.AccountSigner) common.Address {
	return common.HexToAddress(signer.Address())
}
