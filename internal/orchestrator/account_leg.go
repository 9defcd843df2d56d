package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/atomicswap/htlcengine/internal/chainwatch"
	"github.com/atomicswap/htlcengine/internal/config"
	"github.com/atomicswap/htlcengine/internal/contracts/htlc"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
	"github.com/atomicswap/htlcengine/internal/nonce"
	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/internal/txfactory"
	"github.com/atomicswap/htlcengine/internal/wallet"
	"github.com/atomicswap/htlcengine/pkg/helpers"
)

func decodeSwapID(hexID string) ([32]byte, error) {
	var out [32]byte
	b, err := helpers.HexToBytes(hexID)
	if err != nil {
		return out, fmt.Errorf("orchestrator: decode swap id: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("orchestrator: swap id must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func pollSwapActive(ctx context.Context, client *htlc.Client, swapID [32]byte) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			swap, err := client.GetSwap(ctx, swapID)
			if err != nil {
				continue
			}
			if swap.IsActive() {
				return nil
			}
		}
	}
}

// AccountOutgoingLeg funds an account-model HTLC contract call, standing in
// for UTXOOutgoingLeg on the account side of the swap.
type AccountOutgoingLeg struct {
	Client    *htlc.Client
	Nonces    *nonce.Manager
	Signer    wallet.AccountSigner
	FeeParams config.FeeParams
	Reader    chainwatch.AccountChainReader

	Receiver   common.Address
	Token      common.Address // zero value means native token
	Amount     *big.Int
	SecretHash [32]byte
	Timelock   *big.Int
}

var _ OutgoingLeg = (*AccountOutgoingLeg)(nil)

// Fund computes the deterministic swap ID and submits the create-swap call.
func (l *AccountOutgoingLeg) Fund(ctx context.Context) (FundingRef, error) {
	quote := htlcbuild.QuoteOperation(l.FeeParams, config.OpInitiate)
	value := big.NewInt(0)
	if l.Token == (common.Address{}) {
		value = l.Amount
	}

	auth, err := txfactory.AccountTxOpts(ctx, l.Nonces, l.Signer, l.Client.ChainID(), quote, value)
	if err != nil {
		return FundingRef{}, err
	}

	sender := common.HexToAddress(l.Signer.Address())
	swapID, err := l.Client.ComputeSwapID(ctx, sender, l.Receiver, l.Token, l.Amount, l.SecretHash, l.Timelock, auth.Nonce)
	if err != nil {
		return FundingRef{}, swaperrors.New(swaperrors.TransactionCreationError, "AccountOutgoingLeg.Fund", err)
	}

	if l.Token == (common.Address{}) {
		_, err = l.Client.CreateSwapNativeWithAuth(auth, swapID, l.Receiver, l.SecretHash, l.Timelock)
	} else {
		_, err = l.Client.CreateSwapERC20WithAuth(auth, swapID, l.Receiver, l.Token, l.Amount, l.SecretHash, l.Timelock)
	}
	if err != nil {
		return FundingRef{}, swaperrors.New(swaperrors.TransactionBroadcastError, "AccountOutgoingLeg.Fund", err)
	}

	return FundingRef{TxID: helpers.BytesToHex(swapID[:]), Amount: l.Amount.Uint64()}, nil
}

// WaitTxConfirmed polls the contract until the swap identified by txID (the
// hex swap ID) is reported active.
func (l *AccountOutgoingLeg) WaitTxConfirmed(ctx context.Context, txID string) error {
	swapID, err := decodeSwapID(txID)
	if err != nil {
		return err
	}
	return pollSwapActive(ctx, l.Client, swapID)
}

// Refund submits the refund call for ref once the on-chain timelock has passed.
func (l *AccountOutgoingLeg) Refund(ctx context.Context, ref FundingRef) (string, error) {
	swapID, err := decodeSwapID(ref.TxID)
	if err != nil {
		return "", err
	}
	quote := htlcbuild.QuoteOperation(l.FeeParams, config.OpRefund)
	auth, err := txfactory.AccountTxOpts(ctx, l.Nonces, l.Signer, l.Client.ChainID(), quote, big.NewInt(0))
	if err != nil {
		return "", err
	}
	tx, err := l.Client.RefundWithAuth(auth, swapID)
	if err != nil {
		return "", swaperrors.New(swaperrors.TransactionBroadcastError, "AccountOutgoingLeg.Refund", err)
	}
	return tx.Hash().Hex(), nil
}

// WaitForClaim blocks until the counter-party's claim call reveals the
// secret for ref, or deadline passes.
func (l *AccountOutgoingLeg) WaitForClaim(ctx context.Context, ref FundingRef, secretHash []byte, deadline time.Time) ([]byte, error) {
	swapID, err := decodeSwapID(ref.TxID)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	secret, err := l.Client.WaitForSecret(waitCtx, swapID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: wait for claim: %w", err)
	}
	return secret[:], nil
}

// AccountIncomingLeg observes the counter-party's account-chain HTLC call
// and claims it by revealing the secret.
type AccountIncomingLeg struct {
	Client    *htlc.Client
	Nonces    *nonce.Manager
	Signer    wallet.AccountSigner
	FeeParams config.FeeParams
	Reader    chainwatch.AccountChainReader
	Watcher   config.WatcherConfig

	ContractAddress string
	LocalAddress    string
	MinValue        uint64
}

var _ IncomingLeg = (*AccountIncomingLeg)(nil)

// WaitTxConfirmed polls the contract until the swap identified by txID (the
// hex swap ID) is reported active.
func (l *AccountIncomingLeg) WaitTxConfirmed(ctx context.Context, txID string) error {
	swapID, err := decodeSwapID(txID)
	if err != nil {
		return err
	}
	return pollSwapActive(ctx, l.Client, swapID)
}

// WaitForFunding watches the shared HTLC contract for the counter-party's
// initiate call matching secretHash and paying this leg's LocalAddress.
func (l *AccountIncomingLeg) WaitForFunding(ctx context.Context, secretHash []byte, deadline time.Time) (FundingRef, error) {
	w := chainwatch.NewCounterPartyPaymentWatcher(l.Reader, l.ContractAddress, secretHash, l.LocalAddress, l.MinValue, time.Now(), time.Until(deadline))
	res := w.Run(ctx, chainwatch.Params{
		Interval:    l.Watcher.CounterPartyPollInterval,
		MaxAttempts: l.Watcher.MaxAttempts,
		Deadline:    deadline,
	})
	if res.Outcome != chainwatch.Success {
		return FundingRef{}, outcomeToErr(res)
	}
	call, ok := res.Data.(chainwatch.AccountCall)
	if !ok {
		return FundingRef{}, fmt.Errorf("orchestrator: unexpected watcher result type %T", res.Data)
	}
	return FundingRef{TxID: call.SwapID, Amount: call.Value}, nil
}

// Claim submits the claim call revealing secret for ref.
func (l *AccountIncomingLeg) Claim(ctx context.Context, ref FundingRef, secret []byte) (string, error) {
	swapID, err := decodeSwapID(ref.TxID)
	if err != nil {
		return "", err
	}
	var secretArr [32]byte
	copy(secretArr[:], secret)

	quote := htlcbuild.QuoteOperation(l.FeeParams, config.OpRedeem)
	auth, err := txfactory.AccountTxOpts(ctx, l.Nonces, l.Signer, l.Client.ChainID(), quote, big.NewInt(0))
	if err != nil {
		return "", err
	}
	tx, err := l.Client.ClaimWithAuth(auth, swapID, secretArr)
	if err != nil {
		return "", swaperrors.New(swaperrors.TransactionBroadcastError, "AccountIncomingLeg.Claim", err)
	}
	return tx.Hash().Hex(), nil
}
