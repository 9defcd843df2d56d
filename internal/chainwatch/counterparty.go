package chainwatch

import (
	"context"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/helpers"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// AccountCall is one decoded call observed on an account-model chain's HTLC
// contract - the account-model analogue of backend.TxInput, deliberately
// left ABI-agnostic so this package doesn't need to import go-ethereum's
// abi bindings; internal/contracts/htlc supplies the concrete decoder.
type AccountCall struct {
	TxHash     string
	SwapID     string // hex-encoded on-chain swap identifier, needed to build the follow-up claim/refund call
	Selector   string // e.g. "refund", "initiate", "redeem"
	SecretHash []byte
	Secret     []byte // populated on "redeem" - the preimage argument revealed on-chain
	Receiver   string
	Value      uint64
	LockTime   int64
}

// AccountChainReader fetches the calls made against an HTLC contract
// address, grounded on internal/contracts/htlc/client.go's
// GetSwapCreatedEvents/GetSwapClaimedEvents pattern of scanning
// contract-address transaction/event history.
type AccountChainReader interface {
	GetTransactions(ctx context.Context, contractAddress string) ([]AccountCall, error)
}

// CounterPartyRefundWatcher watches for a call whose input encodes
// refund(secret_hash) on the HTLC contract.
type CounterPartyRefundWatcher struct {
	Reader          AccountChainReader
	ContractAddress string
	SecretHash      []byte
	log             *logging.Logger
}

// NewCounterPartyRefundWatcher constructs a refund watcher for one HTLC.
func NewCounterPartyRefundWatcher(reader AccountChainReader, contractAddress string, secretHash []byte) *CounterPartyRefundWatcher {
	return &CounterPartyRefundWatcher{
		Reader:          reader,
		ContractAddress: contractAddress,
		SecretHash:      secretHash,
		log:             logging.GetDefault().Component("chainwatch-counterparty-refund"),
	}
}

// Run polls until a matching refund call is observed.
func (w *CounterPartyRefundWatcher) Run(ctx context.Context, p Params) Result {
	return pollLoop(ctx, p, w.log, func(ctx context.Context) (any, bool, error) {
		calls, err := w.Reader.GetTransactions(ctx, w.ContractAddress)
		if err != nil {
			return nil, false, swaperrors.New(swaperrors.RequestError, "CounterPartyRefundWatcher.Run", err)
		}
		for _, c := range calls {
			if c.Selector == "refund" && helpers.BytesEqual(c.SecretHash, w.SecretHash) {
				return c, true, nil
			}
		}
		return nil, false, nil
	})
}

// CounterPartyPaymentWatcher watches for the counter-party's on-chain HTLC
// initiate call matching secret_hash, receiver, minimum value, and minimum
// lock_time.
type CounterPartyPaymentWatcher struct {
	Reader           AccountChainReader
	ContractAddress  string
	SecretHash       []byte
	LocalAddress     string
	MinValue         uint64
	MinLockTimeAfter time.Time
	PartyTimeout     time.Duration
	log              *logging.Logger
}

// NewCounterPartyPaymentWatcher constructs a payment watcher for one HTLC.
func NewCounterPartyPaymentWatcher(reader AccountChainReader, contractAddress string, secretHash []byte, localAddress string, minValue uint64, localTimestamp time.Time, partyTimeout time.Duration) *CounterPartyPaymentWatcher {
	return &CounterPartyPaymentWatcher{
		Reader:           reader,
		ContractAddress:  contractAddress,
		SecretHash:       secretHash,
		LocalAddress:     localAddress,
		MinValue:         minValue,
		MinLockTimeAfter: localTimestamp.Add(partyTimeout),
		PartyTimeout:     partyTimeout,
		log:              logging.GetDefault().Component("chainwatch-counterparty-payment"),
	}
}

// Run polls until a matching initiate call is observed.
func (w *CounterPartyPaymentWatcher) Run(ctx context.Context, p Params) Result {
	minLockTime := w.MinLockTimeAfter.Unix()

	return pollLoop(ctx, p, w.log, func(ctx context.Context) (any, bool, error) {
		calls, err := w.Reader.GetTransactions(ctx, w.ContractAddress)
		if err != nil {
			return nil, false, swaperrors.New(swaperrors.RequestError, "CounterPartyPaymentWatcher.Run", err)
		}
		for _, c := range calls {
			if c.Selector != "initiate" {
				continue
			}
			if !helpers.BytesEqual(c.SecretHash, w.SecretHash) {
				continue
			}
			if c.Receiver != w.LocalAddress {
				continue
			}
			if c.Value < w.MinValue {
				continue
			}
			if c.LockTime < minLockTime {
				continue
			}
			return c, true, nil
		}
		return nil, false, nil
	})
}

// CounterPartySecretWatcher watches an account-model HTLC contract for the
// redeem call that reveals the secret - the account-chain analogue of
// UTXOSpendWatcher's witness-scanning for a UTXO chain, since the secret
// here comes from a decoded call argument instead of a script witness.
type CounterPartySecretWatcher struct {
	Reader          AccountChainReader
	ContractAddress string
	SecretHash      []byte
	log             *logging.Logger
}

// NewCounterPartySecretWatcher constructs a redeem/secret-reveal watcher.
func NewCounterPartySecretWatcher(reader AccountChainReader, contractAddress string, secretHash []byte) *CounterPartySecretWatcher {
	return &CounterPartySecretWatcher{
		Reader:          reader,
		ContractAddress: contractAddress,
		SecretHash:      secretHash,
		log:             logging.GetDefault().Component("chainwatch-counterparty-secret"),
	}
}

// Run polls until a redeem call matching secret_hash is observed, and
// returns the revealed secret bytes as Result.Data.
func (w *CounterPartySecretWatcher) Run(ctx context.Context, p Params) Result {
	return pollLoop(ctx, p, w.log, func(ctx context.Context) (any, bool, error) {
		calls, err := w.Reader.GetTransactions(ctx, w.ContractAddress)
		if err != nil {
			return nil, false, swaperrors.New(swaperrors.RequestError, "CounterPartySecretWatcher.Run", err)
		}
		for _, c := range calls {
			if c.Selector != "redeem" || len(c.Secret) == 0 {
				continue
			}
			if !helpers.BytesEqual(c.SecretHash, w.SecretHash) {
				continue
			}
			return append([]byte(nil), c.Secret...), true, nil
		}
		return nil, false, nil
	})
}
