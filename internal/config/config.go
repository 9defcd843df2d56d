// Package config centralizes the timing, fee, and gas parameters the swap
// engine needs. No hardcoded values of this kind should exist elsewhere in
// the codebase.
package config

import (
	"errors"
	"time"
)

// ErrLockTimeDeltaTooSmall is returned by SwapConfig.Validate when
// InitiatorLockTime - ResponderLockTime is below MinLockTimeDelta.
var ErrLockTimeDeltaTooSmall = errors.New("config: initiator/responder lock time delta below minimum")

// OperationKind identifies a builder/fee operation on an account-model chain.
type OperationKind string

const (
	OpInitiate   OperationKind = "initiate"
	OpAdd        OperationKind = "add"
	OpRedeem     OperationKind = "redeem"
	OpRefund     OperationKind = "refund"
	OpTransfer   OperationKind = "transfer"
	OpApprove    OperationKind = "approve"
	OpGetBalance OperationKind = "get_balance"
)

// =============================================================================
// Swap timing configuration (T_init / T_acc)
// =============================================================================

// SwapConfig holds atomic swap timing and security parameters.
type SwapConfig struct {
	// InitiatorLockTime is T_init: how long the initiator's payment stays locked.
	// Must be strictly longer than ResponderLockTime (T_acc) so the acceptor
	// can always refund before the initiator's payment becomes refundable.
	InitiatorLockTime time.Duration

	// ResponderLockTime is T_acc: how long the acceptor's payment stays locked.
	ResponderLockTime time.Duration

	// MinLockTimeDelta is the minimum required T_init - T_acc.
	MinLockTimeDelta time.Duration

	// SecretSize is the size of the swap secret in bytes.
	SecretSize int

	// RedeemReserve is the safety margin before T_acc past which the
	// initiator abandons the redeem path and falls back to refund.
	RedeemReserve time.Duration

	// ForceRefundInterval is the re-broadcast interval for a stuck refund tx.
	ForceRefundInterval time.Duration

	// MaxSwapDuration bounds how long a swap can remain active before being
	// quarantined as stuck.
	MaxSwapDuration time.Duration
}

// DefaultSwapConfig returns the default swap configuration.
func DefaultSwapConfig() SwapConfig {
	return SwapConfig{
		InitiatorLockTime:   48 * time.Hour,
		ResponderLockTime:   24 * time.Hour,
		MinLockTimeDelta:    12 * time.Hour,
		SecretSize:          32,
		RedeemReserve:       2 * time.Hour,
		ForceRefundInterval: 5 * time.Minute,
		MaxSwapDuration:     72 * time.Hour,
	}
}

// Validate enforces the initiator-lock-time-exceeds-acceptor-lock-time
// invariant with the configured safety margin.
func (c SwapConfig) Validate() error {
	if c.InitiatorLockTime-c.ResponderLockTime < c.MinLockTimeDelta {
		return ErrLockTimeDeltaTooSmall
	}
	return nil
}

// =============================================================================
// Watcher tuning
// =============================================================================

// WatcherConfig holds the polling cadence and retry bounds shared by every
// chain watcher.
type WatcherConfig struct {
	GetTransactionInterval       time.Duration
	DefaultGetTransactionAttempts int
	OutputSpentCheckInterval     time.Duration
	InputGettingInterval         time.Duration
	CounterPartyPollInterval     time.Duration
	MaxAttempts                  int
}

// DefaultWatcherConfig returns the default watcher tuning.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		GetTransactionInterval:        10 * time.Second,
		DefaultGetTransactionAttempts: 30,
		OutputSpentCheckInterval:      15 * time.Second,
		InputGettingInterval:          10 * time.Second,
		CounterPartyPollInterval:      20 * time.Second,
		MaxAttempts:                   60,
	}
}

// =============================================================================
// Account-chain fee configuration
// =============================================================================

// FeeParams holds the constants driving the account-chain fee formula:
//
//	fee = minimal_fee + (gas_limit + gas_reserve) * nanotez_per_gas
//	    + size * nanotez_per_byte + 1
//
// One FeeParams is configured per Currency variant (Ethereum uses
// gas_price instead of nanotez_per_gas but the same shape; Tezos/FA1.2 use
// the formula literally).
type FeeParams struct {
	MinimalFee     uint64
	GasReserve     uint64
	NanotezPerGas  uint64
	NanotezPerByte uint64

	// GasLimit and StorageLimit are per-operation. Ethereum's "add" and
	// "initiate" limits differ (initiate carries the reward/receiver setup
	// cost), so limits are looked up per operation kind and per whether it's
	// the first operation in a selection.
	GasLimit     map[OperationKind]uint64
	StorageLimit map[OperationKind]uint64
	Size         map[OperationKind]uint64

	// ActivationFeeMutez is the one-time fee for activating an inactive
	// destination address (Tezos family only). Nothing in this module adds
	// it to a fee: FeeParams.Fee, amount.RefundFee and the selectors do not
	// read it.
	ActivationFeeMutez uint64
}

// DefaultTezosFeeParams returns the fee parameters for XTZ.
func DefaultTezosFeeParams() FeeParams {
	gasLimit := map[OperationKind]uint64{
		OpInitiate: 25000,
		OpAdd:      15000, // add_gas_limit, assigned exactly once (see DESIGN.md open questions)
		OpRedeem:   20000,
		OpRefund:   18000,
		OpTransfer: 10300,
	}
	storageLimit := map[OperationKind]uint64{
		OpInitiate: 300,
		OpAdd:      0,
		OpRedeem:   0,
		OpRefund:   0,
		OpTransfer: 0,
	}
	size := map[OperationKind]uint64{
		OpInitiate: 350,
		OpAdd:      180,
		OpRedeem:   200,
		// RefundSize intentionally unused in amount.RefundFee - see
		// DESIGN.md's Open Question decision on the RefundFee formula.
		OpRefund: 180,
	}
	return FeeParams{
		MinimalFee:         100,
		GasReserve:         100,
		NanotezPerGas:      100,
		NanotezPerByte:     1000,
		GasLimit:           gasLimit,
		StorageLimit:       storageLimit,
		Size:               size,
		ActivationFeeMutez: 257000,
	}
}

// DefaultFa12FeeParams returns the fee parameters for an FA1.2 token
// (TZBTC), which piggybacks on the Tezos gas/storage model but has its own
// gas-limit table because contract calls with a ledger indirection cost more.
func DefaultFa12FeeParams() FeeParams {
	p := DefaultTezosFeeParams()
	p.GasLimit = map[OperationKind]uint64{
		OpInitiate: 35000,
		OpAdd:      22000,
		OpRedeem:   28000,
		OpRefund:   24000,
		OpApprove:  18000,
		OpTransfer: 15000,
	}
	return p
}

// DefaultEthereumFeeParams returns Ethereum-family gas limits. Ethereum uses
// gas_price (from the network) rather than a fixed nanotez_per_gas constant;
// NanotezPerGas here is reused as a floor/default gas price in wei-per-gas
// for chains without a live fee oracle wired in.
func DefaultEthereumFeeParams() FeeParams {
	return FeeParams{
		MinimalFee:    0,
		GasReserve:    5000,
		NanotezPerGas: 1_000_000_000, // 1 gwei floor
		GasLimit: map[OperationKind]uint64{
			OpInitiate: 120000, // initiate_with_reward_gas_limit
			OpAdd:      60000,  // add_gas_limit
			OpRedeem:   80000,
			OpRefund:   60000,
			OpTransfer: 21000,
		},
	}
}

// Fee computes the fee for the given operation using the standard formula,
// floor-rounded (the formula is integer arithmetic throughout, which is
// already floor by construction).
func (p FeeParams) Fee(op OperationKind) uint64 {
	gasLimit := p.GasLimit[op]
	size := p.Size[op]
	return p.MinimalFee + (gasLimit+p.GasReserve)*p.NanotezPerGas + size*p.NanotezPerByte + 1
}
