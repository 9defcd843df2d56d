// Package amount implements the decimal rounding and side-aware qty/amount
// conversion the swap engine needs, plus the account-chain fee formula
// wrapper around internal/config.FeeParams.
package amount

import (
	"math/big"

	"github.com/atomicswap/htlcengine/internal/config"
)

// Side is which leg of the trade a party is on.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side. The redeemer of an HTLC receives the
// purchased side, so redeem-amount computations always use side.Opposite().
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// AmountToQty converts a quote-currency amount to base-currency quantity,
// floor-rounded to 1/digitsMultiplier:
//
//	qty = floor((side==Buy ? amount/price : amount) * M) / M
//
// price and amount are exact rationals (*big.Rat) so callers keep full precision;
// digitsMultiplier is M (e.g. 10^8 for satoshi-level precision).
func AmountToQty(side Side, amount, price *big.Rat, digitsMultiplier uint64) *big.Rat {
	var base *big.Rat
	if side == Buy {
		base = new(big.Rat).Quo(amount, price)
	} else {
		base = new(big.Rat).Set(amount)
	}
	return floorToMultiplier(base, digitsMultiplier)
}

// QtyToAmount is the inverse of AmountToQty:
//
//	amount = floor((side==Buy ? qty*price : qty) * M) / M
func QtyToAmount(side Side, qty, price *big.Rat, digitsMultiplier uint64) *big.Rat {
	var base *big.Rat
	if side == Buy {
		base = new(big.Rat).Mul(qty, price)
	} else {
		base = new(big.Rat).Set(qty)
	}
	return floorToMultiplier(base, digitsMultiplier)
}

// floorToMultiplier computes floor(v*M)/M using exact rational arithmetic,
// giving at least 28 significant digits of intermediate precision since
// big.Rat numerator/denominator are arbitrary-precision big.Int.
func floorToMultiplier(v *big.Rat, m uint64) *big.Rat {
	mBig := new(big.Int).SetUint64(m)
	scaled := new(big.Rat).Mul(v, new(big.Rat).SetInt(mBig))

	// floor(scaled): integer division of num/denom, rounding toward
	// negative infinity is unnecessary here since amounts are non-negative.
	num := new(big.Int).Quo(scaled.Num(), scaled.Denom())

	return new(big.Rat).Quo(new(big.Rat).SetInt(num), new(big.Rat).SetInt(mBig))
}

// Fee computes the account-chain fee for an operation using the standard
// minimal_fee + (gas_limit + gas_reserve) * price_per_gas + size * price_per_byte
// formula, delegating to the configured FeeParams. It exists as a thin
// named entry point so call sites read as
// amount.Fee(params, config.OpRedeem) rather than reaching into config
// directly, matching the layering the rest of the engine uses (amount
// arithmetic lives in this package, fee *constants* live in config).
func Fee(p config.FeeParams, op config.OperationKind) uint64 {
	return p.Fee(op)
}

// RefundFee computes the refund-operation fee for Tezos-family currencies.
// It deliberately uses RefundStorageLimit in place of RefundSize in the
// byte-cost term - see DESIGN.md's Open Question decision: this looks like
// a copy-paste bug against the general formula but is kept as is. The
// result exceeds the size-based fee only when the refund storage_limit
// exceeds the refund size; with DefaultTezosFeeParams (refund
// storage_limit 0, size 180) it is 180*NanotezPerByte lower (1,810,101
// rather than 1,990,101).
func RefundFee(p config.FeeParams) uint64 {
	gasLimit := p.GasLimit[config.OpRefund]
	storageLimit := p.StorageLimit[config.OpRefund]
	return p.MinimalFee + (gasLimit+p.GasReserve)*p.NanotezPerGas + storageLimit*p.NanotezPerByte + 1
}
