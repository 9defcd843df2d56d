package amount

import (
	"math/big"
	"testing"

	"github.com/atomicswap/htlcengine/internal/config"
)

func rat(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic("bad rational literal: " + s)
	}
	return r
}

func TestAmountQtyRoundTripFloorBias(t *testing.T) {
	// round trip must never overshoot: qty_to_amount(amount_to_qty(a)) <= a
	cases := []struct {
		side  Side
		a     string
		price string
		m     uint64
	}{
		{Buy, "100", "3", 100000000},
		{Sell, "0.10000001", "27500", 100000000},
		{Buy, "1", "7", 1000},
	}

	for _, c := range cases {
		a := rat(c.a)
		price := rat(c.price)

		qty := AmountToQty(c.side, a, price, c.m)
		back := QtyToAmount(c.side, qty, price, c.m)

		if back.Cmp(a) > 0 {
			t.Errorf("round trip exceeded original amount: side=%s a=%s -> qty=%s -> back=%s", c.side, c.a, qty.FloatString(10), back.FloatString(10))
		}
	}
}

func TestOppositeSide(t *testing.T) {
	if Buy.Opposite() != Sell {
		t.Error("Buy.Opposite() should be Sell")
	}
	if Sell.Opposite() != Buy {
		t.Error("Sell.Opposite() should be Buy")
	}
}

func TestFeeMonotonicity(t *testing.T) {
	p := config.DefaultTezosFeeParams()
	base := Fee(p, config.OpInitiate)

	bumped := p
	bumped.GasLimit = map[config.OperationKind]uint64{}
	for k, v := range p.GasLimit {
		bumped.GasLimit[k] = v
	}
	bumped.GasLimit[config.OpInitiate] += 1

	if Fee(bumped, config.OpInitiate) <= base {
		t.Error("increasing gas_limit must strictly increase fee")
	}
}

func TestRefundFeeUsesStorageLimit(t *testing.T) {
	p := config.DefaultTezosFeeParams()
	got := RefundFee(p)

	want := p.MinimalFee + (p.GasLimit[config.OpRefund]+p.GasReserve)*p.NanotezPerGas + p.StorageLimit[config.OpRefund]*p.NanotezPerByte + 1
	if got != want {
		t.Errorf("RefundFee() = %d, want %d", got, want)
	}
}
