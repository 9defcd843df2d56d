package selector

import (
	"testing"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

func TestSelectAccountAddressesSingleAddressSufficient(t *testing.T) {
	addrs := []Address{
		{Address: "a1", AvailableBalance: 1000},
		{Address: "a2", AvailableBalance: 50},
	}
	allocs, err := SelectAccountAddresses(addrs, 500, MaxBalanceFirst, EstimatedFeeFunc(10), 0)
	if err != nil {
		t.Fatalf("SelectAccountAddresses: %v", err)
	}
	if len(allocs) != 1 || allocs[0].Address != "a1" {
		t.Fatalf("expected single allocation from a1, got %+v", allocs)
	}
	if allocs[0].Amount != 500 {
		t.Errorf("Amount = %d, want 500", allocs[0].Amount)
	}
}

func TestSelectAccountAddressesSpansMultipleTransactions(t *testing.T) {
	addrs := []Address{
		{Address: "a1", AvailableBalance: 300},
		{Address: "a2", AvailableBalance: 300},
	}
	// amount 500 needs both addresses since no single one covers it net of fee.
	allocs, err := SelectAccountAddresses(addrs, 500, MaxBalanceFirst, EstimatedFeeFunc(10), 0)
	if err != nil {
		t.Fatalf("SelectAccountAddresses: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d: %+v", len(allocs), allocs)
	}
	var total uint64
	for _, a := range allocs {
		total += a.Amount
	}
	if total != 500 {
		t.Errorf("total allocated = %d, want 500", total)
	}
}

func TestSelectAccountAddressesOnlyOneRefusesSplit(t *testing.T) {
	addrs := []Address{
		{Address: "a1", AvailableBalance: 300},
		{Address: "a2", AvailableBalance: 300},
	}
	_, err := SelectAccountAddresses(addrs, 500, OnlyOne, EstimatedFeeFunc(10), 0)
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds under OnlyOne, got %v", err)
	}
}

func TestSelectAccountAddressesMinBalanceFirstOrdering(t *testing.T) {
	addrs := []Address{
		{Address: "big", AvailableBalance: 1000},
		{Address: "small", AvailableBalance: 100},
	}
	allocs, err := SelectAccountAddresses(addrs, 50, MinBalanceFirst, EstimatedFeeFunc(1), 0)
	if err != nil {
		t.Fatalf("SelectAccountAddresses: %v", err)
	}
	if allocs[0].Address != "small" {
		t.Errorf("expected small-balance address tried first, got %s", allocs[0].Address)
	}
}

func TestFeeForAllTransactionsFuncSplitsWithRemainderOnFirst(t *testing.T) {
	fee := FeeForAllTransactionsFunc(100)
	total := fee(3, 0) + fee(3, 1) + fee(3, 2)
	if total != 100 {
		t.Errorf("split fees sum = %d, want 100", total)
	}
	if fee(3, 0) < fee(3, 1) {
		t.Error("remainder should be applied to the first transaction")
	}
}

func TestSelectAccountAddressesInsufficientFunds(t *testing.T) {
	addrs := []Address{{Address: "a1", AvailableBalance: 10}}
	_, err := SelectAccountAddresses(addrs, 1000, MaxBalanceFirst, EstimatedFeeFunc(1), 0)
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSelectAccountAddressesInsufficientGas(t *testing.T) {
	addrs := []Address{{Address: "a1", AvailableBalance: 1000}}
	// fee is 10 per tx (selected_count 1), well under a gas_limit of 500.
	_, err := SelectAccountAddresses(addrs, 500, MaxBalanceFirst, EstimatedFeeFunc(10), 500)
	if err == nil {
		t.Fatal("expected InsufficientGas error")
	}
	kind, ok := swaperrors.KindOf(err)
	if !ok || kind != swaperrors.InsufficientGas {
		t.Fatalf("expected swaperrors.InsufficientGas, got %v", err)
	}
}
