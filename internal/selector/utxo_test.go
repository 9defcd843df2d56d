package selector

import "testing"

func TestSelectUTXOsPicksSmallestFirst(t *testing.T) {
	utxos := []UTXO{
		{TxID: "a", Amount: 1000, AddressType: "p2wpkh"},
		{TxID: "b", Amount: 5000, AddressType: "p2wpkh"},
		{TxID: "c", Amount: 200, AddressType: "p2wpkh"},
	}

	selected, total, err := SelectUTXOs(utxos, 3000, 1, 2)
	if err != nil {
		t.Fatalf("SelectUTXOs: %v", err)
	}
	if len(selected) != 3 || selected[0].TxID != "c" {
		t.Fatalf("expected smallest UTXO c first and all three needed, got %+v", selected)
	}
	if total != 6200 {
		t.Errorf("total = %d, want 6200", total)
	}
}

func TestSelectUTXOsAccumulatesAcrossInputs(t *testing.T) {
	utxos := []UTXO{
		{TxID: "a", Amount: 1000, AddressType: "p2wpkh"},
		{TxID: "b", Amount: 1000, AddressType: "p2wpkh"},
		{TxID: "c", Amount: 1000, AddressType: "p2wpkh"},
	}

	selected, _, err := SelectUTXOs(utxos, 2500, 1, 2)
	if err != nil {
		t.Fatalf("SelectUTXOs: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("expected all 3 UTXOs needed, got %d", len(selected))
	}
}

func TestSelectUTXOsInsufficientFunds(t *testing.T) {
	utxos := []UTXO{{TxID: "a", Amount: 100, AddressType: "p2wpkh"}}
	_, _, err := SelectUTXOs(utxos, 10000, 1, 2)
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
}

func TestSelectUTXOsAccountsForAddressTypeFeeDifference(t *testing.T) {
	p2trUTXOs := []UTXO{
		{TxID: "a", Amount: 1000, AddressType: "p2tr"},
	}
	p2pkhUTXOs := []UTXO{
		{TxID: "a", Amount: 1000, AddressType: "p2pkh"},
	}

	// Both have the same balance and target amount, but p2pkh inputs cost
	// more vbytes, so p2pkh should fail to cover the same amount that p2tr
	// comfortably covers.
	const feeRate = 1
	const amount = 900

	_, _, errP2TR := SelectUTXOs(p2trUTXOs, amount, feeRate, 1)
	_, _, errP2PKH := SelectUTXOs(p2pkhUTXOs, amount, feeRate, 1)

	if errP2TR != nil {
		t.Fatalf("expected p2tr selection to succeed: %v", errP2TR)
	}
	if errP2PKH == nil {
		t.Fatal("expected p2pkh selection to fail due to higher input fee")
	}
}
