package selector

import "fmt"

// UTXO is a candidate spendable output on a Bitcoin-family chain.
type UTXO struct {
	TxID        string
	Vout        uint32
	Amount      uint64
	AddressType string // p2wpkh, p2tr, p2pkh
}

// inputVBytes returns the approximate virtual size contribution of
// spending a UTXO of the given address type.
func inputVBytes(addressType string) uint64 {
	switch addressType {
	case "p2tr":
		return 58
	case "p2pkh":
		return 148
	default: // p2wpkh
		return 68
	}
}

// SelectUTXOs greedily selects UTXOs (smallest amount first) to cover amount
// plus the fee the selection itself incurs at feeRate sat/vB, kept
// independent of transaction construction so it can be reused by both the
// funding-tx and claim/refund-tx builders.
func SelectUTXOs(utxos []UTXO, amount, feeRate uint64, outputCount int) ([]UTXO, uint64, error) {
	if amount == 0 {
		return nil, 0, fmt.Errorf("selector: amount must be positive")
	}
	if len(utxos) == 0 {
		return nil, 0, fmt.Errorf("selector: no UTXOs provided")
	}

	sorted := make([]UTXO, len(utxos))
	copy(sorted, utxos)
	sortByAmountAscending(sorted)

	const outputVBytes = 31 // P2WPKH-sized output
	baseFee := (uint64(10) + uint64(outputCount)*outputVBytes) * feeRate

	var selected []UTXO
	var total uint64
	for _, u := range sorted {
		selected = append(selected, u)
		total += u.Amount

		fee := baseFee + inputsFee(selected, feeRate)
		if total >= amount+fee {
			return selected, total, nil
		}
	}

	fee := baseFee + inputsFee(selected, feeRate)
	return nil, 0, fmt.Errorf("selector: insufficient funds: need %d, have %d", amount+fee, total)
}

func inputsFee(utxos []UTXO, feeRate uint64) uint64 {
	var vbytes uint64
	for _, u := range utxos {
		vbytes += inputVBytes(u.AddressType)
	}
	return vbytes * feeRate
}

func sortByAmountAscending(utxos []UTXO) {
	for i := 1; i < len(utxos); i++ {
		for j := i; j > 0 && utxos[j].Amount < utxos[j-1].Amount; j-- {
			utxos[j], utxos[j-1] = utxos[j-1], utxos[j]
		}
	}
}
