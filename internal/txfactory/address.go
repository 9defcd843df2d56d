// Package txfactory assembles and signs the UTXO- and account-chain
// transactions a swap needs: the funding payment, the HTLC claim, and the
// HTLC refund. Built around the CLTV absolute-lock_time HTLC script from
// internal/htlcbuild, and signs through the wallet.UTXOSigner/AccountSigner
// interfaces instead of holding private keys directly.
package txfactory

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/txscript"

	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
)

// addressToScript converts a chain address to its scriptPubKey: try
// btcutil's standard decoder first, then a manual bech32/bech32m decode
// for non-BTC witness addresses btcutil doesn't fully recognize.
func addressToScript(address, symbol string, network chain.Network) ([]byte, error) {
	params, ok := chain.Get(symbol, network)
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %s", symbol)
	}
	netParams, err := htlcbuild.ChainParamsFor(symbol, network)
	if err != nil {
		return nil, err
	}

	if addr, decodeErr := btcutil.DecodeAddress(address, netParams); decodeErr == nil {
		script, scriptErr := txscript.PayToAddrScript(addr)
		if scriptErr != nil {
			return nil, fmt.Errorf("failed to build script: %w", scriptErr)
		}
		return script, nil
	}

	if params.Bech32HRP == "" {
		return nil, fmt.Errorf("failed to decode address: %s", address)
	}

	hrp, data, err := bech32.DecodeNoLimit(address)
	if err != nil || hrp != params.Bech32HRP || len(data) == 0 {
		return nil, fmt.Errorf("failed to decode address: %s", address)
	}

	witVer := data[0]
	witnessProgram, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("invalid bech32 witness program: %w", err)
	}

	switch {
	case witVer == 0 && len(witnessProgram) == 20:
		return append([]byte{txscript.OP_0, txscript.OP_DATA_20}, witnessProgram...), nil
	case witVer == 0 && len(witnessProgram) == 32:
		return append([]byte{txscript.OP_0, txscript.OP_DATA_32}, witnessProgram...), nil
	case witVer == 1 && len(witnessProgram) == 32:
		return append([]byte{txscript.OP_1, txscript.OP_DATA_32}, witnessProgram...), nil
	default:
		return nil, fmt.Errorf("unsupported witness program in address: %s", address)
	}
}
