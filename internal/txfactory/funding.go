package txfactory

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/internal/selector"
	"github.com/atomicswap/htlcengine/internal/wallet"
)

// DustThreshold is the minimum change output value; smaller change is
// folded into the fee instead.
const DustThreshold = 546

// FundingInput describes one selected UTXO and the signer that owns it.
type FundingInput struct {
	UTXO   selector.UTXO
	Signer wallet.UTXOSigner
	// PrevScript is the scriptPubKey of this UTXO, needed for BIP-143
	// sighash computation.
	PrevScript []byte
}

// FundingParams describes a swap's funding transaction: pay SwapAmount to
// the HTLC's P2WSH address, with any leftover going to ChangeAddress.
type FundingParams struct {
	Symbol  string
	Network chain.Network

	Inputs []FundingInput

	SwapScript []byte // the HTLC redeem script, from htlcbuild.BuildScript
	SwapAmount uint64

	ChangeAddress string
	FeeRate       uint64
}

// BuildAndSignFundingTx assembles and signs the funding transaction that
// pays into the P2WSH HTLC address, signing each input through its own
// wallet.UTXOSigner rather than a single private key.
func BuildAndSignFundingTx(params FundingParams) (*wire.MsgTx, error) {
	if len(params.Inputs) == 0 {
		return nil, fmt.Errorf("txfactory: no inputs provided")
	}

	tx := wire.NewMsgTx(wire.TxVersion)

	var totalInput uint64
	for _, in := range params.Inputs {
		totalInput += in.UTXO.Amount
		txHash, err := chainhash.NewHashFromStr(in.UTXO.TxID)
		if err != nil {
			return nil, fmt.Errorf("txfactory: invalid txid %s: %w", in.UTXO.TxID, err)
		}
		txIn := wire.NewTxIn(wire.NewOutPoint(txHash, in.UTXO.Vout), nil, nil)
		txIn.Sequence = wire.MaxTxInSequenceNum - 2 // signal RBF
		tx.AddTxIn(txIn)
	}

	swapScriptPubKey := htlcScriptPubKey(params.SwapScript)
	tx.AddTxOut(wire.NewTxOut(int64(params.SwapAmount), swapScriptPubKey))

	estimatedVSize := int64(10)
	for _, in := range params.Inputs {
		estimatedVSize += int64(inputVBytesFor(in.UTXO.AddressType))
	}
	estimatedVSize += 43 // swap output
	estimatedVSize += 43 // change output, assumed present

	fee := uint64(estimatedVSize) * params.FeeRate
	if totalInput < params.SwapAmount+fee {
		return nil, fmt.Errorf("txfactory: insufficient funds: need %d, have %d", params.SwapAmount+fee, totalInput)
	}
	change := totalInput - params.SwapAmount - fee

	if change > DustThreshold {
		changeScript, err := addressToScript(params.ChangeAddress, params.Symbol, params.Network)
		if err != nil {
			return nil, fmt.Errorf("txfactory: invalid change address: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	}

	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(params.Inputs))
	for i, in := range params.Inputs {
		prevOuts[tx.TxIn[i].PreviousOutPoint] = wire.NewTxOut(int64(in.UTXO.Amount), in.PrevScript)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range params.Inputs {
		sighash, err := txscript.CalcWitnessSigHash(in.PrevScript, sigHashes, txscript.SigHashAll, tx, i, int64(in.UTXO.Amount))
		if err != nil {
			return nil, fmt.Errorf("txfactory: sighash for input %d: %w", i, err)
		}
		sig, err := in.Signer.SignHash(sighash)
		if err != nil {
			return nil, fmt.Errorf("txfactory: sign input %d: %w", i, err)
		}
		sigWithHashType := append(append([]byte{}, sig...), byte(txscript.SigHashAll))
		tx.TxIn[i].Witness = wire.TxWitness{sigWithHashType, in.Signer.PublicKey().SerializeCompressed()}
	}

	return tx, nil
}

func inputVBytesFor(addressType string) uint64 {
	switch addressType {
	case "p2tr":
		return 58
	case "p2pkh":
		return 148
	default:
		return 68
	}
}

func htlcScriptPubKey(script []byte) []byte {
	// same construction as htlcbuild.P2WSHScriptPubKey.
	h := chainhash.HashB(script)
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(h)
	scriptPubKey, _ := builder.Script()
	return scriptPubKey
}

// SerializeTx returns the transaction as a hex string, ready for broadcast.
func SerializeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("txfactory: serialize: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
