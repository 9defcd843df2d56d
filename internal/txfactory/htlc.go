package txfactory

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/internal/htlcbuild"
	"github.com/atomicswap/htlcengine/internal/wallet"
)

// ClaimParams describes redeeming an HTLC output with the secret, before
// its lock_time.
type ClaimParams struct {
	Symbol  string
	Network chain.Network

	FundingTxID   string
	FundingVout   uint32
	FundingAmount uint64

	HTLCScript []byte
	Secret     []byte

	DestAddress string
	FeeRate     uint64

	Signer wallet.UTXOSigner
}

// BuildAndSignClaimTx spends an HTLC output via the OP_IF branch: the
// witness stack is [sig, secret, TRUE, script], and the transaction
// carries no special sequence/locktime requirement since the claim path
// is not time-gated (only the refund path is, via CLTV).
func BuildAndSignClaimTx(p ClaimParams) (*wire.MsgTx, error) {
	if len(p.Secret) != 32 {
		return nil, fmt.Errorf("txfactory: secret must be 32 bytes, got %d", len(p.Secret))
	}
	if len(p.HTLCScript) == 0 {
		return nil, fmt.Errorf("txfactory: HTLC script required")
	}

	tx := wire.NewMsgTx(wire.TxVersion)

	txHash, err := chainhash.NewHashFromStr(p.FundingTxID)
	if err != nil {
		return nil, fmt.Errorf("txfactory: invalid txid %s: %w", p.FundingTxID, err)
	}
	txIn := wire.NewTxIn(wire.NewOutPoint(txHash, p.FundingVout), nil, nil)
	txIn.Sequence = wire.MaxTxInSequenceNum
	tx.AddTxIn(txIn)

	// witness: sig(~73) + secret(32) + selector(1) + script(~110), quartered
	// by the witness discount, plus base/input/output overhead.
	estimatedVSize := int64(10 + 41 + 43 + 52)
	fee := uint64(estimatedVSize) * p.FeeRate
	if p.FundingAmount <= fee {
		return nil, fmt.Errorf("txfactory: funding %d <= fee %d", p.FundingAmount, fee)
	}
	outputAmount := p.FundingAmount - fee

	destScript, err := addressToScript(p.DestAddress, p.Symbol, p.Network)
	if err != nil {
		return nil, fmt.Errorf("txfactory: invalid destination address: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(int64(outputAmount), destScript))

	p2wsh := htlcbuild.P2WSHScriptPubKey(p.HTLCScript)
	fetcher := txscript.NewCannedPrevOutputFetcher(p2wsh, int64(p.FundingAmount))
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	sighash, err := txscript.CalcWitnessSigHash(p.HTLCScript, sigHashes, txscript.SigHashAll, tx, 0, int64(p.FundingAmount))
	if err != nil {
		return nil, fmt.Errorf("txfactory: sighash: %w", err)
	}
	sig, err := p.Signer.SignHash(sighash)
	if err != nil {
		return nil, fmt.Errorf("txfactory: sign: %w", err)
	}
	sigWithHashType := append(append([]byte{}, sig...), byte(txscript.SigHashAll))

	tx.TxIn[0].Witness = htlcbuild.ClaimWitness(sigWithHashType, p.Secret, p.HTLCScript)
	return tx, nil
}

// RefundParams describes refunding an HTLC output via the OP_ELSE branch
// after LockTime.
type RefundParams struct {
	Symbol  string
	Network chain.Network

	FundingTxID   string
	FundingVout   uint32
	FundingAmount uint64

	HTLCScript []byte
	LockTime   uint32 // absolute lock_time, must match what's baked into HTLCScript

	DestAddress string
	FeeRate     uint64

	Signer wallet.UTXOSigner
}

// BuildAndSignRefundTx spends an HTLC output via the OP_ELSE branch after
// LockTime. Since the redeem script uses OP_CHECKLOCKTIMEVERIFY (absolute)
// rather than OP_CHECKSEQUENCEVERIFY (relative), the transaction sets
// nLockTime to LockTime and a non-final input sequence, rather than
// encoding the timeout in the input's sequence field.
func BuildAndSignRefundTx(p RefundParams) (*wire.MsgTx, error) {
	if len(p.HTLCScript) == 0 {
		return nil, fmt.Errorf("txfactory: HTLC script required")
	}
	if p.LockTime == 0 {
		return nil, fmt.Errorf("txfactory: lock_time must be > 0")
	}

	tx := wire.NewMsgTx(2)
	tx.LockTime = p.LockTime

	txHash, err := chainhash.NewHashFromStr(p.FundingTxID)
	if err != nil {
		return nil, fmt.Errorf("txfactory: invalid txid %s: %w", p.FundingTxID, err)
	}
	txIn := wire.NewTxIn(wire.NewOutPoint(txHash, p.FundingVout), nil, nil)
	// CLTV requires a non-final sequence number so nLockTime is honored.
	txIn.Sequence = wire.MaxTxInSequenceNum - 1
	tx.AddTxIn(txIn)

	estimatedVSize := int64(10 + 41 + 43 + 44)
	fee := uint64(estimatedVSize) * p.FeeRate
	if p.FundingAmount <= fee {
		return nil, fmt.Errorf("txfactory: funding %d <= fee %d", p.FundingAmount, fee)
	}
	outputAmount := p.FundingAmount - fee

	destScript, err := addressToScript(p.DestAddress, p.Symbol, p.Network)
	if err != nil {
		return nil, fmt.Errorf("txfactory: invalid destination address: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(int64(outputAmount), destScript))

	p2wsh := htlcbuild.P2WSHScriptPubKey(p.HTLCScript)
	fetcher := txscript.NewCannedPrevOutputFetcher(p2wsh, int64(p.FundingAmount))
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	sighash, err := txscript.CalcWitnessSigHash(p.HTLCScript, sigHashes, txscript.SigHashAll, tx, 0, int64(p.FundingAmount))
	if err != nil {
		return nil, fmt.Errorf("txfactory: sighash: %w", err)
	}
	sig, err := p.Signer.SignHash(sighash)
	if err != nil {
		return nil, fmt.Errorf("txfactory: sign: %w", err)
	}
	sigWithHashType := append(append([]byte{}, sig...), byte(txscript.SigHashAll))

	tx.TxIn[0].Witness = htlcbuild.RefundWitness(sigWithHashType, p.HTLCScript)
	return tx, nil
}

// DeserializeTx parses a raw transaction from its wire-format bytes.
func DeserializeTx(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("txfactory: deserialize: %w", err)
	}
	return tx, nil
}
