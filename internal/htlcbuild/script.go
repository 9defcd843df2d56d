// Package htlcbuild builds the P2WSH HTLC script for Bitcoin-family UTXO
// chains and computes fee quotes for account-model HTLC operations
// (contract.go); the account-chain contract calls themselves are made by
// internal/contracts/htlc. The UTXO script uses an
// absolute (CLTV) refund timelock rather than a relative (CSV) one, since
// both parties need to agree on the same wall-clock deadline.
package htlcbuild

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/atomicswap/htlcengine/internal/chain"
	"github.com/atomicswap/htlcengine/pkg/helpers"
)

// ScriptData contains everything needed to spend or identify a UTXO-chain
// HTLC output.
type ScriptData struct {
	Script     []byte
	Address    string
	ScriptHash []byte

	SecretHash     []byte
	ReceiverPubKey []byte // claims with the secret before lock_time
	SenderPubKey   []byte // refunds after lock_time
	LockTime       uint32 // absolute UNIX-style locktime, CLTV
}

// BuildScript builds the HTLC redeem script:
//
//	OP_IF
//	    OP_SHA256 <secret_hash> OP_EQUALVERIFY
//	    <receiver_pubkey> OP_CHECKSIG
//	OP_ELSE
//	    <lock_time> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    <sender_pubkey> OP_CHECKSIG
//	OP_ENDIF
//
// The OP_IF/OP_ELSE two-branch shape uses OP_CHECKLOCKTIMEVERIFY rather
// than OP_CHECKSEQUENCEVERIFY, since the swap engine's lock_time is an
// absolute deadline shared by both parties' views of the timeout, not a
// per-output relative delay.
func BuildScript(secretHash, receiverPubKey, senderPubKey []byte, lockTime uint32) ([]byte, error) {
	if len(secretHash) != 32 {
		return nil, fmt.Errorf("secret hash must be 32 bytes, got %d", len(secretHash))
	}
	if len(receiverPubKey) != 33 {
		return nil, fmt.Errorf("receiver pubkey must be 33 bytes (compressed), got %d", len(receiverPubKey))
	}
	if len(senderPubKey) != 33 {
		return nil, fmt.Errorf("sender pubkey must be 33 bytes (compressed), got %d", len(senderPubKey))
	}
	if lockTime == 0 {
		return nil, fmt.Errorf("lock_time must be greater than 0")
	}

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(secretHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(receiverPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(lockTime))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(senderPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// BuildScriptData derives the full ScriptData - script, P2WSH address, and
// script hash - for a given chain and network.
func BuildScriptData(
	secretHash []byte,
	receiverPubKey, senderPubKey *btcec.PublicKey,
	lockTime uint32,
	symbol string,
	network chain.Network,
) (*ScriptData, error) {
	receiverBytes := receiverPubKey.SerializeCompressed()
	senderBytes := senderPubKey.SerializeCompressed()

	script, err := BuildScript(secretHash, receiverBytes, senderBytes, lockTime)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTLC script: %w", err)
	}

	scriptHash := sha256.Sum256(script)

	chainParams, err := chainParamsFor(symbol, network)
	if err != nil {
		return nil, err
	}

	address, err := btcutil.NewAddressWitnessScriptHash(scriptHash[:], chainParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create P2WSH address: %w", err)
	}

	return &ScriptData{
		Script:         script,
		Address:        address.EncodeAddress(),
		ScriptHash:     scriptHash[:],
		SecretHash:     secretHash,
		ReceiverPubKey: receiverBytes,
		SenderPubKey:   senderBytes,
		LockTime:       lockTime,
	}, nil
}

// ClaimWitness builds the witness stack that redeems the HTLC with the
// secret: <signature> <secret> <TRUE> <script>.
func ClaimWitness(signature, secret, script []byte) [][]byte {
	return [][]byte{signature, secret, {0x01}, script}
}

// RefundWitness builds the witness stack that refunds the HTLC after
// lock_time: <signature> <FALSE> <script>.
func RefundWitness(signature, script []byte) [][]byte {
	return [][]byte{signature, {}, script}
}

// P2WSHScriptPubKey builds the output scriptPubKey (OP_0 <script-hash>) that
// funds an HTLC address.
func P2WSHScriptPubKey(script []byte) []byte {
	scriptHash := sha256.Sum256(script)
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(scriptHash[:])
	scriptPubKey, _ := builder.Script()
	return scriptPubKey
}

// GenerateSecret produces a fresh 32-byte secret and its SHA-256 hash.
func GenerateSecret() (secret, hash []byte, err error) {
	secret, err = helpers.GenerateSecureRandom(32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	h := sha256.Sum256(secret)
	return secret, h[:], nil
}

// VerifySecret reports whether secret hashes to expectedHash.
func VerifySecret(secret, expectedHash []byte) bool {
	if len(secret) != 32 || len(expectedHash) != 32 {
		return false
	}
	actual := sha256.Sum256(secret)
	return helpers.ConstantTimeCompare(actual[:], expectedHash)
}

// ChainParamsFor maps a registered chain to the btcd chaincfg.Params needed
// for address derivation and decoding - exported so internal/txfactory can
// share it rather than re-deriving chaincfg.Params from internal/chain.
func ChainParamsFor(symbol string, network chain.Network) (*chaincfg.Params, error) {
	return chainParamsFor(symbol, network)
}

func chainParamsFor(symbol string, network chain.Network) (*chaincfg.Params, error) {
	params, ok := chain.Get(symbol, network)
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %s", symbol)
	}

	switch symbol {
	case "BTC":
		if network == chain.Testnet {
			return &chaincfg.TestNet3Params, nil
		}
		return &chaincfg.MainNetParams, nil
	case "LTC", "DOGE":
		return cloneParams(params), nil
	default:
		return nil, fmt.Errorf("HTLC scripting not supported for chain: %s", symbol)
	}
}

// cloneParams builds a chaincfg.Params for a UTXO chain btcd has no built-in
// entry for, by cloning mainnet params and overlaying our own registry
// values.
func cloneParams(p *chain.Params) *chaincfg.Params {
	cp := chaincfg.MainNetParams
	cp.Name = p.Symbol
	cp.Bech32HRPSegwit = p.Bech32HRP
	cp.PubKeyHashAddrID = p.PubKeyHashAddrID
	cp.ScriptHashAddrID = p.ScriptHashAddrID
	cp.HDPrivateKeyID = p.HDPrivateKeyID
	cp.HDPublicKeyID = p.HDPublicKeyID
	return &cp
}

// AddressFromScript derives the P2WSH address for an already-built script.
func AddressFromScript(script []byte, symbol string, network chain.Network) (string, error) {
	chainParams, err := chainParamsFor(symbol, network)
	if err != nil {
		return "", err
	}
	scriptHash := sha256.Sum256(script)
	address, err := btcutil.NewAddressWitnessScriptHash(scriptHash[:], chainParams)
	if err != nil {
		return "", fmt.Errorf("failed to create P2WSH address: %w", err)
	}
	return address.EncodeAddress(), nil
}

// ParseScript extracts the secret hash, both pubkeys, and the lock_time from
// a script built by BuildScript.
func ParseScript(script []byte) (secretHash, receiverPubKey, senderPubKey []byte, lockTime uint32, err error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_IF {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_IF")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_SHA256 {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_SHA256")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected secret hash")
	}
	secretHash = tokenizer.Data()
	if len(secretHash) != 32 {
		return nil, nil, nil, 0, fmt.Errorf("secret hash must be 32 bytes")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_EQUALVERIFY {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_EQUALVERIFY")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected receiver pubkey")
	}
	receiverPubKey = tokenizer.Data()
	if len(receiverPubKey) != 33 {
		return nil, nil, nil, 0, fmt.Errorf("receiver pubkey must be 33 bytes")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKSIG {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_CHECKSIG")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_ELSE {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_ELSE")
	}

	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected lock_time")
	}
	op := tokenizer.Opcode()
	if txscript.IsSmallInt(op) {
		lockTime = uint32(txscript.AsSmallInt(op))
	} else {
		data := tokenizer.Data()
		if len(data) == 0 {
			return nil, nil, nil, 0, fmt.Errorf("invalid lock_time: expected data push")
		}
		for i := 0; i < len(data); i++ {
			lockTime |= uint32(data[i]) << (8 * i)
		}
	}

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKLOCKTIMEVERIFY {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_CHECKLOCKTIMEVERIFY")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_DROP {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_DROP")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected sender pubkey")
	}
	senderPubKey = tokenizer.Data()
	if len(senderPubKey) != 33 {
		return nil, nil, nil, 0, fmt.Errorf("sender pubkey must be 33 bytes")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKSIG {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_CHECKSIG")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_ENDIF {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_ENDIF")
	}

	return secretHash, receiverPubKey, senderPubKey, lockTime, nil
}

// Hex returns the script as a hex string, for logging and persistence.
func (s *ScriptData) Hex() string {
	return hex.EncodeToString(s.Script)
}
