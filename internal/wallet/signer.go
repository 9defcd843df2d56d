// Package wallet's signing surface. Key custody itself is out of scope
// for the swap engine - this file defines only the interface transaction
// builders sign against, generalized so a caller can plug in any
// key-management backend (HSM, hardware wallet, in-memory dev key) behind
// the same shape.
package wallet

import "github.com/btcsuite/btcd/btcec/v2"

// UTXOSigner signs a BIP-143 witness sighash for a UTXO-chain input.
type UTXOSigner interface {
	// PublicKey returns the compressed public key that will appear in the
	// HTLC script for this signer.
	PublicKey() *btcec.PublicKey

	// SignHash returns a DER-encoded ECDSA signature over sighash.
	SignHash(sighash []byte) ([]byte, error)
}

// AccountSigner signs a transaction hash for an account-model chain.
type AccountSigner interface {
	// Address returns the signer's checksum address.
	Address() string

	// SignHash returns a 65-byte (r || s || v) recoverable signature over
	// hash, matching go-ethereum's crypto.Sign output shape.
	SignHash(hash []byte) ([]byte, error)
}
