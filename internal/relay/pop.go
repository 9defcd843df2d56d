package relay

import (
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

// AddressVerifier checks that signature over message was produced by the
// key controlling address - chain-specific (ECDSA recovery differs
// between Bitcoin-family and account-model chains), so this package stays
// agnostic and delegates to a caller-supplied implementation, the same
// separation internal/wallet.UTXOSigner/AccountSigner draw around
// signing.
type AddressVerifier interface {
	Verify(address string, message, signature []byte) (bool, error)
}

// BuildProofOfPossession signs "{nonce}{timestamp}" (UTF-16LE) for address
// via signHash, producing the wire message.
func BuildProofOfPossession(address, nonce string, timestamp time.Time, signHash func([]byte) ([]byte, error)) (ProofOfPossession, error) {
	payload := PoPSigningPayload(nonce, timestamp)
	sig, err := signHash(payload)
	if err != nil {
		return ProofOfPossession{}, swaperrors.New(swaperrors.InvalidSigns, "BuildProofOfPossession", err)
	}
	return ProofOfPossession{Address: address, Nonce: nonce, Signature: sig}, nil
}

// VerifyProofOfPossession checks pop's signature over "{nonce}{timestamp}"
// against pop.Address via verifier. Fails with swaperrors.InvalidSigns if
// the address-to-key check or the signature check fails.
func VerifyProofOfPossession(pop ProofOfPossession, timestamp time.Time, verifier AddressVerifier) error {
	payload := PoPSigningPayload(pop.Nonce, timestamp)
	ok, err := verifier.Verify(pop.Address, payload, pop.Signature)
	if err != nil {
		return swaperrors.New(swaperrors.InvalidSigns, "VerifyProofOfPossession", err)
	}
	if !ok {
		return swaperrors.Sentinel(swaperrors.InvalidSigns)
	}
	return nil
}
