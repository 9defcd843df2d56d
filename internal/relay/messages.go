// Package relay implements the swap message channel: the asynchronous
// SwapPayment/SwapSecret/ProofOfPossession exchange with the counter-party
// over a trusted relay.
package relay

import (
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
)

// MessageType identifies the payload carried by an Envelope.
type MessageType string

const (
	TypeSwapPayment       MessageType = "swap_payment"
	TypeSwapSecret        MessageType = "swap_secret"
	TypeProofOfPossession MessageType = "proof_of_possession"
)

// Envelope wraps every message exchanged over the relay with a unique
// message ID (google/uuid) and a discriminant Type, so a single Subscribe
// channel can carry all three payload kinds.
type Envelope struct {
	MessageID string      `json:"message_id"`
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload"`
}

// NewEnvelope wraps payload with a fresh message ID.
func NewEnvelope(t MessageType, payload interface{}) Envelope {
	return Envelope{MessageID: uuid.New().String(), Type: t, Payload: payload}
}

// SwapPayment is sent by the payer to the counter-party once its payment
// transaction has been broadcast.
type SwapPayment struct {
	SwapID       string `json:"swap_id"`
	PaymentTxID  string `json:"payment_tx_id"`
	RedeemScript []byte `json:"redeem_script,omitempty"`
}

// SwapSecret is an optional out-of-band hint carrying the redeem secret -
// on-chain reveal remains authoritative; this just saves the counter-party
// a poll cycle.
type SwapSecret struct {
	SwapID string `json:"swap_id"`
	Secret []byte `json:"secret"`
}

// ProofOfPossession is a per-address signature proving control of the key
// behind an address, verified by the relay and by the counter-party.
type ProofOfPossession struct {
	Address   string `json:"address"`
	Nonce     string `json:"nonce"`
	Signature []byte `json:"signature"`
}

// FormatPoPTimestamp renders t in the exact "yyyy.MM.dd HH:mm:ss.fff" UTC
// format the proof-of-possession signature is computed over. Go's
// reference-time layout expresses the pattern directly; this exists as
// its own function only because a manual reimplementation would silently
// drift out of interop with the relay, so the format string lives in
// exactly one place.
func FormatPoPTimestamp(t time.Time) string {
	return t.UTC().Format("2006.01.02 15:04:05.000")
}

// PoPSigningPayload builds "{nonce}{timestamp}" UTF-16LE encoded, the
// exact byte sequence a ProofOfPossession signature is computed over.
func PoPSigningPayload(nonce string, timestamp time.Time) []byte {
	s := nonce + FormatPoPTimestamp(timestamp)
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}
