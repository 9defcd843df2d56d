// Package swapfsm implements the atomic swap data model and state machine:
// the Swap record, its monotonically-additive state flags, and the legal
// transition table between them.
package swapfsm

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/atomicswap/htlcengine/internal/config"
	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

// Role is which side of the swap the local engine plays.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleAcceptor  Role = "acceptor"
)

// Side is which leg of a symbol a party is trading.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side - the redeemer of a payment always
// receives the purchased side, never the sold side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Flag is one bit of Swap.StateFlags. Flags are only ever set, never
// cleared - the flag set is a monotonically growing record of history.
type Flag uint32

const (
	PaymentSigned Flag = 1 << iota
	PaymentBroadcast
	PaymentConfirmed
	HasPartyPayment
	PartyPaymentConfirmed
	RedeemSigned
	RedeemBroadcast
	RedeemConfirmed
	RefundSigned
	RefundBroadcast
	RefundConfirmed
	HasSecret
	Canceled
)

// Set marks flag f in fs, returning the updated set.
func (fs Flag) Set(f Flag) Flag { return fs | f }

// Has reports whether f is present in fs.
func (fs Flag) Has(f Flag) bool { return fs&f != 0 }

// String renders the flags present in fs, most-significant first, for logs.
func (fs Flag) String() string {
	names := []struct {
		f Flag
		s string
	}{
		{Canceled, "Canceled"},
		{HasSecret, "HasSecret"},
		{RefundConfirmed, "RefundConfirmed"},
		{RefundBroadcast, "RefundBroadcast"},
		{RefundSigned, "RefundSigned"},
		{RedeemConfirmed, "RedeemConfirmed"},
		{RedeemBroadcast, "RedeemBroadcast"},
		{RedeemSigned, "RedeemSigned"},
		{PartyPaymentConfirmed, "PartyPaymentConfirmed"},
		{HasPartyPayment, "HasPartyPayment"},
		{PaymentConfirmed, "PaymentConfirmed"},
		{PaymentBroadcast, "PaymentBroadcast"},
		{PaymentSigned, "PaymentSigned"},
	}
	if fs == 0 {
		return "Created"
	}
	out := ""
	for _, n := range names {
		if fs.Has(n.f) {
			if out != "" {
				out += "|"
			}
			out += n.s
		}
	}
	return out
}

// Swap is one atomic-swap protocol instance, tracked through a
// monotonically-additive state_flags bit-set rather than a linear state
// enum, so independently-observed milestones (e.g. "our payment
// confirmed" and "counter-party's payment confirmed") can be set without
// forcing an artificial ordering between them.
type Swap struct {
	mu sync.RWMutex

	ID     string
	Symbol string
	Side   Side
	Price  float64
	Qty    uint64

	SoldCurrency      string
	PurchasedCurrency string

	Role Role

	Secret     []byte
	SecretHash []byte

	Timestamp time.Time

	PartyAddress string
	ToAddress    string

	PaymentTxID      string
	PartyPaymentTxID string
	RefundTxID       string
	RedeemTxID       string

	RedeemScript      []byte
	PartyRedeemScript []byte

	StateFlags Flag

	swapCfg config.SwapConfig
}

// NewSwap constructs a Created swap. sold/purchased are derived from side:
// a Buy of Symbol "A/B" sells B and purchases A.
func NewSwap(symbol string, side Side, price float64, qty uint64, role Role, soldCurrency, purchasedCurrency string, swapCfg config.SwapConfig) (*Swap, error) {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "NewSwap", err)
	}

	return &Swap{
		ID:                fmt.Sprintf("%x", idBytes),
		Symbol:            symbol,
		Side:              side,
		Price:             price,
		Qty:               qty,
		SoldCurrency:      soldCurrency,
		PurchasedCurrency: purchasedCurrency,
		Role:              role,
		Timestamp:         time.Now().UTC().Truncate(time.Second),
		swapCfg:           swapCfg,
	}, nil
}

// GenerateSecret creates the 32-byte secret and its hash. Only the
// initiator ever calls this - the acceptor learns secret_hash at match
// time and secret only on reveal.
func (s *Swap) GenerateSecret() error {
	if s.Role != RoleInitiator {
		return swaperrors.New(swaperrors.SwapError, "GenerateSecret", fmt.Errorf("only the initiator generates a secret"))
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return swaperrors.New(swaperrors.InternalError, "GenerateSecret", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Secret = secret
	s.SecretHash = HashSecret(secret)
	return nil
}

// HashSecret computes SHA-256(secret).
func HashSecret(secret []byte) []byte {
	h := sha256.Sum256(secret)
	return h[:]
}

// SetSecretHash records secret_hash at match time (both parties learn it
// then; only the initiator additionally holds secret until reveal).
func (s *Swap) SetSecretHash(hash []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SecretHash = append([]byte(nil), hash...)
}

// RevealSecret records a discovered secret, verifying it against
// secret_hash first. Sets HasSecret only if the hash matches - the
// invariant "HasSecret set => discovered secret SHA256 == secret_hash"
// is enforced here, not left to callers.
func (s *Swap) RevealSecret(secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.SecretHash) == 0 {
		return swaperrors.New(swaperrors.SwapError, "RevealSecret", fmt.Errorf("secret_hash not set"))
	}
	if !verifySecret(secret, s.SecretHash) {
		return swaperrors.New(swaperrors.SwapError, "RevealSecret", fmt.Errorf("secret does not match secret_hash"))
	}
	s.Secret = append([]byte(nil), secret...)
	s.StateFlags = s.StateFlags.Set(HasSecret)
	return nil
}

func verifySecret(secret, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	got := HashSecret(secret)
	if len(got) != len(hash) {
		return false
	}
	for i := range got {
		if got[i] != hash[i] {
			return false
		}
	}
	return true
}

// Flags returns the current state flag set.
func (s *Swap) Flags() Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StateFlags
}

// LocalLockTime returns this party's absolute payment lock-time:
// timestamp + T_init for the initiator, timestamp + T_acc for the
// acceptor. T_init > T_acc is enforced by config.SwapConfig.Validate.
func (s *Swap) LocalLockTime() time.Time {
	if s.Role == RoleInitiator {
		return s.Timestamp.Add(s.swapCfg.InitiatorLockTime)
	}
	return s.Timestamp.Add(s.swapCfg.ResponderLockTime)
}

// RedeemDeadline is timestamp + T_acc - redeem_reserve: the initiator will
// not broadcast a redeem after this point - past it, funds flow via the
// counter-party's refund path instead.
func (s *Swap) RedeemDeadline() time.Time {
	return s.Timestamp.Add(s.swapCfg.ResponderLockTime).Add(-s.swapCfg.RedeemReserve)
}

// ForceRefundInterval is the re-broadcast interval a stuck refund
// transaction should be retried at until it is accepted.
func (s *Swap) ForceRefundInterval() time.Duration {
	return s.swapCfg.ForceRefundInterval
}

// IsTerminal reports whether the swap has reached one of the two mutually
// exclusive terminal outcomes: redeemed or refunded.
func (s *Swap) IsTerminal() bool {
	f := s.Flags()
	return f.Has(RedeemConfirmed) || f.Has(RefundConfirmed)
}

// Record is the flat, storage-shaped projection of a Swap - every
// exported field except the config it was built with. A persistence
// layer round-trips swaps through Record rather than reaching into Swap's
// unexported mutex and config directly.
type Record struct {
	ID     string
	Symbol string
	Side   Side
	Price  float64
	Qty    uint64

	SoldCurrency      string
	PurchasedCurrency string

	Role Role

	Secret     []byte
	SecretHash []byte

	Timestamp time.Time

	PartyAddress string
	ToAddress    string

	PaymentTxID      string
	PartyPaymentTxID string
	RefundTxID       string
	RedeemTxID       string

	RedeemScript      []byte
	PartyRedeemScript []byte

	StateFlags Flag
}

// ToRecord snapshots s into a Record under read lock.
func (s *Swap) ToRecord() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Record{
		ID:                s.ID,
		Symbol:            s.Symbol,
		Side:              s.Side,
		Price:             s.Price,
		Qty:               s.Qty,
		SoldCurrency:      s.SoldCurrency,
		PurchasedCurrency: s.PurchasedCurrency,
		Role:              s.Role,
		Secret:            s.Secret,
		SecretHash:        s.SecretHash,
		Timestamp:         s.Timestamp,
		PartyAddress:      s.PartyAddress,
		ToAddress:         s.ToAddress,
		PaymentTxID:       s.PaymentTxID,
		PartyPaymentTxID:  s.PartyPaymentTxID,
		RefundTxID:        s.RefundTxID,
		RedeemTxID:        s.RedeemTxID,
		RedeemScript:      s.RedeemScript,
		PartyRedeemScript: s.PartyRedeemScript,
		StateFlags:        s.StateFlags,
	}
}

// RestoreSwap rebuilds a Swap from a persisted Record, re-attaching the
// timing configuration a freshly loaded record has no way to carry on the
// wire. Used by a persistence layer on startup recovery, never by
// protocol code.
func RestoreSwap(rec Record, swapCfg config.SwapConfig) *Swap {
	return &Swap{
		ID:                rec.ID,
		Symbol:            rec.Symbol,
		Side:              rec.Side,
		Price:             rec.Price,
		Qty:               rec.Qty,
		SoldCurrency:      rec.SoldCurrency,
		PurchasedCurrency: rec.PurchasedCurrency,
		Role:              rec.Role,
		Secret:            rec.Secret,
		SecretHash:        rec.SecretHash,
		Timestamp:         rec.Timestamp,
		PartyAddress:      rec.PartyAddress,
		ToAddress:         rec.ToAddress,
		PaymentTxID:       rec.PaymentTxID,
		PartyPaymentTxID:  rec.PartyPaymentTxID,
		RefundTxID:        rec.RefundTxID,
		RedeemTxID:        rec.RedeemTxID,
		RedeemScript:      rec.RedeemScript,
		PartyRedeemScript: rec.PartyRedeemScript,
		StateFlags:        rec.StateFlags,
		swapCfg:           swapCfg,
	}
}
