package swapfsm

import (
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

// Milestone names the canonical points along the flag lattice, for logging
// and for the enforcement guards below - the flags themselves are the
// source of truth, these are just readable labels over combinations of
// them.
type Milestone string

const (
	MilestoneCreated               Milestone = "created"
	MilestonePaymentSigned         Milestone = "payment_signed"
	MilestonePaymentBroadcast      Milestone = "payment_broadcast"
	MilestonePaymentConfirmed      Milestone = "payment_confirmed"
	MilestoneHasPartyPayment       Milestone = "has_party_payment"
	MilestonePartyPaymentConfirmed Milestone = "party_payment_confirmed"
	MilestoneRedeemBroadcast       Milestone = "redeem_broadcast"
	MilestoneRedeemConfirmed       Milestone = "redeem_confirmed"
	MilestoneRefundTimeReached     Milestone = "refund_time_reached"
	MilestoneRefundBroadcast       Milestone = "refund_broadcast"
	MilestoneRefundConfirmed       Milestone = "refund_confirmed"
)

// Clock is the time source used by transition guards, overridable in
// tests via a small function type rather than calling time.Now directly
// in logic that needs deterministic tests (see internal/nonce.Manager.now).
type Clock func() time.Time

var defaultClock Clock = time.Now

// Machine drives one Swap through its legal transitions, enforcing the
// guard table from the transition legality rules: Created->PaymentBroadcast
// requires is_initiator or has_party_payment; ->Redeem requires
// has_party_payment_confirmed and now < redeem_deadline; ->Refund requires
// now >= local_lock_time; HasSecret requires the discovered secret to hash
// to secret_hash (enforced in Swap.RevealSecret, not here).
type Machine struct {
	Swap  *Swap
	clock Clock
}

// NewMachine wraps swap in a Machine using the real wall clock.
func NewMachine(swap *Swap) *Machine {
	return &Machine{Swap: swap, clock: defaultClock}
}

// WithClock overrides the machine's time source - used by tests to force
// lock-time and redeem-deadline boundaries deterministically.
func (m *Machine) WithClock(c Clock) *Machine {
	m.clock = c
	return m
}

func (m *Machine) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock()
}

// MarkPaymentSigned sets PaymentSigned. Always legal from Created.
func (m *Machine) MarkPaymentSigned() {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StateFlags = s.StateFlags.Set(PaymentSigned)
}

// MarkPaymentBroadcast sets PaymentBroadcast and records paymentTxID,
// guarded by "is_initiator OR has_party_payment": the initiator may
// broadcast unconditionally (it pays first); the acceptor may only
// broadcast after observing the initiator's party-payment.
func (m *Machine) MarkPaymentBroadcast(paymentTxID string) error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.StateFlags.Has(PaymentSigned) {
		return swaperrors.New(swaperrors.SwapError, "MarkPaymentBroadcast", errTransition("PaymentSigned", "PaymentBroadcast"))
	}
	if s.Role != RoleInitiator && !s.StateFlags.Has(HasPartyPayment) {
		return swaperrors.New(swaperrors.SwapError, "MarkPaymentBroadcast", errGuard("is_initiator OR has_party_payment"))
	}
	s.PaymentTxID = paymentTxID
	s.StateFlags = s.StateFlags.Set(PaymentBroadcast)
	return nil
}

// MarkPaymentConfirmed sets PaymentConfirmed. Requires PaymentBroadcast
// (PaymentBroadcast implies PaymentSigned is already an invariant enforced
// by the sequencing of these calls).
func (m *Machine) MarkPaymentConfirmed() error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.StateFlags.Has(PaymentBroadcast) {
		return swaperrors.New(swaperrors.SwapError, "MarkPaymentConfirmed", errTransition("PaymentBroadcast", "PaymentConfirmed"))
	}
	s.StateFlags = s.StateFlags.Set(PaymentConfirmed)
	return nil
}

// MarkHasPartyPayment records that the counter-party's on-chain HTLC
// initiate has been observed, unblocking the acceptor's own payment.
func (m *Machine) MarkHasPartyPayment(partyPaymentTxID string) {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PartyPaymentTxID = partyPaymentTxID
	s.StateFlags = s.StateFlags.Set(HasPartyPayment)
}

// MarkPartyPaymentConfirmed records that the counter-party's payment has
// reached the required confirmation depth - this is the initiator's
// trigger to redeem.
func (m *Machine) MarkPartyPaymentConfirmed() error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.StateFlags.Has(HasPartyPayment) {
		return swaperrors.New(swaperrors.SwapError, "MarkPartyPaymentConfirmed", errTransition("HasPartyPayment", "PartyPaymentConfirmed"))
	}
	s.StateFlags = s.StateFlags.Set(PartyPaymentConfirmed)
	return nil
}

// CanRedeem reports whether redeem is currently legal: the guard is
// has_party_payment_confirmed AND now < redeem_deadline.
func (m *Machine) CanRedeem() bool {
	s := m.Swap
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.StateFlags.Has(PartyPaymentConfirmed) {
		return false
	}
	return m.now().Before(s.RedeemDeadline())
}

// MarkRedeemSigned sets RedeemSigned, enforcing the redeem guard.
func (m *Machine) MarkRedeemSigned() error {
	if !m.CanRedeem() {
		return swaperrors.New(swaperrors.SwapError, "MarkRedeemSigned", errGuard("has_party_payment_confirmed AND now < redeem_deadline"))
	}
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StateFlags = s.StateFlags.Set(RedeemSigned)
	return nil
}

// MarkRedeemBroadcast sets RedeemBroadcast. RedeemBroadcast implies
// RedeemSigned by construction (this call fails otherwise).
func (m *Machine) MarkRedeemBroadcast(redeemTxID string) error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.StateFlags.Has(RedeemSigned) {
		return swaperrors.New(swaperrors.SwapError, "MarkRedeemBroadcast", errTransition("RedeemSigned", "RedeemBroadcast"))
	}
	s.RedeemTxID = redeemTxID
	s.StateFlags = s.StateFlags.Set(RedeemBroadcast)
	return nil
}

// MarkRedeemConfirmed sets RedeemConfirmed - a terminal, successful
// outcome for this leg.
func (m *Machine) MarkRedeemConfirmed() error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.StateFlags.Has(RedeemBroadcast) {
		return swaperrors.New(swaperrors.SwapError, "MarkRedeemConfirmed", errTransition("RedeemBroadcast", "RedeemConfirmed"))
	}
	if s.StateFlags.Has(RefundConfirmed) {
		return swaperrors.New(swaperrors.SwapError, "MarkRedeemConfirmed", errGuard("swap already has RefundConfirmed - a leg cannot hold both terminal outcomes"))
	}
	s.StateFlags = s.StateFlags.Set(RedeemConfirmed)
	return nil
}

// CanRefund reports whether refund is currently legal: now >=
// local_lock_time.
func (m *Machine) CanRefund() bool {
	s := m.Swap
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !m.now().Before(s.LocalLockTime())
}

// MarkRefundTimeReached is a pure observation (no flag of its own in the
// bit-set - RefundTimeReached is a milestone label over "CanRefund() ==
// true", sitting between PaymentConfirmed/HasPartyPayment and
// RefundBroadcast without being one of the tracked state_flags bits).
func (m *Machine) MarkRefundTimeReached() bool {
	return m.CanRefund()
}

// MarkRefundSigned sets RefundSigned. The refund transaction is not
// pre-signed at payment time: it is built and signed only when it is
// broadcast (UTXOOutgoingLeg.Refund via internal/txfactory.BuildAndSignRefundTx,
// reached from the runner's forceBroadcastRefund). The runner sets this
// flag when it falls back to refund, before waiting out lock_time;
// broadcast is what's gated by the timelock.
func (m *Machine) MarkRefundSigned() {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StateFlags = s.StateFlags.Set(RefundSigned)
}

// MarkRefundBroadcast sets RefundBroadcast, guarded by now >=
// local_lock_time and RefundSigned.
func (m *Machine) MarkRefundBroadcast(refundTxID string) error {
	if !m.CanRefund() {
		return swaperrors.New(swaperrors.SwapError, "MarkRefundBroadcast", errGuard("now >= local_lock_time"))
	}
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.StateFlags.Has(RefundSigned) {
		return swaperrors.New(swaperrors.SwapError, "MarkRefundBroadcast", errTransition("RefundSigned", "RefundBroadcast"))
	}
	s.RefundTxID = refundTxID
	s.StateFlags = s.StateFlags.Set(RefundBroadcast)
	return nil
}

// MarkRefundConfirmed sets RefundConfirmed - a terminal, refund outcome
// for this leg.
func (m *Machine) MarkRefundConfirmed() error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.StateFlags.Has(RefundBroadcast) {
		return swaperrors.New(swaperrors.SwapError, "MarkRefundConfirmed", errTransition("RefundBroadcast", "RefundConfirmed"))
	}
	if s.StateFlags.Has(RedeemConfirmed) {
		return swaperrors.New(swaperrors.SwapError, "MarkRefundConfirmed", errGuard("swap already has RedeemConfirmed - a leg cannot hold both terminal outcomes"))
	}
	s.StateFlags = s.StateFlags.Set(RefundConfirmed)
	return nil
}

// Cancel sets Canceled - only legal before any payment has been
// broadcast, matching Created's only other exit besides the payment path.
func (m *Machine) Cancel() error {
	s := m.Swap
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StateFlags.Has(PaymentBroadcast) {
		return swaperrors.New(swaperrors.SwapError, "Cancel", errGuard("cannot cancel after PaymentBroadcast"))
	}
	s.StateFlags = s.StateFlags.Set(Canceled)
	return nil
}

func errTransition(from, to string) error {
	return &transitionError{from: from, to: to}
}

type transitionError struct{ from, to string }

func (e *transitionError) Error() string {
	return "swapfsm: cannot reach " + e.to + " without " + e.from
}

func errGuard(guard string) error {
	return &guardError{guard: guard}
}

type guardError struct{ guard string }

func (e *guardError) Error() string {
	return "swapfsm: guard not satisfied: " + e.guard
}
