package swapfsm

import (
	"testing"
	"time"
)

func newTestMachine(t *testing.T, role Role) *Machine {
	t.Helper()
	s, err := NewSwap("XTZ/BTC", Buy, 20000.0, 100000, role, "BTC", "XTZ", testSwapConfig())
	if err != nil {
		t.Fatalf("NewSwap: %v", err)
	}
	return NewMachine(s)
}

func TestPaymentBroadcastGuardAcceptorNeedsPartyPayment(t *testing.T) {
	m := newTestMachine(t, RoleAcceptor)
	m.MarkPaymentSigned()

	if err := m.MarkPaymentBroadcast("payment-tx"); err == nil {
		t.Fatal("expected acceptor broadcast to fail without HasPartyPayment")
	}

	m.MarkHasPartyPayment("party-tx")
	if err := m.MarkPaymentBroadcast("payment-tx"); err != nil {
		t.Fatalf("MarkPaymentBroadcast: %v", err)
	}
	if m.Swap.PaymentTxID != "payment-tx" {
		t.Errorf("PaymentTxID = %q, want payment-tx", m.Swap.PaymentTxID)
	}
}

func TestPaymentBroadcastInitiatorUnconditional(t *testing.T) {
	m := newTestMachine(t, RoleInitiator)
	m.MarkPaymentSigned()
	if err := m.MarkPaymentBroadcast("payment-tx"); err != nil {
		t.Fatalf("initiator MarkPaymentBroadcast: %v", err)
	}
}

func TestRedeemGuardRequiresConfirmedPartyPaymentAndDeadline(t *testing.T) {
	m := newTestMachine(t, RoleInitiator)

	if m.CanRedeem() {
		t.Fatal("CanRedeem should be false before any party payment observed")
	}

	m.MarkHasPartyPayment("party-tx")
	if err := m.MarkPartyPaymentConfirmed(); err != nil {
		t.Fatalf("MarkPartyPaymentConfirmed: %v", err)
	}
	if !m.CanRedeem() {
		t.Fatal("CanRedeem should be true once party payment is confirmed and before the deadline")
	}

	if err := m.MarkRedeemSigned(); err != nil {
		t.Fatalf("MarkRedeemSigned: %v", err)
	}
	if err := m.MarkRedeemBroadcast("redeem-tx"); err != nil {
		t.Fatalf("MarkRedeemBroadcast: %v", err)
	}
	if err := m.MarkRedeemConfirmed(); err != nil {
		t.Fatalf("MarkRedeemConfirmed: %v", err)
	}
	if !m.Swap.IsTerminal() {
		t.Error("swap should be terminal after RedeemConfirmed")
	}
}

func TestRedeemGuardExpiresAtDeadline(t *testing.T) {
	m := newTestMachine(t, RoleInitiator)
	m.MarkHasPartyPayment("party-tx")
	_ = m.MarkPartyPaymentConfirmed()

	past := m.Swap.RedeemDeadline().Add(time.Minute)
	m.WithClock(func() time.Time { return past })

	if m.CanRedeem() {
		t.Fatal("CanRedeem should be false once now is past redeem_deadline")
	}
	if err := m.MarkRedeemSigned(); err == nil {
		t.Fatal("expected MarkRedeemSigned to fail past the redeem deadline")
	}
}

func TestRefundGuardRequiresLockTimeReached(t *testing.T) {
	m := newTestMachine(t, RoleAcceptor)
	m.MarkRefundSigned()

	if err := m.MarkRefundBroadcast("refund-tx"); err == nil {
		t.Fatal("expected refund broadcast to fail before local_lock_time")
	}

	future := m.Swap.LocalLockTime().Add(time.Minute)
	m.WithClock(func() time.Time { return future })

	if err := m.MarkRefundBroadcast("refund-tx"); err != nil {
		t.Fatalf("MarkRefundBroadcast: %v", err)
	}
	if err := m.MarkRefundConfirmed(); err != nil {
		t.Fatalf("MarkRefundConfirmed: %v", err)
	}
	if !m.Swap.IsTerminal() {
		t.Error("swap should be terminal after RefundConfirmed")
	}
}

func TestRedeemAndRefundAreMutuallyExclusiveTerminals(t *testing.T) {
	m := newTestMachine(t, RoleInitiator)
	m.MarkHasPartyPayment("party-tx")
	_ = m.MarkPartyPaymentConfirmed()
	_ = m.MarkRedeemSigned()
	_ = m.MarkRedeemBroadcast("redeem-tx")
	if err := m.MarkRedeemConfirmed(); err != nil {
		t.Fatalf("MarkRedeemConfirmed: %v", err)
	}

	m.MarkRefundSigned()
	future := m.Swap.LocalLockTime().Add(time.Minute)
	m.WithClock(func() time.Time { return future })
	_ = m.MarkRefundBroadcast("refund-tx")
	if err := m.MarkRefundConfirmed(); err == nil {
		t.Fatal("expected MarkRefundConfirmed to reject a swap that already holds RedeemConfirmed")
	}
}

func TestCancelOnlyLegalBeforePaymentBroadcast(t *testing.T) {
	m := newTestMachine(t, RoleInitiator)
	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel before broadcast: %v", err)
	}

	m2 := newTestMachine(t, RoleInitiator)
	m2.MarkPaymentSigned()
	_ = m2.MarkPaymentBroadcast("payment-tx")
	if err := m2.Cancel(); err == nil {
		t.Fatal("expected Cancel to fail after PaymentBroadcast")
	}
}
