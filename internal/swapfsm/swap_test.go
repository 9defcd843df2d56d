package swapfsm

import (
	"testing"
	"time"

	"github.com/atomicswap/htlcengine/internal/config"
)

func testSwapConfig() config.SwapConfig {
	return config.SwapConfig{
		InitiatorLockTime:   48 * time.Hour,
		ResponderLockTime:   24 * time.Hour,
		MinLockTimeDelta:    12 * time.Hour,
		RedeemReserve:       2 * time.Hour,
		ForceRefundInterval: 5 * time.Minute,
	}
}

func TestNewSwapGeneratesUniqueIDs(t *testing.T) {
	a, err := NewSwap("XTZ/BTC", Buy, 20000.0, 100000, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	if err != nil {
		t.Fatalf("NewSwap: %v", err)
	}
	b, err := NewSwap("XTZ/BTC", Buy, 20000.0, 100000, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	if err != nil {
		t.Fatalf("NewSwap: %v", err)
	}
	if a.ID == b.ID {
		t.Error("expected distinct swap IDs")
	}
}

func TestGenerateSecretOnlyInitiator(t *testing.T) {
	initiator, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	if err := initiator.GenerateSecret(); err != nil {
		t.Fatalf("initiator.GenerateSecret: %v", err)
	}
	if len(initiator.Secret) != 32 || len(initiator.SecretHash) != 32 {
		t.Fatalf("expected 32-byte secret and hash, got %d/%d", len(initiator.Secret), len(initiator.SecretHash))
	}

	acceptor, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleAcceptor, "BTC", "XTZ", testSwapConfig())
	if err := acceptor.GenerateSecret(); err == nil {
		t.Error("expected acceptor.GenerateSecret to fail")
	}
}

func TestRevealSecretRejectsMismatch(t *testing.T) {
	s, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleAcceptor, "BTC", "XTZ", testSwapConfig())
	secret := []byte("0123456789abcdef0123456789abcde")
	s.SetSecretHash(HashSecret(secret))

	if err := s.RevealSecret([]byte("not-the-right-secret-32-bytes!!!")); err == nil {
		t.Fatal("expected mismatch error")
	}
	if s.Flags().Has(HasSecret) {
		t.Error("HasSecret must not be set on a mismatched reveal")
	}

	if err := s.RevealSecret(secret); err != nil {
		t.Fatalf("RevealSecret: %v", err)
	}
	if !s.Flags().Has(HasSecret) {
		t.Error("HasSecret must be set after a matching reveal")
	}
}

func TestLockTimeAsymmetry(t *testing.T) {
	cfg := testSwapConfig()
	initiator, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleInitiator, "BTC", "XTZ", cfg)
	acceptor, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleAcceptor, "BTC", "XTZ", cfg)
	acceptor.Timestamp = initiator.Timestamp

	if !initiator.LocalLockTime().After(acceptor.LocalLockTime()) {
		t.Error("initiator lock time must be strictly after acceptor's, per T_init > T_acc")
	}
}

func TestFlagsAreMonotonic(t *testing.T) {
	var f Flag
	f = f.Set(PaymentSigned)
	f = f.Set(PaymentBroadcast)
	if !f.Has(PaymentSigned) || !f.Has(PaymentBroadcast) {
		t.Fatal("expected both flags set")
	}
	if f.Has(RedeemConfirmed) {
		t.Error("unset flag reported as set")
	}
}

func TestFlagStringCreated(t *testing.T) {
	var f Flag
	if f.String() != "Created" {
		t.Errorf("String() = %q, want %q", f.String(), "Created")
	}
}
