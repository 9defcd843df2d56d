package persistence

import (
	"context"
	"testing"

	"github.com/atomicswap/htlcengine/pkg/helpers"
)

func TestUpsertSecretRejectsEmptyHash(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertSecret(context.Background(), "swap-1", nil, nil); err == nil {
		t.Fatal("expected error for empty secret_hash")
	}
}

func TestUpsertSecretThenRevealPreservesSwapID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := []byte("0123456789abcdef0123456789abcdef")

	if err := s.UpsertSecret(ctx, "swap-1", hash, nil); err != nil {
		t.Fatalf("UpsertSecret (hash only): %v", err)
	}

	var swapID string
	if err := s.db.QueryRowContext(ctx, `SELECT swap_id FROM secrets WHERE secret_hash = ?`, helpers.BytesToHex(hash)).Scan(&swapID); err != nil {
		t.Fatalf("query swap_id: %v", err)
	}
	if swapID != "swap-1" {
		t.Fatalf("swap_id = %q, want swap-1", swapID)
	}

	secret := []byte("the-actual-secret-bytes-32-long!")
	if err := s.UpsertSecret(ctx, "swap-1", hash, secret); err != nil {
		t.Fatalf("UpsertSecret (reveal): %v", err)
	}

	var revealedAt int64
	if err := s.db.QueryRowContext(ctx, `SELECT revealed_at FROM secrets WHERE secret_hash = ?`, helpers.BytesToHex(hash)).Scan(&revealedAt); err != nil {
		t.Fatalf("query revealed_at: %v", err)
	}
	if revealedAt == 0 {
		t.Error("expected revealed_at to be set after revealing the secret")
	}
}
