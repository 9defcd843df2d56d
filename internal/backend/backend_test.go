package backend

import (
	"context"
	"testing"
)

func TestFixtureRoundTrip(t *testing.T) {
	f := NewFixture()
	ctx := context.Background()

	if err := f.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !f.IsConnected() {
		t.Fatal("expected fixture to report connected")
	}

	f.SetBlockHeight(100)
	h, err := f.GetBlockHeight(ctx)
	if err != nil || h != 100 {
		t.Fatalf("GetBlockHeight() = %d, %v; want 100, nil", h, err)
	}

	tx := &Transaction{TxID: "abc", Confirmations: 3, Confirmed: true}
	f.SetTransaction(tx)

	got, err := f.GetTransaction(ctx, "abc")
	if err != nil || got == nil || got.TxID != "abc" {
		t.Fatalf("GetTransaction() = %+v, %v", got, err)
	}

	missing, err := f.GetTransaction(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("GetTransaction(missing) should not error: %v", err)
	}
	if missing != nil {
		t.Fatal("GetTransaction(missing) should return nil, nil (transient NotFound)")
	}

	txID, err := f.BroadcastTransaction(ctx, "deadbeef")
	if err != nil || txID != "deadbeef" {
		t.Fatalf("BroadcastTransaction() = %s, %v", txID, err)
	}
	if len(f.Broadcasts()) != 1 {
		t.Fatalf("expected 1 broadcast recorded, got %d", len(f.Broadcasts()))
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	f := NewFixture()
	r.Register("BTC", f)

	got, ok := r.Get("BTC")
	if !ok || got != f {
		t.Fatal("expected registered fixture to be returned for BTC")
	}

	if _, ok := r.Get("ETH"); ok {
		t.Fatal("expected ETH to be unregistered")
	}

	if len(r.List()) != 1 {
		t.Fatalf("expected 1 registered backend, got %d", len(r.List()))
	}
}

var _ Backend = (*Fixture)(nil)
