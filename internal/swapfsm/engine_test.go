package swapfsm

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu    sync.Mutex
	swaps map[string]*Swap
}

func newMemStore() *memStore { return &memStore{swaps: make(map[string]*Swap)} }

func (m *memStore) UpsertSwap(ctx context.Context, s *Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps[s.ID] = s
	return nil
}

func (m *memStore) GetSwap(ctx context.Context, id string) (*Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swaps[id]
	if !ok {
		return nil, errSwapNotFound(id)
	}
	return s, nil
}

func (m *memStore) ListPendingSwaps(ctx context.Context) ([]*Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Swap
	for _, s := range m.swaps {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestEngineRegisterPersistsAndEmits(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	defer e.Close()

	eventCh := make(chan Event, 10)
	e.OnEvent(func(ev Event) { eventCh <- ev })

	s, err := NewSwap("XTZ/BTC", Buy, 20000.0, 100000, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	if err != nil {
		t.Fatalf("NewSwap: %v", err)
	}

	if _, err := e.Register(context.Background(), s); err != nil {
		t.Fatalf("Register: %v", err)
	}

	select {
	case ev := <-eventCh:
		if ev.SwapID != s.ID {
			t.Errorf("event SwapID = %q, want %q", ev.SwapID, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Created event")
	}

	if _, err := store.GetSwap(context.Background(), s.ID); err != nil {
		t.Fatalf("expected swap persisted, got %v", err)
	}

	if _, err := e.Register(context.Background(), s); err == nil {
		t.Fatal("expected duplicate Register to fail")
	}
}

func TestEnginePersistReflectsFlagChanges(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	defer e.Close()

	s, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	m, err := e.Register(context.Background(), s)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.MarkPaymentSigned()
	if err := e.Persist(context.Background(), s.ID, string(MilestonePaymentSigned)); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := store.GetSwap(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetSwap: %v", err)
	}
	if !stored.Flags().Has(PaymentSigned) {
		t.Error("expected persisted swap to reflect PaymentSigned")
	}
}

func TestEngineReapRemovesOnlyTerminalSwaps(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	defer e.Close()

	active, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	done, _ := NewSwap("XTZ/BTC", Buy, 1, 1, RoleInitiator, "BTC", "XTZ", testSwapConfig())
	done.StateFlags = done.StateFlags.Set(RefundBroadcast).Set(RefundConfirmed)

	if _, err := e.Register(context.Background(), active); err != nil {
		t.Fatalf("Register active: %v", err)
	}
	if _, err := e.Register(context.Background(), done); err != nil {
		t.Fatalf("Register done: %v", err)
	}

	reaped := e.Reap()
	if len(reaped) != 1 || reaped[0] != done.ID {
		t.Fatalf("Reap() = %v, want only %q", reaped, done.ID)
	}

	if _, ok := e.Get(active.ID); !ok {
		t.Error("active swap should remain registered")
	}
	if _, ok := e.Get(done.ID); ok {
		t.Error("terminal swap should have been reaped")
	}
}
