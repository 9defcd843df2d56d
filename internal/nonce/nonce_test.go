package nonce

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stubClient struct {
	mu    sync.Mutex
	count uint64
	calls int
}

func (s *stubClient) TransactionCount(ctx context.Context, address string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.count, nil
}

func TestGetNonceIncrementsWithoutFreshRead(t *testing.T) {
	client := &stubClient{count: 5}
	m := New(client)

	first, err := m.GetNonce(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("GetNonce: %v", err)
	}
	if first != 5 {
		t.Fatalf("first nonce = %d, want 5", first)
	}

	// on-chain count still reports 5 (not yet mined), but the cache should
	// hand out a strictly increasing value from its own bookkeeping.
	second, err := m.GetNonce(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("GetNonce: %v", err)
	}
	if second != 6 {
		t.Fatalf("second nonce = %d, want 6", second)
	}
}

func TestGetNonceDistinctAddressesIndependent(t *testing.T) {
	client := &stubClient{count: 0}
	m := New(client)

	a, _ := m.GetNonce(context.Background(), "addr1")
	b, _ := m.GetNonce(context.Background(), "addr2")

	if a != 0 || b != 0 {
		t.Fatalf("expected independent counters, got a=%d b=%d", a, b)
	}
}

func TestGetNonceConcurrentCallsAreDistinct(t *testing.T) {
	client := &stubClient{count: 0}
	m := New(client)

	const n = 50
	results := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := m.GetNonce(context.Background(), "addr1")
			if err != nil {
				t.Errorf("GetNonce: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, v := range results {
		if seen[v] {
			t.Fatalf("nonce %d handed out more than once", v)
		}
		seen[v] = true
	}
}

func TestGetNonceStaleEntryFallsBackToOnChain(t *testing.T) {
	client := &stubClient{count: 3}
	m := New(client)
	m.now = func() time.Time { return time.Unix(0, 0) }

	first, _ := m.GetNonce(context.Background(), "addr1")
	if first != 3 {
		t.Fatalf("first = %d, want 3", first)
	}

	// simulate TTL expiry and the chain having advanced meanwhile.
	m.now = func() time.Time { return time.Unix(0, 0).Add(TTL + time.Second) }
	client.count = 10

	next, _ := m.GetNonce(context.Background(), "addr1")
	if next != 10 {
		t.Fatalf("next = %d, want 10 (fresh on-chain read after TTL expiry)", next)
	}
}

func TestInvalidateForcesOnChainTrust(t *testing.T) {
	client := &stubClient{count: 1}
	m := New(client)

	m.GetNonce(context.Background(), "addr1")
	m.Invalidate("addr1")

	if _, ok := m.Peek("addr1"); ok {
		t.Fatal("expected Peek to report no cached entry after Invalidate")
	}
}
