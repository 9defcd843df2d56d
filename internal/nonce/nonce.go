// Package nonce implements the process-wide per-address nonce cache for
// account-model chains, following the general mutex-guarded map idiom
// used elsewhere in the engine for shared in-memory state.
package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
)

// TTL is how long a cached nonce entry stays authoritative without a fresh
// on-chain read backing it.
const TTL = 180 * time.Second

// Entry is a cached (value, last_updated_utc) pair.
type Entry struct {
	Value         uint64
	LastUpdatedAt time.Time
}

func (e Entry) fresh(now time.Time) bool {
	return now.Sub(e.LastUpdatedAt) < TTL
}

// ChainClient is the minimal account-chain read the nonce manager needs.
// internal/contracts/htlc.NonceSource adapts an ethclient's PendingNonceAt
// to this interface.
type ChainClient interface {
	TransactionCount(ctx context.Context, address string) (uint64, error)
}

// Manager is the process-wide address -> Entry cache. Tests inject a fresh
// instance per case rather than sharing a package-level singleton, so
// cases can't leak cached nonces into each other.
type Manager struct {
	client ChainClient

	mu      sync.Mutex
	entries map[string]Entry

	now func() time.Time
}

// New constructs a Manager backed by client.
func New(client ChainClient) *Manager {
	return &Manager{
		client:  client,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// GetNonce returns the next nonce to use for address:
//
//  1. fetch on-chain transaction_count(address) -> N (outside the lock -
//     concurrent RPC calls for different, or even the same, address are
//     allowed to race; only the cache read/update below is serialized).
//  2. under the lock: if a fresh cached entry has value >= N, return it and
//     post-increment; else install (N+1, now) and return N.
//
// Any two concurrent calls for the same address return distinct, strictly
// increasing nonces.
func (m *Manager) GetNonce(ctx context.Context, address string) (uint64, error) {
	n, err := m.client.TransactionCount(ctx, address)
	if err != nil {
		return 0, swaperrors.New(swaperrors.RequestError, "GetNonce", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cached, ok := m.entries[address]
	if ok && cached.fresh(now) && cached.Value >= n {
		next := cached.Value
		m.entries[address] = Entry{Value: next + 1, LastUpdatedAt: now}
		return next, nil
	}

	m.entries[address] = Entry{Value: n + 1, LastUpdatedAt: now}
	return n, nil
}

// Peek returns the cached entry for address without touching the chain, for
// diagnostics and tests.
func (m *Manager) Peek(address string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[address]
	return e, ok
}

// Len returns the number of addresses currently cached, for diagnostics.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Invalidate drops the cached entry for address, forcing the next GetNonce
// call to trust the fresh on-chain read even if it appears to regress
// (useful after a detected broadcast failure that never actually consumed
// the nonce).
func (m *Manager) Invalidate(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, address)
}
