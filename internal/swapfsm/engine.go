package swapfsm

import (
	"context"
	"sync"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// Store is the durable persistence contract the engine reconciles against
// after every flag change - satisfied by internal/persistence.Store. Kept
// as a narrow local interface (rather than importing that package
// directly) so swapfsm has no dependency on the storage driver.
type Store interface {
	UpsertSwap(ctx context.Context, s *Swap) error
	GetSwap(ctx context.Context, id string) (*Swap, error)
	ListPendingSwaps(ctx context.Context) ([]*Swap, error)
}

// Event is emitted by the Engine whenever a swap's flags change.
type Event struct {
	SwapID    string
	Flags     Flag
	Type      string
	Timestamp time.Time
}

// EventHandler observes engine events. Handlers are copied out from under
// the engine's lock and each fired on its own goroutine, so a slow
// subscriber never blocks the engine.
type EventHandler func(Event)

// Engine owns the set of in-flight swaps, exclusively during
// reconciliation, and hands off the durable copy to Store after every
// mutation.
type Engine struct {
	mu sync.RWMutex

	store    Store
	swaps    map[string]*Swap
	machines map[string]*Machine
	handlers []EventHandler

	log *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine constructs an Engine backed by store.
func NewEngine(store Store) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:    store,
		swaps:    make(map[string]*Swap),
		machines: make(map[string]*Machine),
		log:      logging.GetDefault().Component("swapfsm"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnEvent registers a handler for swap flag-change events.
func (e *Engine) OnEvent(h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

func (e *Engine) emit(swapID string, flags Flag, eventType string) {
	event := Event{SwapID: swapID, Flags: flags, Type: eventType, Timestamp: time.Now()}
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()
	for _, h := range handlers {
		go h(event)
	}
}

// Register adds a newly created swap to the engine and persists it.
func (e *Engine) Register(ctx context.Context, s *Swap) (*Machine, error) {
	e.mu.Lock()
	if _, exists := e.swaps[s.ID]; exists {
		e.mu.Unlock()
		return nil, swaperrors.New(swaperrors.SwapError, "Engine.Register", errSwapExists(s.ID))
	}
	m := NewMachine(s)
	e.swaps[s.ID] = s
	e.machines[s.ID] = m
	e.mu.Unlock()

	if err := e.store.UpsertSwap(ctx, s); err != nil {
		return nil, swaperrors.New(swaperrors.InternalError, "Engine.Register", err)
	}
	e.emit(s.ID, s.Flags(), string(MilestoneCreated))
	return m, nil
}

// Machine returns the state machine for a registered swap.
func (e *Engine) Machine(swapID string) (*Machine, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.machines[swapID]
	return m, ok
}

// Get returns a registered swap by ID.
func (e *Engine) Get(swapID string) (*Swap, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.swaps[swapID]
	return s, ok
}

// Persist writes the current flag state of swapID to the store and emits
// eventType to subscribers - callers invoke this after every Machine
// mutation, so a restart never resumes from state older than the last
// observed transition.
func (e *Engine) Persist(ctx context.Context, swapID string, eventType string) error {
	e.mu.RLock()
	s, ok := e.swaps[swapID]
	e.mu.RUnlock()
	if !ok {
		return swaperrors.New(swaperrors.SwapError, "Engine.Persist", errSwapNotFound(swapID))
	}

	if err := e.store.UpsertSwap(ctx, s); err != nil {
		return swaperrors.New(swaperrors.InternalError, "Engine.Persist", err)
	}
	e.emit(swapID, s.Flags(), eventType)
	return nil
}

// Reap removes terminal swaps from the in-memory registry - the durable
// row is left in Store for history; only the live working set shrinks.
// A swap counts as terminal once its own flags hold RedeemConfirmed or
// RefundConfirmed (Swap.IsTerminal); the counter-party leg's outcome is
// not checked.
func (e *Engine) Reap() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var reaped []string
	for id, s := range e.swaps {
		if s.IsTerminal() {
			delete(e.swaps, id)
			delete(e.machines, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// Close stops background work owned by the engine.
func (e *Engine) Close() error {
	e.cancel()
	return nil
}

func errSwapExists(id string) error   { return &swapIDError{id: id, msg: "swap already registered"} }
func errSwapNotFound(id string) error { return &swapIDError{id: id, msg: "swap not found"} }

type swapIDError struct {
	id  string
	msg string
}

func (e *swapIDError) Error() string { return e.msg + ": " + e.id }
