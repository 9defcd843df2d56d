// Package chainwatch implements the bounded, cancellable, idempotent chain
// watchers a swap needs: confirmation, UTXO-spend, counter-party refund,
// counter-party payment, and counter-party secret-reveal. Each watcher is
// a standalone, reusable ticker-driven polling loop that reports through a
// single Result type rather than being coupled to a specific coordinator.
package chainwatch

import (
	"context"
	"time"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// Outcome is the terminal state a watcher reports exactly once.
type Outcome string

const (
	Success         Outcome = "success"
	DeadlineReached Outcome = "deadline_reached"
	Canceled        Outcome = "canceled"
	FatalError      Outcome = "fatal_error"
)

// Result is what every watcher sends on its result channel exactly once.
type Result struct {
	Outcome Outcome
	Data    any
	Err     error
}

// Params bounds every watcher: how often to poll, how many attempts to make,
// and the absolute deadline past which the watcher gives up even if
// attempts remain.
type Params struct {
	Interval    time.Duration
	MaxAttempts int
	Deadline    time.Time
}

// pollLoop runs check every p.Interval, up to p.MaxAttempts times or until
// p.Deadline/ctx cancellation, treating errors satisfying
// swaperrors.IsTransient as retryable and anything else as fatal. check
// returns (data, done, err); done=true with err=nil signals success.
func pollLoop(ctx context.Context, p Params, log *logging.Logger, check func(ctx context.Context) (any, bool, error)) Result {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return Result{Outcome: Canceled, Err: ctx.Err()}
		case <-ticker.C:
			if !p.Deadline.IsZero() && time.Now().After(p.Deadline) {
				return Result{Outcome: DeadlineReached}
			}

			attempts++
			data, done, err := check(ctx)
			if err != nil {
				if swaperrors.IsTransient(err) {
					log.Debug("transient watcher error, retrying", "attempt", attempts, "error", err)
					if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
						return Result{Outcome: DeadlineReached, Err: err}
					}
					continue
				}
				return Result{Outcome: FatalError, Err: err}
			}
			if done {
				return Result{Outcome: Success, Data: data}
			}
			if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
				return Result{Outcome: DeadlineReached}
			}
		}
	}
}
