// Package orchestrator drives one swap through funding, confirmation,
// counter-party observation, and claim/refund. It wires internal/txfactory,
// internal/chainwatch, internal/relay, and internal/swapfsm together behind
// two small per-chain interfaces so the same driving loop (Runner.Run) works
// whether the local leg is a UTXO-chain HTLC output or an account-model
// contract call, since the underlying protocol is symmetric between the two
// chains once each side's funding/confirmation/claim/refund primitives are
// abstracted away.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/atomicswap/htlcengine/internal/chainwatch"
)

// FundingRef identifies a broadcast HTLC funding output or contract call
// well enough to later claim or refund it. On UTXO chains TxID/Vout name the
// funding output directly; on account chains TxID carries the hex-encoded
// on-chain swap identifier and Vout is unused.
type FundingRef struct {
	TxID   string
	Vout   uint32
	Amount uint64
}

// Confirmer waits for a previously broadcast transaction or call to reach
// this engine's required confirmation depth / on-chain finality.
type Confirmer interface {
	WaitTxConfirmed(ctx context.Context, txID string) error
}

// OutgoingLeg funds, confirms, and (if needed) refunds the HTLC this party
// pays into, and watches that same HTLC for the counter-party's claim so the
// side that did not choose the secret can recover it.
type OutgoingLeg interface {
	Confirmer

	// Fund builds, signs, and broadcasts the funding transaction/call.
	Fund(ctx context.Context) (FundingRef, error)

	// Refund broadcasts the refund transaction/call once the local
	// lock_time has passed.
	Refund(ctx context.Context, ref FundingRef) (txID string, err error)

	// WaitForClaim blocks until the counter-party claims ref, returning the
	// secret preimage it revealed in doing so, or an error once deadline
	// passes without a claim.
	WaitForClaim(ctx context.Context, ref FundingRef, secretHash []byte, deadline time.Time) (secret []byte, err error)
}

// IncomingLeg observes and claims the counter-party's HTLC.
type IncomingLeg interface {
	Confirmer

	// WaitForFunding blocks until the counter-party's matching HTLC is
	// observed, or deadline passes without one appearing.
	WaitForFunding(ctx context.Context, secretHash []byte, deadline time.Time) (FundingRef, error)

	// Claim reveals secret to redeem ref.
	Claim(ctx context.Context, ref FundingRef, secret []byte) (txID string, err error)
}

// outcomeToErr turns a chainwatch.Result into a plain error, since orchestrator
// callers only need to know whether the wait succeeded.
func outcomeToErr(res chainwatch.Result) error {
	switch res.Outcome {
	case chainwatch.Success:
		return nil
	case chainwatch.Canceled:
		return res.Err
	case chainwatch.DeadlineReached:
		return fmt.Errorf("orchestrator: deadline reached: %w", res.Err)
	default:
		return fmt.Errorf("orchestrator: watch failed: %w", res.Err)
	}
}
