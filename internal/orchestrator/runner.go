package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/atomicswap/htlcengine/internal/relay"
	"github.com/atomicswap/htlcengine/internal/swapfsm"
	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// Runner drives one registered swap through its full lifecycle: fund own
// leg, confirm it, observe and confirm the counter-party's leg, then either
// claim (revealing or discovering the secret as needed) or fall back to
// refund past the local lock_time. The same Runner works for both
// RoleInitiator and RoleAcceptor - the asymmetry between them is already
// encoded in Machine's transition guards (MarkPaymentBroadcast in
// particular), not in this loop.
type Runner struct {
	Engine  *swapfsm.Engine
	Machine *swapfsm.Machine
	Swap    *swapfsm.Swap
	Out     OutgoingLeg
	In      IncomingLeg
	Relay   *relay.Channel // optional; nil disables counter-party hints over relay

	log *logging.Logger
}

// NewRunner constructs a Runner for an already-registered swap.
func NewRunner(engine *swapfsm.Engine, m *swapfsm.Machine, s *swapfsm.Swap, out OutgoingLeg, in IncomingLeg, ch *relay.Channel) *Runner {
	return &Runner{
		Engine:  engine,
		Machine: m,
		Swap:    s,
		Out:     out,
		In:      in,
		Relay:   ch,
		log:     logging.GetDefault().Component("orchestrator").With("swap_id", s.ID),
	}
}

// Run drives the swap to a terminal outcome, or returns an error if ctx is
// canceled first. Every step is idempotent against the swap's persisted
// flags, so Run can safely resume a swap recovered from storage after a
// restart.
func (r *Runner) Run(ctx context.Context) error {
	ownRef, err := r.ensureOwnPayment(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: own payment: %w", err)
	}

	partyRef, err := r.ensurePartyPayment(ctx)
	if err != nil {
		r.log.Warn("counter-party payment not observed", "error", err)
		return r.attemptRefund(ctx, ownRef, err)
	}

	s := r.Swap
	if len(s.Secret) > 0 {
		return r.claim(ctx, ownRef, partyRef, s.Secret)
	}

	secret, err := r.Out.WaitForClaim(ctx, ownRef, s.SecretHash, s.RedeemDeadline())
	if err != nil {
		r.log.Warn("counter-party never claimed", "error", err)
		return r.attemptRefund(ctx, ownRef, err)
	}
	if err := s.RevealSecret(secret); err != nil {
		return fmt.Errorf("orchestrator: revealed secret failed verification: %w", err)
	}
	if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneHasPartyPayment)); err != nil {
		r.log.Error("persist after secret reveal", "error", err)
	}
	return r.claim(ctx, ownRef, partyRef, secret)
}

// ensureOwnPayment funds and confirms this party's own HTLC, resuming from
// whatever the swap's persisted flags already reflect.
func (r *Runner) ensureOwnPayment(ctx context.Context) (FundingRef, error) {
	s, m := r.Swap, r.Machine

	if s.PaymentTxID == "" {
		m.MarkPaymentSigned()

		ref, err := r.Out.Fund(ctx)
		if err != nil {
			return FundingRef{}, err
		}
		if err := m.MarkPaymentBroadcast(ref.TxID); err != nil {
			return FundingRef{}, err
		}
		if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestonePaymentBroadcast)); err != nil {
			return FundingRef{}, err
		}
		if r.Relay != nil {
			if err := r.Relay.SendPayment(ctx, relay.SwapPayment{SwapID: s.ID, PaymentTxID: ref.TxID, RedeemScript: s.RedeemScript}); err != nil {
				r.log.Warn("send payment envelope", "error", err)
			}
		}
	}

	ref := FundingRef{TxID: s.PaymentTxID}

	if !s.Flags().Has(swapfsm.PaymentConfirmed) {
		if err := r.Out.WaitTxConfirmed(ctx, ref.TxID); err != nil {
			return ref, err
		}
		if err := m.MarkPaymentConfirmed(); err != nil {
			return ref, err
		}
		if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestonePaymentConfirmed)); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

// ensurePartyPayment observes and confirms the counter-party's HTLC.
func (r *Runner) ensurePartyPayment(ctx context.Context) (FundingRef, error) {
	s, m := r.Swap, r.Machine

	if s.PartyPaymentTxID == "" {
		ref, err := r.In.WaitForFunding(ctx, s.SecretHash, s.RedeemDeadline())
		if err != nil {
			return FundingRef{}, err
		}
		m.MarkHasPartyPayment(ref.TxID)
		if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneHasPartyPayment)); err != nil {
			return ref, err
		}
	}

	ref := FundingRef{TxID: s.PartyPaymentTxID}

	if !s.Flags().Has(swapfsm.PartyPaymentConfirmed) {
		if err := r.In.WaitTxConfirmed(ctx, ref.TxID); err != nil {
			return ref, err
		}
		if err := m.MarkPartyPaymentConfirmed(); err != nil {
			return ref, err
		}
		if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestonePartyPaymentConfirmed)); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

// claim redeems the counter-party's HTLC with secret, falling back to
// refund if the redeem window has already closed.
func (r *Runner) claim(ctx context.Context, ownRef, partyRef FundingRef, secret []byte) error {
	s, m := r.Swap, r.Machine

	if !m.CanRedeem() {
		return r.attemptRefund(ctx, ownRef, fmt.Errorf("orchestrator: redeem deadline already passed"))
	}
	if err := m.MarkRedeemSigned(); err != nil {
		return r.attemptRefund(ctx, ownRef, err)
	}

	txID, err := r.In.Claim(ctx, partyRef, secret)
	if err != nil {
		return swaperrors.New(swaperrors.TransactionBroadcastError, "Runner.claim", err)
	}
	if err := m.MarkRedeemBroadcast(txID); err != nil {
		return err
	}
	if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneRedeemBroadcast)); err != nil {
		return err
	}
	if r.Relay != nil {
		if err := r.Relay.SendSecret(ctx, relay.SwapSecret{SwapID: s.ID, Secret: secret}); err != nil {
			r.log.Warn("send secret hint", "error", err)
		}
	}

	if err := r.In.WaitTxConfirmed(ctx, txID); err != nil {
		return err
	}
	if err := m.MarkRedeemConfirmed(); err != nil {
		return err
	}
	return r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneRedeemConfirmed))
}

// attemptRefund waits out the local lock_time (if it hasn't passed yet) and
// broadcasts the refund for ownRef. cause is logged only, not returned
// verbatim, since a successful refund is not itself a failure of Run.
func (r *Runner) attemptRefund(ctx context.Context, ownRef FundingRef, cause error) error {
	s, m := r.Swap, r.Machine
	r.log.Warn("falling back to refund", "cause", cause)

	m.MarkRefundSigned()
	if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneRefundTimeReached)); err != nil {
		r.log.Error("persist refund-signed", "error", err)
	}

	if deadline := s.LocalLockTime(); time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(deadline)):
		}
	}

	txID, err := r.forceBroadcastRefund(ctx, ownRef)
	if err != nil {
		return err
	}
	if err := m.MarkRefundBroadcast(txID); err != nil {
		return err
	}
	if err := r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneRefundBroadcast)); err != nil {
		return err
	}

	if err := m.MarkRefundConfirmed(); err != nil {
		return err
	}
	return r.Engine.Persist(ctx, s.ID, string(swapfsm.MilestoneRefundConfirmed))
}

// forceBroadcastRefund re-broadcasts ownRef's refund every
// ForceRefundInterval until it is both accepted and confirmed, or ctx is
// canceled - losing a refund is worse than wasted polling, so unlike every
// other step in this package this one does not give up on error.
func (r *Runner) forceBroadcastRefund(ctx context.Context, ownRef FundingRef) (string, error) {
	interval := r.Swap.ForceRefundInterval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	for {
		txID, err := r.Out.Refund(ctx, ownRef)
		if err != nil {
			r.log.Warn("refund broadcast failed, will retry", "error", err, "retry_in", interval)
		} else {
			confirmCtx, cancel := context.WithTimeout(ctx, interval)
			confirmErr := r.Out.WaitTxConfirmed(confirmCtx, txID)
			cancel()
			if confirmErr == nil {
				return txID, nil
			}
			r.log.Warn("refund not yet confirmed, force-rebroadcasting", "tx_id", txID, "error", confirmErr)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}
