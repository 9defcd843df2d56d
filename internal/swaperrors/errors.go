// Package swaperrors defines the tagged error taxonomy shared by every
// component of the swap engine, replacing scattered per-package sentinels
// with one Kind enum so callers can dispatch on error class with errors.As
// instead of string comparison.
package swaperrors

import (
	"errors"
	"fmt"
)

// Kind tags the class of failure. Never compare error messages - always
// errors.As into an *Error and switch on Kind.
type Kind string

const (
	InsufficientFunds          Kind = "insufficient_funds"
	InsufficientGas            Kind = "insufficient_gas"
	TransactionCreationError   Kind = "transaction_creation_error"
	TransactionSigningError    Kind = "transaction_signing_error"
	TransactionVerificationErr Kind = "transaction_verification_error"
	TransactionBroadcastError  Kind = "transaction_broadcast_error"
	RequestError               Kind = "request_error" // transient RPC failure
	MaxAttemptsCountReached    Kind = "max_attempts_count_reached"
	InvalidSigns               Kind = "invalid_signs"
	InvalidPaymentTxId         Kind = "invalid_payment_tx_id"
	InvalidSpentPoint          Kind = "invalid_spent_point"
	WrongSwapMessageOrder      Kind = "wrong_swap_message_order"
	SwapError                  Kind = "swap_error"
	InternalError              Kind = "internal_error"
)

// Error wraps a Kind with the operation that failed and the underlying
// cause, using the standard fmt.Errorf("%w: ...") wrapping style but
// centralized so every package reports through the same shape.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, swaperrors.Sentinel(swaperrors.RequestError)) work
// by comparing Kind, even though Kind is not itself an error value.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds a tagged error for the given operation and cause.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Sentinel returns a comparable *Error with no wrapped cause, suitable for
// errors.Is(err, swaperrors.Sentinel(RequestError)) style checks at call
// sites that don't need the op string.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind from err, if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsTransient reports whether err should be retried by a bounded-retry loop
// rather than treated as fatal for the current action.
func IsTransient(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == RequestError
}
