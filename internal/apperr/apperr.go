package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind string

const (
	KindInsufficientFunds     Kind = "insufficient_funds"
	KindRateLockExpired       Kind = "rate_lock_expired"
	KindRateLockNotFound      Kind = "rate_lock_not_found"
	KindReservationNotPending Kind = "reservation_not_pending"
	KindAmountMismatch        Kind = "amount_mismatch"
	KindInvalidAmount         Kind = "invalid_amount"
	KindStoreUnavailable      Kind = "store_unavailable"
	KindConcurrencyConflict   Kind = "concurrency_conflict"
	KindWalletNotFound        Kind = "wallet_not_found"
	KindReservationNotFound   Kind = "reservation_not_found"
	KindUnsupportedCurrency   Kind = "unsupported_currency"
	KindInvalidArgument       Kind = "invalid_argument"
	// KindInvariantViolation marks a write refused because it would break a
	// balance invariant. Retrying the same input cannot succeed.
	KindInvariantViolation Kind = "invariant_violation"
)

var (
	// ErrInsufficientFunds occurs when a wallet's available balance cannot cover a hold or withdrawal.
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	// ErrRateLockExpired indicates the rate lock passed its expiry or was swept.
	ErrRateLockExpired = &Error{Kind: KindRateLockExpired}
	// ErrRateLockNotFound indicates the referenced rate lock does not exist.
	ErrRateLockNotFound = &Error{Kind: KindRateLockNotFound}
	// ErrReservationNotPending indicates the reservation already reached a terminal state.
	ErrReservationNotPending = &Error{Kind: KindReservationNotPending}
	// ErrAmountMismatch indicates purchase plus fee does not equal the reserved amount.
	ErrAmountMismatch = &Error{Kind: KindAmountMismatch}
	// ErrInvalidAmount covers zero, negative or wrong-currency amounts.
	ErrInvalidAmount = &Error{Kind: KindInvalidAmount}
	// ErrStoreUnavailable is transient; callers may retry.
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	// ErrConcurrencyConflict means optimistic retries ran out; retry the whole operation.
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
	ErrWalletNotFound      = &Error{Kind: KindWalletNotFound}
	ErrReservationNotFound = &Error{Kind: KindReservationNotFound}
	ErrUnsupportedCurrency = &Error{Kind: KindUnsupportedCurrency}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrInvariantViolation  = &Error{Kind: KindInvariantViolation}
)

// Error carries a Kind plus the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds an error of the given kind for op, optionally wrapping a cause.
func E(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Errorf builds an error of the given kind with a formatted detail message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, apperr.ErrInsufficientFunds) works for any op.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether the failure is transient for the same input.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindStoreUnavailable, KindConcurrencyConflict:
		return true
	}
	return false
}

// Unavailable wraps an infrastructure failure unless it already carries a
// kind or is a context cancellation.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return E(KindStoreUnavailable, op, err)
}
