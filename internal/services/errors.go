package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAccount   = errors.New("invalid account")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidReversal  = errors.New("invalid reversal")

	// ErrIdempotencyKeyConflict means the key already belongs to a different
	// kind of transfer, or to a reversal of another ref.
	ErrIdempotencyKeyConflict = errors.New("idempotency key already used by another transfer")
)

// AccountResolutionError means get-or-create lost a race and then could not
// see the winner's row. Callers should retry with backoff.
type AccountResolutionError struct {
	Kind     string
	OwnerID  string
	Currency string
	Err      error
}

// Error implements error.
func (e *AccountResolutionError) Error() string {
	return fmt.Sprintf("resolve %s account owner=%q currency=%s: %v", e.Kind, e.OwnerID, e.Currency, e.Err)
}

// Unwrap returns the store error.
func (e *AccountResolutionError) Unwrap() error { return e.Err }

// UnbalancedTransferError is raised when caller amounts cannot reconcile.
// It is always a caller bug and is never retried.
type UnbalancedTransferError struct {
	GrossAmount       int64
	PlatformFeeAmount int64
	Reason            string
}

// Error implements error.
func (e *UnbalancedTransferError) Error() string {
	return fmt.Sprintf("unbalanced transfer: gross=%d fee=%d: %s", e.GrossAmount, e.PlatformFeeAmount, e.Reason)
}
