/*
errors.go - Centralized error types for the loan engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with the helpers at the bottom rather than matching
  strings.

ERROR CATEGORIES:
  1. Validation errors - rejected before any state mutation
  2. Not-found errors - the caller's concern to detect, surfaced as sentinels
  3. Conflict errors - optimistic version check lost the race (retryable)
  4. Sweep item errors - one account failed mid-sweep; logged and skipped

SEE ALSO:
  - store.go: conditional update contract that raises ErrVersionConflict
  - engine.go: sweep loops that wrap per-item failures in SweepItemError
*/
package loan

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrPlanNotFound is returned when a referenced loan plan doesn't exist.
	ErrPlanNotFound = errors.New("loan plan not found")

	// ErrPlanInUse is returned when deleting a plan that accounts reference.
	ErrPlanInUse = errors.New("loan plan is in use")

	// ErrVersionConflict is returned when a conditional update loses the
	// optimistic-locking race. Safe to re-read and retry.
	ErrVersionConflict = errors.New("account version conflict")

	// ErrAccountPaidOff is returned when mutating a terminal account.
	ErrAccountPaidOff = errors.New("account is paid off")

	// ErrLoanNotConfigured is returned when an operation needs accepted
	// terms but setup has not run.
	ErrLoanNotConfigured = errors.New("loan not configured")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError rejects bad input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SweepItemError records a single account's failure during a periodic sweep.
// The sweep catches it, logs it, and continues with the remaining accounts.
type SweepItemError struct {
	Sweep     string
	AccountID AccountID
	Err       error
}

func (e *SweepItemError) Error() string {
	return fmt.Sprintf("%s sweep failed for account %s: %v", e.Sweep, e.AccountID, e.Err)
}

func (e *SweepItemError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrAccountPaidOff) ||
		errors.Is(err, ErrLoanNotConfigured) ||
		errors.Is(err, ErrPlanInUse)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrPlanNotFound)
}
