/*
account.go - Lifecycle state machine

PURPOSE:
  One authoritative loan status, derived from the running record the
  payment processor and the sweeps all mutate.

STATES:
  Unconfigured -> Active -> Overdue -> Locked
  PaidOff is terminal, reachable from Active/Overdue/Locked the instant the
  outstanding balance hits zero.

TRANSITIONS:
  Setup:           Unconfigured -> Active (calculator populates the record)
  Due date lapses: Active -> Overdue, detected lazily by the penalty and
                   auto-lock sweeps; there is no timer per account
  Grace exceeded:  Overdue -> Locked, only while autoLockEnabled
  Payment:         any non-terminal -> Active (balance remains) or PaidOff
  There is no Locked -> Active without a payment. An operator unlock is an
  override tracked on a separate flag; it never rewrites the policy state.

SEE ALSO:
  - payment.go: the payment-driven transitions
  - penalty.go, autolock.go: the sweep-driven transitions
*/
package loan

import (
	"fmt"
	"time"
)

// =============================================================================
// TERMS VALIDATION
// =============================================================================

// ValidateTerms rejects terms that would break the calculator's invariants
// before anything is written.
func ValidateTerms(terms LoanTerms) error {
	if !terms.Principal.IsPositive() {
		return invalidf("principal", "must be positive, got %s", terms.Principal)
	}
	if terms.AnnualRatePercent.IsNegative() {
		return invalidf("annual_rate", "must not be negative, got %s", terms.AnnualRatePercent)
	}
	if terms.DownPayment.IsNegative() {
		return invalidf("down_payment", "must not be negative, got %s", terms.DownPayment)
	}
	if !terms.DownPayment.LessThan(terms.Principal) {
		return invalidf("down_payment", "must be below the principal")
	}
	if terms.DueDate == nil && terms.TenureMonths < 1 {
		return invalidf("tenure_months", "must be at least 1, got %d", terms.TenureMonths)
	}
	return nil
}

// =============================================================================
// STATE DERIVATION
// =============================================================================

// DeriveState combines the record's running fields into the authoritative
// lifecycle state as of 'now'. The stored State field is kept in sync by
// every mutator via reconcileState; DeriveState is the single source of
// the rules.
func DeriveState(a LoanAccount, now time.Time) AccountState {
	if a.LoanStartDate == nil {
		return StateUnconfigured
	}
	if !a.OutstandingBalance.IsPositive() {
		return StatePaidOff
	}
	if a.IsLocked {
		return StateLocked
	}
	if a.NextPaymentDue != nil && a.NextPaymentDue.Before(now) {
		return StateOverdue
	}
	return StateActive
}

// reconcileState refreshes the stored state and enforces the invariant
// that a paid-off account can never remain locked, regardless of who set
// the lock.
func reconcileState(a *LoanAccount, now time.Time) {
	if !a.OutstandingBalance.IsPositive() && a.LoanStartDate != nil {
		a.IsLocked = false
		a.LockMessage = ""
		a.NextPaymentDue = nil
	}
	a.State = DeriveState(*a, now)
}

// =============================================================================
// LOCK MESSAGING
// =============================================================================

// OverdueLockMessage is the generated message stored on the account when
// the auto-lock policy trips.
func OverdueLockMessage(a LoanAccount, daysOverdue int) string {
	return fmt.Sprintf(
		"Your device has been locked: payment of %s is %d days overdue. Please pay to restore service.",
		a.MonthlyInstallment.StringFixed(2), daysOverdue)
}
