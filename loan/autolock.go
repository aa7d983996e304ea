/*
autolock.go - Auto-lock policy evaluator

PURPOSE:
  Periodically decides whether a financed device transitions to locked:
  once an account is overdue past its grace period and auto-lock is
  enabled, the policy sets the lock flag with a generated message and a
  snapshot of the days-overdue count. Accounts inside the grace window only
  get their days-overdue counter refreshed.

  Unlocking is not this evaluator's job: the lock clears through a payment
  that zeroes the balance (account.go forces it) or through an explicit
  operator override recorded on a separate flag.
*/
package loan

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// LOCK DECISION - per-account sweep result
// =============================================================================

type LockDecision struct {
	AccountID   AccountID
	DaysOverdue int
	GraceDays   int
	// Locked is true when this run flipped the lock on.
	Locked  bool
	Message string
}

// =============================================================================
// AUTO-LOCK SWEEP
// =============================================================================

// RunAutoLockSweep evaluates the lock policy for every account with
// auto-lock enabled and a pending due date, returning the decisions made
// plus the count of accounts that failed. Fail-soft per account, like
// every sweep.
func (e *Engine) RunAutoLockSweep(ctx context.Context) ([]LockDecision, int, error) {
	now := e.Clock.Now()
	var decisions []LockDecision

	itemErrs, err := e.forEachAccount(ctx, "AutoLock", func(listed LoanAccount) error {
		if !autoLockEligible(listed, now) {
			return nil
		}

		var decision LockDecision
		_, err := e.mutateAccount(ctx, listed.ID, func(a *LoanAccount) error {
			if !autoLockEligible(*a, now) {
				return errSweepSkip
			}

			days := overdueDays(*a.NextPaymentDue, now)
			decision = LockDecision{
				AccountID:   a.ID,
				DaysOverdue: days,
				GraceDays:   a.AutoLockGraceDays,
			}

			if days > a.AutoLockGraceDays && !a.IsLocked {
				a.IsLocked = true
				a.LockMessage = OverdueLockMessage(*a, days)
				decision.Locked = true
				decision.Message = a.LockMessage
			}

			// The counter snapshot is stored either way.
			a.DaysOverdue = days
			reconcileState(a, now)
			return nil
		})
		if errors.Is(err, errSweepSkip) {
			return nil
		}
		if err != nil {
			return err
		}

		decisions = append(decisions, decision)
		return nil
	})
	if err != nil {
		return decisions, len(itemErrs), err
	}
	return decisions, len(itemErrs), nil
}

func autoLockEligible(a LoanAccount, now time.Time) bool {
	return a.AutoLockEnabled &&
		a.NextPaymentDue != nil &&
		a.OutstandingBalance.IsPositive() &&
		!DeriveState(a, now).Terminal()
}

// =============================================================================
// OPERATOR OVERRIDE
// =============================================================================

// SetOperatorUnlock records an explicit operator unlock (or revokes it).
// This is an override outside the lock policy: the policy-driven IsLocked
// flag is left untouched so the state machine still reflects the policy's
// view, and the device layer honors the override separately.
func (e *Engine) SetOperatorUnlock(ctx context.Context, id AccountID, unlocked bool) (LoanAccount, error) {
	return e.mutateAccount(ctx, id, func(a *LoanAccount) error {
		a.OperatorUnlocked = unlocked
		return nil
	})
}
