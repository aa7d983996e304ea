/*
penalty.go - Late-fee accrual sweep

PURPOSE:
  Periodically charges late fees on overdue accounts at the plan's rate
  (2%/month default), prorated by days:

    fee = installment * rate * (days / 30) / 100

MARGINAL ACCRUAL:
  Fees are charged only for days not yet accrued, tracked by the
  LateAccruedThrough watermark. Recomputing from the full days-overdue on
  every run would double-count whenever the sweep fires more than once
  between due dates; the watermark makes the sweep idempotent within a day
  and correct at any interval. DaysOverdue itself is overwritten (not
  accumulated) with the freshly computed value each run.

SEE ALSO:
  - autolock.go: shares the days-overdue computation
*/
package loan

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// errSweepSkip signals from inside a mutation that the account stopped
// being eligible between listing and the conditional write (e.g. a payment
// raced in). Not an error: the sweep moves on silently.
var errSweepSkip = errors.New("sweep: account no longer eligible")

// =============================================================================
// PENALTY DELTA - per-account sweep result
// =============================================================================

type PenaltyDelta struct {
	AccountID       AccountID
	DaysOverdue     int
	MarginalDays    int
	LateFee         decimal.Decimal
	LateFeesAccrued decimal.Decimal
}

// =============================================================================
// PENALTY SWEEP
// =============================================================================

// RunPenaltySweep accrues late fees across all eligible accounts and
// returns the per-account deltas plus the count of accounts that failed.
// Individual account failures are logged and skipped; the sweep completes
// for the rest.
func (e *Engine) RunPenaltySweep(ctx context.Context) ([]PenaltyDelta, int, error) {
	now := e.Clock.Now()
	var deltas []PenaltyDelta

	itemErrs, err := e.forEachAccount(ctx, "Penalty", func(listed LoanAccount) error {
		if !penaltyEligible(listed, now) {
			return nil
		}

		var delta PenaltyDelta
		updated, err := e.mutateAccount(ctx, listed.ID, func(a *LoanAccount) error {
			// Re-check against fresh state: a payment may have raced in.
			if !penaltyEligible(*a, now) {
				return errSweepSkip
			}

			due := *a.NextPaymentDue
			totalDays := overdueDays(due, now)
			marginal := totalDays - accruedDays(*a, due)
			if marginal < 0 {
				marginal = 0
			}

			var fee decimal.Decimal
			if marginal > 0 {
				rate := e.lateFeeRate(ctx, *a)
				days := decimal.NewFromInt(int64(marginal))
				fee = Round2(a.MonthlyInstallment.Mul(rate).Mul(days.Div(thirty)).Div(hundred))
				a.LateFeesAccrued = Round2(a.LateFeesAccrued.Add(fee))
				through := due.AddDate(0, 0, totalDays)
				a.LateAccruedThrough = &through
			}

			a.DaysOverdue = totalDays
			reconcileState(a, now)

			delta = PenaltyDelta{
				AccountID:    a.ID,
				DaysOverdue:  totalDays,
				MarginalDays: marginal,
				LateFee:      fee,
			}
			return nil
		})
		if errors.Is(err, errSweepSkip) {
			return nil
		}
		if err != nil {
			return err
		}

		delta.LateFeesAccrued = updated.LateFeesAccrued
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		return deltas, len(itemErrs), err
	}
	return deltas, len(itemErrs), nil
}

// penaltyEligible mirrors the sweep's selection: a configured, unpaid
// account whose due date has passed. Locking the device does not stop
// accrual; fees keep building until the balance is paid.
func penaltyEligible(a LoanAccount, now time.Time) bool {
	if a.NextPaymentDue == nil || !a.OutstandingBalance.IsPositive() {
		return false
	}
	switch DeriveState(a, now) {
	case StateActive, StateOverdue, StateLocked:
		return a.NextPaymentDue.Before(now)
	default:
		return false
	}
}

// accruedDays returns how many overdue days have already been charged,
// derived from the watermark relative to the current due date.
func accruedDays(a LoanAccount, due time.Time) int {
	if a.LateAccruedThrough == nil || !a.LateAccruedThrough.After(due) {
		return 0
	}
	return DaysBetween(due, *a.LateAccruedThrough)
}
