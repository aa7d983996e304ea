/*
reminder.go - Reminder eligibility sweep

PURPOSE:
  Decides which loans are due for a payment reminder. The account record is
  read-only here: this sweep never mutates balances or state; it creates
  reminder records and hands composed messages to the injected dispatcher.

THRESHOLDS:
  daysUntilDue must EXACTLY equal one of {0, -1, -3, -7}; each maps to its
  own reminder type. An exact match (not a range) means a sweep that skips
  a day misses that reminder permanently for the cycle. Intentional,
  preserved behavior.

IDEMPOTENCE:
  Before creating, the sweep checks for an existing reminder of the same
  (account, type) within the prior 24 hours and skips if found. That check
  is the sole duplicate guard.
*/
package loan

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

type reminderThreshold struct {
	DaysUntilDue int
	Type         ReminderType
	Text         string
}

// reminderThresholds is ordered; at most one can match a given account on
// a given day because the offsets are distinct.
var reminderThresholds = []reminderThreshold{
	{0, ReminderDueToday, "Payment due today"},
	{-1, ReminderOverdue1Day, "Payment overdue by 1 day"},
	{-3, ReminderOverdue3Day, "Payment overdue by 3 days"},
	{-7, ReminderOverdue7Day, "Final notice: Payment overdue by 7 days"},
}

// reminderDedupWindow is how far back the duplicate check looks.
const reminderDedupWindow = 24 * time.Hour

// =============================================================================
// REMINDER SWEEP
// =============================================================================

// RunReminderSweep creates and dispatches due reminders across all
// accounts with reminders enabled, returning what it created plus the
// count of accounts that failed.
func (e *Engine) RunReminderSweep(ctx context.Context) ([]Reminder, int, error) {
	now := e.Clock.Now()
	var created []Reminder

	itemErrs, err := e.forEachAccount(ctx, "Reminder", func(a LoanAccount) error {
		if !reminderEligible(a, now) {
			return nil
		}

		daysUntil := DaysBetween(now, *a.NextPaymentDue)
		for _, th := range reminderThresholds {
			if daysUntil != th.DaysUntilDue {
				continue
			}

			exists, err := e.Store.HasRecentReminder(ctx, a.ID, th.Type, now.Add(-reminderDedupWindow))
			if err != nil {
				return err
			}
			if exists {
				return nil
			}

			reminder := Reminder{
				ID:            NewReminderID(),
				AccountID:     a.ID,
				Type:          th.Type,
				ScheduledDate: now,
				Message:       fmt.Sprintf("%s. Amount: €%s", th.Text, a.MonthlyInstallment.StringFixed(2)),
				CreatedAt:     now,
			}
			if err := e.Store.CreateReminder(ctx, reminder); err != nil {
				return err
			}

			sent, err := e.Dispatcher.Dispatch(ctx, Notification{
				AccountID: a.ID,
				Title:     "Payment Reminder",
				Body:      reminder.Message,
				Metadata: map[string]string{
					"account_id":    string(a.ID),
					"reminder_type": string(th.Type),
				},
			})
			if err == nil && sent {
				if err := e.Store.MarkReminderSent(ctx, reminder.ID, now); err == nil {
					reminder.Sent = true
					reminder.SentAt = &now
				}
			}

			created = append(created, reminder)
			return nil
		}
		return nil
	})
	if err != nil {
		return created, len(itemErrs), err
	}
	return created, len(itemErrs), nil
}

func reminderEligible(a LoanAccount, now time.Time) bool {
	return a.RemindersEnabled &&
		a.NextPaymentDue != nil &&
		a.OutstandingBalance.IsPositive() &&
		!DeriveState(a, now).Terminal()
}
