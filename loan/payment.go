/*
payment.go - Payment recording and application

PURPOSE:
  Applies a recorded payment to the account's running balances and advances
  the schedule. The account mutation runs first as one conditional update,
  then the ledger entry is appended unconditionally (overpayment included,
  the full amount is recorded). Applying first means a payment that loses
  the version race past the retry budget leaves no trace at all; the rare
  append failure after the balances moved is logged and surfaced, and the
  correction is a manual ledger entry.

ALLOCATION NOTE:
  The amount is applied directly against the aggregate outstanding balance.
  Borrower-facing contract text describes an interest -> penalty ->
  principal -> other waterfall; that ordering is NOT implemented here, by
  decision: the aggregate application is the behavior this engine preserves
  until a domain owner confirms the waterfall. See DESIGN.md.

SEE ALSO:
  - account.go: the PaidOff invariant (unlock forced at zero balance)
*/
package loan

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT INPUT
// =============================================================================

// PaymentInput is a payment as submitted by the operator. A nil Date means
// "now"; Method defaults to cash.
type PaymentInput struct {
	Amount decimal.Decimal
	Date   *time.Time
	Method string
	Notes  string
}

// =============================================================================
// RECORD PAYMENT
// =============================================================================

// RecordPayment validates, applies the amount to the account, and appends
// the ledger entry:
//
//	totalPaid   += amount
//	outstanding  = max(0, outstanding - amount)
//	daysOverdue  = 0, penalty watermark reset
//	balance > 0: nextPaymentDue advances one calendar month from its prior value
//	balance = 0: PaidOff, lock forced off, nextPaymentDue cleared
func (e *Engine) RecordPayment(ctx context.Context, id AccountID, in PaymentInput) (LoanAccount, Payment, error) {
	if !in.Amount.IsPositive() {
		return LoanAccount{}, Payment{}, invalidf("amount", "must be positive, got %s", in.Amount)
	}

	account, err := e.Store.GetAccount(ctx, id)
	if err != nil {
		return LoanAccount{}, Payment{}, err
	}
	if account.LoanStartDate == nil {
		return LoanAccount{}, Payment{}, ErrLoanNotConfigured
	}
	if account.State.Terminal() {
		return LoanAccount{}, Payment{}, ErrAccountPaidOff
	}

	now := e.Clock.Now()
	paidAt := now
	if in.Date != nil {
		paidAt = *in.Date
	}
	method := in.Method
	if method == "" {
		method = "cash"
	}

	payment := Payment{
		ID:        NewPaymentID(),
		AccountID: id,
		Amount:    Round2(in.Amount),
		Date:      paidAt,
		Method:    method,
		Notes:     in.Notes,
		CreatedAt: now,
	}
	updated, err := e.mutateAccount(ctx, id, func(a *LoanAccount) error {
		a.TotalPaid = Round2(a.TotalPaid.Add(payment.Amount))
		remaining := a.OutstandingBalance.Sub(payment.Amount)
		if remaining.IsNegative() {
			remaining = zero
		}
		a.OutstandingBalance = Round2(remaining)

		a.LastPaymentDate = &payment.Date
		a.DaysOverdue = 0
		a.LateAccruedThrough = nil

		if a.OutstandingBalance.IsPositive() && a.NextPaymentDue != nil {
			next := AddMonths(*a.NextPaymentDue, 1)
			a.NextPaymentDue = &next
		}

		reconcileState(a, now)
		return nil
	})
	if err != nil {
		return LoanAccount{}, Payment{}, err
	}

	if err := e.Store.AppendPayment(ctx, payment); err != nil {
		log.Printf("[Payment] account=%s amount=%s applied without ledger entry: %v", id, payment.Amount, err)
		return updated, payment, err
	}
	return updated, payment, nil
}
