/*
schedule.go - Amortization table expansion

PURPOSE:
  Expands a quote into the month-by-month principal/interest/balance table
  shown to lenders and embedded in contract text.

INTEREST SPLIT PER MONTH:
  Reducing balance:    interest = runningBalance * monthlyRate
  Flat/simple:         interest = totalInterest / months (straight line)

  The running balance is carried at full precision between rows; only the
  emitted fields are rounded. The final row's balance must land on zero
  within one cent.

SEE ALSO:
  - calculator.go: the quote feeding the table
*/
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE
// =============================================================================

// ScheduleEntry is one month of the amortization table. DueDate is zero
// when the schedule is generated without a loan start anchor.
type ScheduleEntry struct {
	Month       int
	DueDate     time.Time
	Installment decimal.Decimal
	Principal   decimal.Decimal
	Interest    decimal.Decimal
	Balance     decimal.Decimal
}

// Schedule pairs the quote summary with its expansion.
type Schedule struct {
	Quote   Quote
	Entries []ScheduleEntry
}

// BuildSchedule expands the given method into a full amortization table.
// Validation mirrors the calculator: it runs before any rows are produced.
func BuildSchedule(method Method, principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Schedule, error) {
	return BuildScheduleFrom(method, principal, annualRatePercent, months, time.Time{})
}

// BuildScheduleFrom is BuildSchedule with due dates anchored at start: the
// month-n row falls due n calendar months after the loan start date.
func BuildScheduleFrom(method Method, principal decimal.Decimal, annualRatePercent decimal.Decimal, months int, start time.Time) (Schedule, error) {
	quote, err := QuoteFor(method, principal, annualRatePercent, months)
	if err != nil {
		return Schedule{}, err
	}

	m := decimal.NewFromInt(int64(months))
	monthlyRate := annualRatePercent.Div(twelve).Div(hundred)
	straightLineInterest := quote.TotalInterest.Div(m)

	// Carry the installment at full precision so per-row rounding cannot
	// drift the running balance; rows display the rounded value.
	installment := unroundedInstallment(quote, principal, monthlyRate, m)

	entries := make([]ScheduleEntry, 0, months)
	balance := principal

	for month := 1; month <= months; month++ {
		var interest decimal.Decimal
		if quote.Method == MethodReducingBalance {
			interest = balance.Mul(monthlyRate)
		} else {
			interest = straightLineInterest
		}

		principalPayment := installment.Sub(interest)
		balance = balance.Sub(principalPayment)
		if balance.IsNegative() {
			balance = zero
		}

		entry := ScheduleEntry{
			Month:       month,
			Installment: Round2(installment),
			Principal:   Round2(principalPayment),
			Interest:    Round2(interest),
			Balance:     Round2(balance),
		}
		if !start.IsZero() {
			entry.DueDate = AddMonths(start, month)
		}
		entries = append(entries, entry)
	}

	return Schedule{Quote: quote, Entries: entries}, nil
}

func unroundedInstallment(quote Quote, principal, monthlyRate, m decimal.Decimal) decimal.Decimal {
	if quote.Method == MethodReducingBalance && !monthlyRate.IsZero() {
		power := one.Add(monthlyRate).Pow(m)
		return principal.Mul(monthlyRate).Mul(power).Div(power.Sub(one))
	}
	return principal.Add(quote.TotalInterest).Div(m)
}
