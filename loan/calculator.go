/*
calculator.go - Installment quotes under three interest conventions

PURPOSE:
  Three pure, stateless formulas lenders quote from, plus a side-by-side
  comparison helper for the UI. All monetary outputs are rounded to two
  decimals, half away from zero.

METHODS:
  Simple interest:   interest = P * rate * (months/12) / 100, spread evenly
  Reducing balance:  amortizing annuity on the remaining principal (the
                     engine's default for setup)
  Flat rate:         arithmetically identical to simple interest, but
                     lenders quote it against the original principal in
                     local convention, so it is surfaced as its own method
                     for comparison purposes

VALIDATION:
  Non-positive principal or months, or a negative rate, is rejected with a
  ValidationError before any arithmetic runs. A zero monthly rate short-
  circuits the annuity formula so no division by zero can occur.

SEE ALSO:
  - schedule.go: expands a quote into a month-by-month table
  - account.go: setup copies the reducing-balance quote onto the account
*/
package loan

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// METHODS
// =============================================================================

type Method string

const (
	MethodSimpleInterest  Method = "simple_interest"
	MethodReducingBalance Method = "reducing_balance"
	MethodFlatRate        Method = "flat_rate"
)

// DisplayName returns the lender-facing method label.
func (m Method) DisplayName() string {
	switch m {
	case MethodSimpleInterest:
		return "Simple Interest"
	case MethodReducingBalance:
		return "Reducing Balance"
	case MethodFlatRate:
		return "Flat Rate"
	default:
		return string(m)
	}
}

// =============================================================================
// QUOTE - Output of a single method
// =============================================================================

type Quote struct {
	Method             Method
	MonthlyInstallment decimal.Decimal
	TotalAmount        decimal.Decimal
	TotalInterest      decimal.Decimal
	Principal          decimal.Decimal
}

func validateCalcInputs(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) error {
	if !principal.IsPositive() {
		return invalidf("principal", "must be positive, got %s", principal)
	}
	if months <= 0 {
		return invalidf("months", "must be at least 1, got %d", months)
	}
	if annualRatePercent.IsNegative() {
		return invalidf("annual_rate", "must not be negative, got %s", annualRatePercent)
	}
	return nil
}

// =============================================================================
// FORMULAS
// =============================================================================

// SimpleInterest computes interest once over the whole tenure and spreads
// it evenly: interest = P * rate * (months/12) / 100.
func SimpleInterest(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Quote, error) {
	if err := validateCalcInputs(principal, annualRatePercent, months); err != nil {
		return Quote{}, err
	}

	m := decimal.NewFromInt(int64(months))
	years := m.Div(twelve)
	interest := principal.Mul(annualRatePercent).Mul(years).Div(hundred)
	total := principal.Add(interest)
	monthly := total.Div(m)

	return Quote{
		Method:             MethodSimpleInterest,
		MonthlyInstallment: Round2(monthly),
		TotalAmount:        Round2(total),
		TotalInterest:      Round2(interest),
		Principal:          Round2(principal),
	}, nil
}

// ReducingBalance computes the standard amortizing annuity, where each
// month's interest is charged on the remaining principal. This is the
// engine's default method.
//
//	monthlyRate = rate / 12 / 100
//	installment = P * r * (1+r)^n / ((1+r)^n - 1)
func ReducingBalance(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Quote, error) {
	if err := validateCalcInputs(principal, annualRatePercent, months); err != nil {
		return Quote{}, err
	}

	m := decimal.NewFromInt(int64(months))
	monthlyRate := annualRatePercent.Div(twelve).Div(hundred)

	var monthly, interest decimal.Decimal
	if monthlyRate.IsZero() {
		monthly = principal.Div(m)
		interest = zero
	} else {
		power := one.Add(monthlyRate).Pow(m)
		monthly = principal.Mul(monthlyRate).Mul(power).Div(power.Sub(one))
		interest = monthly.Mul(m).Sub(principal)
	}
	total := principal.Add(interest)

	return Quote{
		Method:             MethodReducingBalance,
		MonthlyInstallment: Round2(monthly),
		TotalAmount:        Round2(total),
		TotalInterest:      Round2(interest),
		Principal:          Round2(principal),
	}, nil
}

// FlatRate charges interest on the ORIGINAL principal for the whole tenure.
// The arithmetic is identical to SimpleInterest; it exists as a separate
// method because lenders quote the two differently and the comparison UI
// shows both. Not a calculation shortcut.
func FlatRate(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Quote, error) {
	if err := validateCalcInputs(principal, annualRatePercent, months); err != nil {
		return Quote{}, err
	}

	m := decimal.NewFromInt(int64(months))
	years := m.Div(twelve)
	interest := principal.Mul(annualRatePercent).Mul(years).Div(hundred)
	total := principal.Add(interest)
	monthly := total.Div(m)

	return Quote{
		Method:             MethodFlatRate,
		MonthlyInstallment: Round2(monthly),
		TotalAmount:        Round2(total),
		TotalInterest:      Round2(interest),
		Principal:          Round2(principal),
	}, nil
}

// QuoteFor dispatches to the formula for the given method. Unknown methods
// fall back to reducing balance, the system default.
func QuoteFor(method Method, principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Quote, error) {
	switch method {
	case MethodSimpleInterest:
		return SimpleInterest(principal, annualRatePercent, months)
	case MethodFlatRate:
		return FlatRate(principal, annualRatePercent, months)
	default:
		return ReducingBalance(principal, annualRatePercent, months)
	}
}

// =============================================================================
// COMPARISON - All three methods side by side
// =============================================================================

// Comparison holds all three quotes plus which is cheapest and the savings
// delta versus the most expensive, for UI display.
type Comparison struct {
	SimpleInterest  Quote
	ReducingBalance Quote
	FlatRate        Quote

	Cheapest Method
	// Savings is cheapest-vs-most-expensive on total amount.
	Savings decimal.Decimal
}

// Compare runs all three methods on the same inputs.
func Compare(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Comparison, error) {
	simple, err := SimpleInterest(principal, annualRatePercent, months)
	if err != nil {
		return Comparison{}, err
	}
	reducing, err := ReducingBalance(principal, annualRatePercent, months)
	if err != nil {
		return Comparison{}, err
	}
	flat, err := FlatRate(principal, annualRatePercent, months)
	if err != nil {
		return Comparison{}, err
	}

	c := Comparison{
		SimpleInterest:  simple,
		ReducingBalance: reducing,
		FlatRate:        flat,
	}

	cheapest, costliest := simple, simple
	c.Cheapest = simple.Method
	for _, q := range []Quote{reducing, flat} {
		if q.TotalAmount.LessThan(cheapest.TotalAmount) {
			cheapest = q
			c.Cheapest = q.Method
		}
		if q.TotalAmount.GreaterThan(costliest.TotalAmount) {
			costliest = q
		}
	}
	c.Savings = Round2(costliest.TotalAmount.Sub(cheapest.TotalAmount))

	return c, nil
}
