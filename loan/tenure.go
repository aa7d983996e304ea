/*
tenure.go - Loan duration resolution

PURPOSE:
  A loan's tenure is either stated outright in months or derived from a
  target payoff date. Derivation counts whole calendar months between the
  start and the due date and rounds any leftover days UP to one more month,
  so a loan due mid-month pays for that month in full. The result is never
  below one month.
*/
package loan

import "time"

// ResolveTenure returns the tenure in months for the given terms, anchored
// at start. An explicit TenureMonths wins unless a DueDate is set, in which
// case the due date drives the result (matching how setup treats the two).
func ResolveTenure(start time.Time, terms LoanTerms) (int, error) {
	if terms.DueDate != nil {
		return TenureFromDueDate(start, *terms.DueDate)
	}
	if terms.TenureMonths < 1 {
		return 0, invalidf("tenure_months", "must be at least 1, got %d", terms.TenureMonths)
	}
	return terms.TenureMonths, nil
}

// TenureFromDueDate computes whole calendar months from start to due,
// rounding up when a partial month remains. Clamped to a minimum of 1.
func TenureFromDueDate(start, due time.Time) (int, error) {
	if due.IsZero() {
		return 0, invalidf("due_date", "must be a valid date")
	}

	months := wholeMonthsBetween(start, due)
	anchor := AddMonths(start, months)
	if due.After(anchor) {
		months++ // partial month rounds up
	}
	if months < 1 {
		months = 1
	}
	return months, nil
}

// ParseDueDate parses a YYYY-MM-DD due date from caller input. Malformed
// input is a validation failure, never a silent default.
func ParseDueDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, invalidf("due_date", "invalid date %q, use YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// wholeMonthsBetween returns the largest n such that start+n months does
// not pass due. Negative when due precedes start.
func wholeMonthsBetween(start, due time.Time) int {
	months := (due.Year()-start.Year())*12 + int(due.Month()) - int(start.Month())
	// Calendar normalization can overshoot (e.g. Jan 31 + 1 month lands in
	// March); step back until the anchor is at or before the due date.
	for months > 0 && AddMonths(start, months).After(due) {
		months--
	}
	return months
}
