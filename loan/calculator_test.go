package loan

import (
	"testing"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUOTE TESTS - Exact values per method
// =============================================================================

func TestSimpleInterest(t *testing.T) {
	tests := []struct {
		name        string
		principal   string
		rate        string
		months      int
		wantMonthly string
		wantTotal   string
		wantInterest string
	}{
		{"twelve pct over six months", "1000", "12", 6, "176.67", "1060.00", "60.00"},
		{"one year at ten pct", "1200", "10", 12, "110.00", "1320.00", "120.00"},
		{"zero rate is principal only", "1000", "0", 4, "250.00", "1000.00", "0.00"},
		{"single month", "500", "24", 1, "510.00", "510.00", "10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := SimpleInterest(MustDecimal(tt.principal), MustDecimal(tt.rate), tt.months)
			if err != nil {
				t.Fatalf("SimpleInterest: %v", err)
			}
			assertMoney(t, "monthly", q.MonthlyInstallment, tt.wantMonthly)
			assertMoney(t, "total", q.TotalAmount, tt.wantTotal)
			assertMoney(t, "interest", q.TotalInterest, tt.wantInterest)
		})
	}
}

func TestReducingBalance(t *testing.T) {
	tests := []struct {
		name        string
		principal   string
		rate        string
		months      int
		wantMonthly string
		wantTotal   string
	}{
		{"canonical 1000 at 12 over 6", "1000", "12", 6, "172.55", "1035.29"},
		{"zero rate divides evenly", "1200", "0", 12, "100.00", "1200.00"},
		{"single month pays principal plus one month interest", "1000", "12", 1, "1010.00", "1010.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ReducingBalance(MustDecimal(tt.principal), MustDecimal(tt.rate), tt.months)
			if err != nil {
				t.Fatalf("ReducingBalance: %v", err)
			}
			assertMoney(t, "monthly", q.MonthlyInstallment, tt.wantMonthly)
			assertMoney(t, "total", q.TotalAmount, tt.wantTotal)
		})
	}
}

func TestFlatRate_MatchesSimpleArithmetic(t *testing.T) {
	simple, err := SimpleInterest(MustDecimal("1000"), MustDecimal("12"), 6)
	if err != nil {
		t.Fatal(err)
	}
	flat, err := FlatRate(MustDecimal("1000"), MustDecimal("12"), 6)
	if err != nil {
		t.Fatal(err)
	}

	if !flat.MonthlyInstallment.Equal(simple.MonthlyInstallment) {
		t.Errorf("flat monthly %s != simple monthly %s", flat.MonthlyInstallment, simple.MonthlyInstallment)
	}
	if !flat.TotalAmount.Equal(simple.TotalAmount) {
		t.Errorf("flat total %s != simple total %s", flat.TotalAmount, simple.TotalAmount)
	}
	if flat.Method != MethodFlatRate {
		t.Errorf("method = %s, want %s", flat.Method, MethodFlatRate)
	}
}

func TestQuote_MonthlyTimesMonthsApproximatesTotal(t *testing.T) {
	// The rounded installment times the tenure may differ from the rounded
	// total only by accumulated per-month rounding (under a cent per month).
	cases := []struct {
		principal string
		rate      string
		months    int
	}{
		{"1000", "12", 6},
		{"2499.99", "18", 24},
		{"750", "7.5", 9},
		{"100000", "21", 36},
	}

	for _, c := range cases {
		for _, method := range []Method{MethodSimpleInterest, MethodReducingBalance, MethodFlatRate} {
			q, err := QuoteFor(method, MustDecimal(c.principal), MustDecimal(c.rate), c.months)
			if err != nil {
				t.Fatalf("%s %s/%s/%d: %v", method, c.principal, c.rate, c.months, err)
			}
			diff := q.MonthlyInstallment.Mul(decimal.NewFromInt(int64(c.months))).Sub(q.TotalAmount).Abs()
			limit := oneCent.Mul(decimal.NewFromInt(int64(c.months)))
			if diff.GreaterThan(limit) {
				t.Errorf("%s %s/%s/%d: |monthly*months - total| = %s, want <= %s",
					method, c.principal, c.rate, c.months, diff, limit)
			}
		}
	}
}

func TestQuoteFor_UnknownMethodFallsBackToReducing(t *testing.T) {
	q, err := QuoteFor(Method("bogus"), MustDecimal("1000"), MustDecimal("12"), 6)
	if err != nil {
		t.Fatal(err)
	}
	if q.Method != MethodReducingBalance {
		t.Errorf("method = %s, want %s", q.Method, MethodReducingBalance)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestCalculator_RejectsBadInputs(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		months    int
	}{
		{"zero principal", "0", "12", 6},
		{"negative principal", "-100", "12", 6},
		{"zero months", "1000", "12", 0},
		{"negative rate", "1000", "-1", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReducingBalance(MustDecimal(tt.principal), MustDecimal(tt.rate), tt.months)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !IsClientError(err) {
				t.Errorf("expected client error, got %v", err)
			}
		})
	}
}

// =============================================================================
// COMPARISON TESTS
// =============================================================================

func TestCompare(t *testing.T) {
	cmp, err := Compare(MustDecimal("1000"), MustDecimal("12"), 6)
	if err != nil {
		t.Fatal(err)
	}

	if cmp.Cheapest != MethodReducingBalance {
		t.Errorf("cheapest = %s, want %s", cmp.Cheapest, MethodReducingBalance)
	}
	// 1060.00 (flat/simple) vs 1035.29 (reducing)
	assertMoney(t, "savings", cmp.Savings, "24.71")
	assertMoney(t, "reducing total", cmp.ReducingBalance.TotalAmount, "1035.29")
	assertMoney(t, "simple total", cmp.SimpleInterest.TotalAmount, "1060.00")
}

func TestCompare_ZeroRateAllEqual(t *testing.T) {
	cmp, err := Compare(MustDecimal("900"), MustDecimal("0"), 3)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Savings.IsZero() {
		t.Errorf("savings = %s, want 0", cmp.Savings)
	}
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Errorf("%s = %s, want %s", label, got.StringFixed(2), want)
	}
}
