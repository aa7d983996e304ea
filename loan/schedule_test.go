package loan

import (
	"testing"
	"time"
)

func TestBuildSchedule_ReducingBalance(t *testing.T) {
	s, err := BuildSchedule(MethodReducingBalance, MustDecimal("1000"), MustDecimal("12"), 6)
	if err != nil {
		t.Fatal(err)
	}

	if len(s.Entries) != 6 {
		t.Fatalf("entries = %d, want 6", len(s.Entries))
	}

	// First month: interest on the full principal at 1%/month
	first := s.Entries[0]
	assertMoney(t, "month 1 interest", first.Interest, "10.00")
	assertMoney(t, "month 1 installment", first.Installment, "172.55")
	assertMoney(t, "month 1 principal", first.Principal, "162.55")

	// Interest declines as the balance shrinks
	for i := 1; i < len(s.Entries); i++ {
		if !s.Entries[i].Interest.LessThan(s.Entries[i-1].Interest) {
			t.Errorf("month %d interest %s not below month %d interest %s",
				i+1, s.Entries[i].Interest, i, s.Entries[i-1].Interest)
		}
	}

	assertFinalBalanceZero(t, s)
}

func TestBuildSchedule_FinalBalanceZeroAllMethods(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		months    int
	}{
		{"1000", "12", 6},
		{"1058.33", "10", 7},
		{"2499.99", "18", 24},
		{"99.98", "0", 6},
	}

	for _, c := range cases {
		for _, method := range []Method{MethodSimpleInterest, MethodReducingBalance, MethodFlatRate} {
			s, err := BuildSchedule(method, MustDecimal(c.principal), MustDecimal(c.rate), c.months)
			if err != nil {
				t.Fatalf("%s %s/%s/%d: %v", method, c.principal, c.rate, c.months, err)
			}
			assertFinalBalanceZero(t, s)
		}
	}
}

func TestBuildSchedule_FlatRateStraightLineInterest(t *testing.T) {
	s, err := BuildSchedule(MethodFlatRate, MustDecimal("1200"), MustDecimal("10"), 12)
	if err != nil {
		t.Fatal(err)
	}

	// 1200 * 10 * 1 / 100 = 120 interest, 10 per month, every month
	for _, e := range s.Entries {
		assertMoney(t, "interest", e.Interest, "10.00")
	}
}

func TestBuildScheduleFrom_DueDates(t *testing.T) {
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	s, err := BuildScheduleFrom(MethodReducingBalance, MustDecimal("1000"), MustDecimal("12"), 3, start)
	if err != nil {
		t.Fatal(err)
	}

	want := []time.Time{
		time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC),
	}
	for i, e := range s.Entries {
		if !e.DueDate.Equal(want[i]) {
			t.Errorf("month %d due date = %v, want %v", e.Month, e.DueDate, want[i])
		}
	}
}

func TestBuildSchedule_NoAnchorNoDueDates(t *testing.T) {
	s, err := BuildSchedule(MethodSimpleInterest, MustDecimal("500"), MustDecimal("6"), 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range s.Entries {
		if !e.DueDate.IsZero() {
			t.Errorf("month %d has due date %v without an anchor", e.Month, e.DueDate)
		}
	}
}

func assertFinalBalanceZero(t *testing.T, s Schedule) {
	t.Helper()
	final := s.Entries[len(s.Entries)-1].Balance
	if final.Abs().GreaterThan(oneCent) {
		t.Errorf("%s: final balance = %s, want 0 within one cent", s.Quote.Method, final)
	}
}
