package loan

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTenureFromDueDate(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		due   time.Time
		want  int
	}{
		{"exact six months", date(2024, time.January, 1), date(2024, time.July, 1), 6},
		{"partial month rounds up", date(2024, time.January, 1), date(2024, time.June, 15), 6},
		{"one day past a month boundary", date(2024, time.January, 1), date(2024, time.February, 2), 2},
		{"under one month clamps to one", date(2024, time.January, 1), date(2024, time.January, 10), 1},
		{"due before start clamps to one", date(2024, time.June, 1), date(2024, time.January, 1), 1},
		{"same day clamps to one", date(2024, time.March, 5), date(2024, time.March, 5), 1},
		{"jan 31 to feb 28 is one month", date(2025, time.January, 31), date(2025, time.February, 28), 1},
		{"end of month across a year", date(2024, time.November, 30), date(2025, time.November, 30), 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TenureFromDueDate(tt.start, tt.due)
			if err != nil {
				t.Fatalf("TenureFromDueDate: %v", err)
			}
			if got != tt.want {
				t.Errorf("tenure = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveTenure(t *testing.T) {
	start := date(2024, time.January, 1)

	t.Run("explicit months", func(t *testing.T) {
		got, err := ResolveTenure(start, LoanTerms{TenureMonths: 9})
		if err != nil {
			t.Fatal(err)
		}
		if got != 9 {
			t.Errorf("tenure = %d, want 9", got)
		}
	})

	t.Run("due date wins over months", func(t *testing.T) {
		due := date(2024, time.April, 1)
		got, err := ResolveTenure(start, LoanTerms{TenureMonths: 12, DueDate: &due})
		if err != nil {
			t.Fatal(err)
		}
		if got != 3 {
			t.Errorf("tenure = %d, want 3", got)
		}
	})

	t.Run("neither set is rejected", func(t *testing.T) {
		_, err := ResolveTenure(start, LoanTerms{})
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !IsClientError(err) {
			t.Errorf("expected client error, got %v", err)
		}
	})
}

func TestParseDueDate(t *testing.T) {
	got, err := ParseDueDate("2024-06-15")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(date(2024, time.June, 15)) {
		t.Errorf("parsed = %v", got)
	}

	for _, bad := range []string{"", "15-06-2024", "2024/06/15", "June 15 2024"} {
		if _, err := ParseDueDate(bad); err == nil {
			t.Errorf("ParseDueDate(%q): expected error", bad)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same instant", base, base, 0},
		{"exactly three days forward", base, base.AddDate(0, 0, 3), 3},
		{"three days six hours floors to three", base, base.AddDate(0, 0, 3).Add(6 * time.Hour), 3},
		{"exactly one day back", base, base.AddDate(0, 0, -1), -1},
		{"partial day back floors toward negative", base, base.Add(-30 * time.Hour), -2},
		{"six hours back is minus one", base, base.Add(-6 * time.Hour), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.from, tt.to); got != tt.want {
				t.Errorf("DaysBetween = %d, want %d", got, tt.want)
			}
		})
	}
}
