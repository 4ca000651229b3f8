package date

import (
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParseAny(t *testing.T) {
	layouts := []string{"2006-01-02", "2/1/2006", "2-Jan-2006"}
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2026-01-05", want: New(2026, time.January, 5)},
		{in: " 2026-01-05 ", want: New(2026, time.January, 5)},
		{in: "5/1/2026", want: New(2026, time.January, 5)},
		{in: "05/01/2026", want: New(2026, time.January, 5)},
		{in: "5-Jan-2026", want: New(2026, time.January, 5)},
		{in: "2026-01-05 00:00:00", want: New(2026, time.January, 5)},
		{in: "", wantErr: true},
		{in: "not a date", wantErr: true},
		{in: "2026-13-01", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAny(tc.in, layouts...)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseAny(%q) = %v, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAny(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseAny(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	a, b := New(2026, 1, 2), New(2026, 1, 5)
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("Compare is not consistent for %v and %v", a, b)
	}
	if !(Date{}).IsZero() || a.IsZero() {
		t.Errorf("IsZero is not consistent")
	}
}

func TestFormat(t *testing.T) {
	if got, want := New(2026, time.January, 31).Format("02-Jan-2006"), "31-Jan-2026"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}
