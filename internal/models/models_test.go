package models

import (
	"testing"
	"time"
)

func TestTimeRange_Duration(t *testing.T) {
	tests := []struct {
		r    TimeRange
		want time.Duration
	}{
		{RangeCustom, 0},
		{Range1Day, 24 * time.Hour},
		{Range7Days, 7 * 24 * time.Hour},
		{Range30Days, 30 * 24 * time.Hour},
		{Range90Days, 90 * 24 * time.Hour},
		{TimeRange("2w"), 0},
	}
	for _, tt := range tests {
		if got := tt.r.Duration(); got != tt.want {
			t.Errorf("%q.Duration() = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestTimeRange_Valid(t *testing.T) {
	for _, r := range TimeRanges {
		if !r.Valid() {
			t.Errorf("%q.Valid() = false, want true", r)
		}
	}
	if TimeRange("12h").Valid() {
		t.Error("12h should not be a valid token")
	}
}

func TestFilterCriteria_QueryRoundTrip(t *testing.T) {
	c := FilterCriteria{Location: "Lagos", StartDate: "2024-01-01", EndDate: "2024-01-31", TimeRange: Range30Days}
	q := c.Query()
	if got := q.Encode(); got != "endDate=2024-01-31&location=Lagos&startDate=2024-01-01&timeRange=30d" {
		t.Errorf("Query().Encode() = %q", got)
	}
	if back := FilterCriteriaFromQuery(q); back != c {
		t.Errorf("FilterCriteriaFromQuery = %+v, want %+v", back, c)
	}
}

func TestFilterCriteria_QueryOmitsUnset(t *testing.T) {
	if got := (FilterCriteria{}).Query().Encode(); got != "" {
		t.Errorf("empty criteria encoded as %q, want empty", got)
	}
}

func TestNewTimeDimension(t *testing.T) {
	ts := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)
	td := NewTimeDimension(ts)

	if td.Date != "2024-01-15" {
		t.Errorf("Date = %q, want 2024-01-15", td.Date)
	}
	if td.Year != 2024 || td.Month != 1 || td.Day != 15 {
		t.Errorf("Y/M/D = %d/%d/%d", td.Year, td.Month, td.Day)
	}
	if td.Hour != 14 || td.Minute != 30 {
		t.Errorf("H:M = %d:%d, want 14:30", td.Hour, td.Minute)
	}
	if td.Weekday != "Monday" {
		t.Errorf("Weekday = %q, want Monday", td.Weekday)
	}
	if td.MonthName != "January" {
		t.Errorf("MonthName = %q, want January", td.MonthName)
	}
}
