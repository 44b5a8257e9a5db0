package analytics

import (
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/app/models"
)

func TestComputeDailyStatFirstRun(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	stat := ComputeDailyStat(date, 120, 50, 5, 0, nil)
	if stat.TotalViews != 120 || stat.UserCount != 50 || stat.PaidUserCount != 5 {
		t.Fatalf("unexpected stat %+v", stat)
	}
	if stat.UserDelta != 50 || stat.PaidUserDelta != 5 {
		t.Fatalf("first run deltas should equal totals, got %+v", stat)
	}
	if stat.PrevDayViewsChangePercent != "0" {
		t.Fatalf("change percent = %q, want 0", stat.PrevDayViewsChangePercent)
	}
}

func TestComputeDailyStatWithPreviousDay(t *testing.T) {
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	prev := &models.DailyStat{
		TotalViews:    100,
		UserCount:     50,
		PaidUserCount: 5,
	}

	stat := ComputeDailyStat(date, 150, 56, 7, 0, prev)
	if stat.UserDelta != 6 || stat.PaidUserDelta != 2 {
		t.Fatalf("deltas = %d/%d, want 6/2", stat.UserDelta, stat.PaidUserDelta)
	}
	if stat.PrevDayViewsChangePercent != "50.00" {
		t.Fatalf("change percent = %q, want 50.00", stat.PrevDayViewsChangePercent)
	}

	// Shrinking traffic yields a negative percentage.
	stat = ComputeDailyStat(date, 75, 56, 7, 0, prev)
	if stat.PrevDayViewsChangePercent != "-25.00" {
		t.Fatalf("change percent = %q, want -25.00", stat.PrevDayViewsChangePercent)
	}
}

func TestComputeDailyStatZeroPreviousViews(t *testing.T) {
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	prev := &models.DailyStat{TotalViews: 0, UserCount: 10}

	stat := ComputeDailyStat(date, 40, 12, 0, 0, prev)
	if stat.PrevDayViewsChangePercent != "0" {
		t.Fatalf("change percent with zero base = %q, want 0", stat.PrevDayViewsChangePercent)
	}
}

func TestDayKey(t *testing.T) {
	// 23:30 in UTC+2 is still the previous UTC day.
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 2, 0, 30, 0, 0, loc)
	if got := DayKey(ts); got != "2024-03-01" {
		t.Fatalf("DayKey = %q, want 2024-03-01", got)
	}
}
