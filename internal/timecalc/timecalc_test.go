package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/personal-assistant/internal/timecalc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestUntil(t *testing.T) {
	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		due  time.Time
		want string
	}{
		{now.Add(65 * time.Minute), "in 1h 5m"},
		{now.Add(30 * time.Second), "in 30s"},
		{now, "in 0s"},
		{now.Add(-3 * time.Minute), "overdue 3m"},
	}
	for _, tt := range tests {
		if got := timecalc.Until(now, tt.due); got != tt.want {
			t.Errorf("Until(%v) = %q, want %q", tt.due, got, tt.want)
		}
	}
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2026, 2, 27, 10, 15, 0, 0, time.UTC)
	from, to := timecalc.StartOfDay(ts), timecalc.EndOfDay(ts)

	if want := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", from, want)
	}
	if want := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC); !to.Equal(want) {
		t.Errorf("EndOfDay = %v, want %v", to, want)
	}
	if !timecalc.Within(ts, from, to) {
		t.Error("Within: expected ts inside its own day")
	}
	if timecalc.Within(to.Add(time.Second), from, to) {
		t.Error("Within: next midnight should be outside")
	}
}
