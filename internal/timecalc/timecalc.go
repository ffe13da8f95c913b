package timecalc

import (
	"fmt"
	"time"
)

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// Until describes how far due is from now: "in 1h 5m", or "overdue 3m"
// once due has passed.
func Until(now, due time.Time) string {
	d := int64(due.Sub(now).Seconds())
	if d < 0 {
		return "overdue " + FormatDuration(-d)
	}
	return "in " + FormatDuration(d)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// Within reports whether t falls in [from, to].
func Within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
