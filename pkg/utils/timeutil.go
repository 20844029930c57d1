package utils

import (
	"time"
)

// Layouts used across the dashboard.
const (
	DateLayout          = "2006-01-02"
	TableTimeLayout     = "2006-01-02 15:04"
	NewsTimestampLayout = "2006-01-02T15:04:05Z"
)

// ET is the US Eastern time location used for market hours.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// LookbackWindow returns the window [now - days, now].
func LookbackWindow(now time.Time, days int) (from, to time.Time) {
	return now.AddDate(0, 0, -days), now
}

// ParseNewsTimestamp parses an article timestamp such as "2024-05-01T13:45:00Z".
func ParseNewsTimestamp(s string) (time.Time, error) {
	return time.Parse(NewsTimestampLayout, s)
}

// FormatDate formats a time.Time to "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTableTime formats a headline timestamp for the headline table.
func FormatTableTime(t time.Time) string {
	return t.Format(TableTimeLayout)
}

// MarketStatus returns a coarse US equity market status at t.
func MarketStatus(t time.Time) string {
	now := t.In(ET)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}

	open := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, ET)
	closing := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, ET)
	switch {
	case now.Before(open):
		return "PRE-MARKET"
	case now.Before(closing):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
