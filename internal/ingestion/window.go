package ingestion

import "time"

// Window is an inclusive range of calendar days, both ends at 00:00 UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns [today-days, today], where today is now's calendar date.
func TrailingWindow(days int, now time.Time) Window {
	end := truncateToDate(now)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether d's calendar date falls inside the window.
func (w Window) Contains(d time.Time) bool {
	day := truncateToDate(d)
	return !day.Before(w.Start) && !day.After(w.End)
}

// truncateToDate keeps the calendar date of t as seen in t's location and
// rebases it to midnight UTC.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
