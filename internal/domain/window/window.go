// Package window computes the local-calendar-day date range a sync run
// operates over and re-checks order dates against it.
//
// The marketplace search accepts ISO bounds but may return orders created
// fractionally outside them, and the date used in the query can differ from
// the authoritative per-order date. Every summary is therefore re-checked
// against the window in the fixed local timezone before processing.
package window

import (
	"time"

	"github.com/ordersync/meli-sync-backend/internal/meli"
)

// Window is an inclusive [Start, End] range in a fixed local timezone
type Window struct {
	Start time.Time
	End   time.Time
	loc   *time.Location
}

// Compute returns the window of lookbackDays full calendar days ending on
// now's day, in loc: start is today minus (lookbackDays-1) days at local
// midnight, end is today at local end-of-day.
func Compute(now time.Time, lookbackDays int, loc *time.Location) Window {
	if lookbackDays < 1 {
		lookbackDays = 1
	}

	local := now.In(loc)
	year, month, day := local.Date()

	start := time.Date(year, month, day, 0, 0, 0, 0, loc).AddDate(0, 0, -(lookbackDays - 1))
	end := time.Date(year, month, day, 23, 59, 59, int(time.Second-time.Nanosecond), loc)

	return Window{Start: start, End: end, loc: loc}
}

// Contains reports whether t falls inside the window, converting t to the
// window's timezone first
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.Location())
	return !local.Before(w.Start) && !local.After(w.End)
}

// Location returns the window's timezone
func (w Window) Location() *time.Location {
	if w.loc != nil {
		return w.loc
	}
	return w.Start.Location()
}

// FilterSummaries drops summaries whose own creation date is unparsable or
// falls outside the window. The upstream query bounds are not trusted.
func FilterSummaries(summaries []meli.OrderSummary, w Window) []meli.OrderSummary {
	filtered := make([]meli.OrderSummary, 0, len(summaries))
	for _, s := range summaries {
		created, err := meli.ParseDate(s.DateCreated)
		if err != nil {
			continue
		}
		if w.Contains(created) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
