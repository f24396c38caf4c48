package model

import (
	"fmt"
	"time"
)

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CombineDateTime resolves a "HH:MM" clock string against a service date.
func CombineDateTime(date time.Time, clock string) (time.Time, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(clock, "%d:%d", &hh, &mm); err != nil {
		return time.Time{}, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hh, mm, 0, 0, date.Location()), nil
}

// Midnight truncates t to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
