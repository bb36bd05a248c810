package interval

import (
	"errors"
	"time"
)

// ErrInvalidFormat is returned when an interval string cannot be parsed
var ErrInvalidFormat = errors.New("invalid interval format")

// Delta is the spacing between two consecutive timestamps. It is either an
// exact duration or a calendar-relative month count; the two cannot be
// collapsed into one representation because months vary in absolute length.
type Delta struct {
	fixed  time.Duration
	months int
}

// FixedDelta wraps an exact duration
func FixedDelta(d time.Duration) Delta {
	return Delta{fixed: d}
}

// MonthsDelta wraps a calendar-relative month count
func MonthsDelta(n int) Delta {
	return Delta{months: n}
}

// IsCalendar reports whether the delta is calendar-relative
func (d Delta) IsCalendar() bool {
	return d.months != 0
}

// Duration returns the exact duration of a fixed delta. For a calendar delta
// it returns a 31-day-per-month approximation; callers that need exact
// placement must use AddTo instead.
func (d Delta) Duration() time.Duration {
	if d.months != 0 {
		return time.Duration(d.months) * 31 * 24 * time.Hour
	}
	return d.fixed
}

// AddTo applies the delta to a timestamp with correct calendar arithmetic
func (d Delta) AddTo(t time.Time) time.Time {
	if d.months != 0 {
		return t.AddDate(0, d.months, 0)
	}
	return t.Add(d.fixed)
}
