package interval

import (
	"fmt"
	"strconv"
	"time"
)

// Unit is a calendar/duration unit recognized in compact interval strings
type Unit string

const (
	Millisecond Unit = "ms"
	Second      Unit = "s"
	Minute      Unit = "m"
	Hour        Unit = "h"
	Day         Unit = "d"
	Week        Unit = "w"
	Month       Unit = "M"
	Quarter     Unit = "q"
	Year        Unit = "y"
)

// Interval is a parsed compact interval string like "15m" or "1M"
type Interval struct {
	Magnitude int
	Unit      Unit
}

var units = map[Unit]time.Duration{
	Millisecond: time.Millisecond,
	Second:      time.Second,
	Minute:      time.Minute,
	Hour:        time.Hour,
	Day:         24 * time.Hour,
	Week:        7 * 24 * time.Hour,
	// Month, Quarter and Year have no fixed width; see Delta
}

// Parse parses a compact interval string into magnitude and unit. All digit
// characters contribute to the magnitude and all non-digit characters to the
// unit marker, each concatenated in encounter order, so "1M0" parses the same
// as "10M". Callers must not rely on that for malformed input.
func Parse(s string) (Interval, error) {
	var num, mark string
	for _, r := range s {
		if r >= '0' && r <= '9' {
			num += string(r)
		} else {
			mark += string(r)
		}
	}

	if num == "" {
		return Interval{}, fmt.Errorf("%w: %q has no magnitude", ErrInvalidFormat, s)
	}

	unit := Unit(mark)
	if _, fixed := units[unit]; !fixed && unit != Month && unit != Quarter && unit != Year {
		return Interval{}, fmt.Errorf("%w: unrecognized unit %q in %q", ErrInvalidFormat, mark, s)
	}

	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return Interval{}, fmt.Errorf("%w: bad magnitude %q in %q", ErrInvalidFormat, num, s)
	}

	return Interval{Magnitude: n, Unit: unit}, nil
}

func (iv Interval) String() string {
	return strconv.Itoa(iv.Magnitude) + string(iv.Unit)
}

// Delta converts the interval into its arithmetic form: an exact duration for
// sub-month units, a calendar-relative month count for M/q/y.
func (iv Interval) Delta() Delta {
	switch iv.Unit {
	case Month:
		return Delta{months: iv.Magnitude}
	case Quarter:
		return Delta{months: 3 * iv.Magnitude}
	case Year:
		return Delta{months: 12 * iv.Magnitude}
	default:
		return Delta{fixed: time.Duration(iv.Magnitude) * units[iv.Unit]}
	}
}

// SpanWidths holds the per-unit widths the resampler uses to estimate how
// far a sub-range must reach to yield a target bucket count. They are
// deliberately generous over-estimates so the real count is never under-
// filled; the final partial bucket is discarded anyway.
var SpanWidths = map[Unit]time.Duration{
	Year:        365 * 24 * time.Hour,
	Quarter:     93 * 24 * time.Hour,
	Month:       31 * 24 * time.Hour,
	Week:        8 * 24 * time.Hour,
	Day:         26 * time.Hour,
	Hour:        61 * time.Minute,
	Minute:      time.Minute,
	Second:      time.Second,
	Millisecond: time.Millisecond,
}

// EstimateSpan returns an approximate wall-clock span that covers about
// `buckets` buckets of this interval. The result does not coincide with a
// bucket boundary.
func (iv Interval) EstimateSpan(buckets int) time.Duration {
	return time.Duration(iv.Magnitude) * time.Duration(buckets) * SpanWidths[iv.Unit]
}
