package forecast

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"tsfeed/internal/interval"
)

// ErrPrecondition is returned when cadence estimation gets unusable input
var ErrPrecondition = errors.New("precondition violation")

// DefaultSampleSize bounds how many timestamps the estimator inspects.
// Series are presumed evenly spaced apart from a few missing values, so
// walking the full input buys nothing.
const DefaultSampleSize = 1000

// EstimateCadence estimates the typical spacing of an ordered timestamp
// sequence and returns a cursor seeded with the true last timestamp of the
// full input. The estimate is the median of consecutive differences over the
// first DefaultSampleSize timestamps: a few missing samples show up as large
// outlier gaps and leave the median untouched. Series with many missing
// points need preprocessing first; this estimator is not built for them.
func EstimateCadence(timestamps []time.Time) (*Cursor, error) {
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: no timestamps to estimate cadence from", ErrPrecondition)
	}

	last := timestamps[len(timestamps)-1]

	sample := timestamps
	if len(sample) > DefaultSampleSize {
		sample = sample[:DefaultSampleSize]
	}
	if len(sample) < 2 {
		return nil, fmt.Errorf("%w: need at least two timestamps to estimate cadence", ErrPrecondition)
	}

	diffs := make([]time.Duration, len(sample)-1)
	for i := 1; i < len(sample); i++ {
		diffs[i-1] = sample[i].Sub(sample[i-1])
	}

	return NewCursor(last, interval.FixedDelta(median(diffs))), nil
}

func median(diffs []time.Duration) time.Duration {
	sorted := make([]time.Duration, len(diffs))
	copy(sorted, diffs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
