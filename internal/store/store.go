package store

import (
	"context"
	"time"

	"tsfeed/internal/interval"
	"tsfeed/internal/models"
)

// AggMethod selects the scalar aggregation applied inside each bucket
type AggMethod string

const (
	AggAvg   AggMethod = "avg"
	AggSum   AggMethod = "sum"
	AggMin   AggMethod = "min"
	AggMax   AggMethod = "max"
	AggCount AggMethod = "count"
)

// ValidAggMethods returns the recognized aggregation methods
func ValidAggMethods() []AggMethod {
	return []AggMethod{AggAvg, AggSum, AggMin, AggMax, AggCount}
}

// RangeQuery describes one page of an ascending raw fetch. From/To bound the
// range with >= / <; After applies the reader's high-water mark as a strict >.
type RangeQuery struct {
	Index      string
	TSField    string
	ValueField string
	From       *time.Time
	To         *time.Time
	After      *time.Time
	Offset     int
	Limit      int
}

// AggQuery describes a date-histogram aggregation over [From, To)
type AggQuery struct {
	Index      string
	TSField    string
	ValueField string
	From       time.Time
	To         time.Time
	Interval   interval.Interval
	Method     AggMethod
}

// Store is the paged time-range query service the readers consume. Errors
// propagate to the caller unmodified; retry policy lives with the caller.
type Store interface {
	// RangeRows returns one page of raw points, ascending by timestamp
	RangeRows(ctx context.Context, q RangeQuery) ([]models.Point, error)

	// BucketAggregate returns fixed-interval buckets over [From, To),
	// ascending, with a nil value for buckets that matched no rows
	BucketAggregate(ctx context.Context, q AggQuery) ([]models.Bucket, error)

	// FirstTimestamp returns the earliest timestamp in the series at or
	// after gte (all of it when gte is nil). ok is false for an empty series.
	FirstTimestamp(ctx context.Context, index, tsField string, gte *time.Time) (ts time.Time, ok bool, err error)
}
