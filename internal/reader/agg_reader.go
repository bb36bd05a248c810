package reader

import (
	"context"
	"time"

	"tsfeed/internal/interval"
	"tsfeed/internal/metrics"
	"tsfeed/internal/models"
	"tsfeed/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBucketTarget is the approximate bucket count of one sub-range query
const DefaultBucketTarget = 100

// AggReader resamples a series into fixed-interval buckets via server-side
// aggregation and fills empty buckets by interpolation. Like PagedReader it
// owns a private high-water mark and is not safe for concurrent use.
type AggReader struct {
	store      store.Store
	name       string
	index      string
	tsField    string
	valueField string
	interval   interval.Interval
	method     store.AggMethod

	latest       *time.Time
	bucketTarget int
	progress     func(emitted int)
	logger       *logrus.Logger
}

func NewAggReader(st store.Store, name, index, tsField, valueField, aggInterval string, method store.AggMethod, logger *logrus.Logger) (*AggReader, error) {
	iv, err := interval.Parse(aggInterval)
	if err != nil {
		return nil, err
	}

	return &AggReader{
		store:        st,
		name:         name,
		index:        index,
		tsField:      tsField,
		valueField:   valueField,
		interval:     iv,
		method:       method,
		bucketTarget: DefaultBucketTarget,
		logger:       logger,
	}, nil
}

// Interval returns the bucket interval the reader resamples to
func (r *AggReader) Interval() interval.Interval {
	return r.interval
}

// SetLatest rebases the high-water mark to an externally observed timestamp
func (r *AggReader) SetLatest(ts time.Time) {
	r.latest = &ts
}

// OnProgress installs a callback invoked with the number of buckets emitted
// so far after each sub-range fetch
func (r *AggReader) OnProgress(fn func(emitted int)) {
	r.progress = fn
}

// Latest returns the current high-water mark
func (r *AggReader) Latest() (time.Time, bool) {
	if r.latest == nil {
		return time.Time{}, false
	}
	return *r.latest, true
}

// Read resamples everything newer than the high-water mark into one
// continuous bucketed series, interpolates empty buckets and advances the
// mark to the last emitted bucket. The final bucket is only approximately
// aligned; callers that need finalized buckets should discard it.
func (r *AggReader) Read(ctx context.Context) ([]decimal.Decimal, []time.Time, error) {
	buckets, err := r.resample(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(buckets) == 0 {
		return nil, nil, nil
	}

	timestamps := make([]time.Time, len(buckets))
	raw := make([]*decimal.Decimal, len(buckets))
	empty := 0
	for i, b := range buckets {
		timestamps[i] = b.TS
		raw[i] = b.Value
		if b.Value == nil {
			empty++
		}
	}

	values, err := FillGaps(raw)
	if err != nil {
		return nil, nil, err
	}

	last := timestamps[len(timestamps)-1]
	r.latest = &last

	metrics.BucketsEmitted.WithLabelValues(r.name).Add(float64(len(buckets)))
	metrics.GapsFilled.WithLabelValues(r.name).Add(float64(empty))
	r.logger.WithFields(logrus.Fields{
		"series":  r.name,
		"buckets": len(buckets),
		"filled":  empty,
		"latest":  last,
	}).Debug("Resampled read complete")

	return values, timestamps, nil
}

// resample runs the overlap-and-trim loop. Each sub-range is sized to yield
// about bucketTarget buckets; when more than one bucket comes back the last
// one is not yet final, so it is dropped and re-fetched as the first bucket
// of the next sub-range. The overlap is always trimmed, so no two emitted
// buckets share a timestamp. Zero or one buckets signal exhaustion.
func (r *AggReader) resample(ctx context.Context) ([]models.Bucket, error) {
	start, ok, err := r.startTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var out []models.Bucket
	for {
		end := start.Add(r.interval.EstimateSpan(r.bucketTarget))

		buckets, err := r.store.BucketAggregate(ctx, store.AggQuery{
			Index:      r.index,
			TSField:    r.tsField,
			ValueField: r.valueField,
			From:       start,
			To:         end,
			Interval:   r.interval,
			Method:     r.method,
		})
		if err != nil {
			return nil, err
		}

		if len(buckets) > 1 {
			start = buckets[len(buckets)-1].TS
			out = append(out, buckets[:len(buckets)-1]...)
			if r.progress != nil {
				r.progress(len(out))
			}
			continue
		}

		out = append(out, buckets...)
		if r.progress != nil {
			r.progress(len(out))
		}
		return out, nil
	}
}

// startTimestamp picks where the next resample begins: the high-water mark,
// or the series' first-ever timestamp on the first read
func (r *AggReader) startTimestamp(ctx context.Context) (time.Time, bool, error) {
	return r.store.FirstTimestamp(ctx, r.index, r.tsField, r.latest)
}
