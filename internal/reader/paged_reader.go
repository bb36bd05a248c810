package reader

import (
	"context"
	"time"

	"tsfeed/internal/metrics"
	"tsfeed/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultPageSize is the row count of one range-query page
const DefaultPageSize = 10000

// PagedReader fetches raw points incrementally. It owns a private high-water
// mark, so repeated Reads only return rows not seen before. Not safe for
// concurrent use; run one reader per series.
type PagedReader struct {
	store      store.Store
	name       string
	index      string
	tsField    string
	valueField string

	latest   *time.Time
	pageSize int
	logger   *logrus.Logger
}

func NewPagedReader(st store.Store, name, index, tsField, valueField string, logger *logrus.Logger) *PagedReader {
	return &PagedReader{
		store:      st,
		name:       name,
		index:      index,
		tsField:    tsField,
		valueField: valueField,
		pageSize:   DefaultPageSize,
		logger:     logger,
	}
}

// SetLatest rebases the high-water mark to an externally observed timestamp
func (r *PagedReader) SetLatest(ts time.Time) {
	r.latest = &ts
}

// Latest returns the current high-water mark
func (r *PagedReader) Latest() (time.Time, bool) {
	if r.latest == nil {
		return time.Time{}, false
	}
	return *r.latest, true
}

// Read fetches all rows in [from, to) newer than the high-water mark, paging
// until a short page signals exhaustion. A final page of exactly pageSize rows
// costs one extra empty request, which terminates the loop. The high-water
// mark moves only after every page succeeded, so a failed read retries
// without duplication.
func (r *PagedReader) Read(ctx context.Context, from, to *time.Time) ([]time.Time, []decimal.Decimal, error) {
	var timestamps []time.Time
	var values []decimal.Decimal

	offset := 0
	for {
		points, err := r.store.RangeRows(ctx, store.RangeQuery{
			Index:      r.index,
			TSField:    r.tsField,
			ValueField: r.valueField,
			From:       from,
			To:         to,
			After:      r.latest,
			Offset:     offset,
			Limit:      r.pageSize,
		})
		if err != nil {
			return nil, nil, err
		}

		metrics.PagesFetched.WithLabelValues(r.name).Inc()
		for _, p := range points {
			timestamps = append(timestamps, p.TS)
			values = append(values, p.Value)
		}

		if len(points) < r.pageSize {
			break
		}
		offset += r.pageSize
	}

	if len(timestamps) > 0 {
		last := timestamps[len(timestamps)-1]
		r.latest = &last
		metrics.RowsRead.WithLabelValues(r.name).Add(float64(len(timestamps)))
		r.logger.WithFields(logrus.Fields{
			"series": r.name,
			"rows":   len(timestamps),
			"latest": last,
		}).Debug("Raw read complete")
	}

	return timestamps, values, nil
}
