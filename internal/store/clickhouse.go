package store

import (
	"context"
	"fmt"
	"time"

	"tsfeed/internal/interval"
	"tsfeed/internal/metrics"
	"tsfeed/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClickHouseStore implements Store against a ClickHouse connection. Every
// outbound query passes the politeness limiter first so a tight pagination
// loop cannot flood the cluster.
type ClickHouseStore struct {
	conn    driver.Conn
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClickHouseStore(conn driver.Conn, queriesPerSec float64, logger *logrus.Logger) *ClickHouseStore {
	if queriesPerSec <= 0 {
		queriesPerSec = 50
	}
	return &ClickHouseStore{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(queriesPerSec), int(queriesPerSec)),
		logger:  logger,
	}
}

var chUnits = map[interval.Unit]string{
	interval.Millisecond: "MILLISECOND",
	interval.Second:      "SECOND",
	interval.Minute:      "MINUTE",
	interval.Hour:        "HOUR",
	interval.Day:         "DAY",
	interval.Week:        "WEEK",
	interval.Month:       "MONTH",
	interval.Quarter:     "QUARTER",
	interval.Year:        "YEAR",
}

// RangeRows fetches one page of raw points, ascending by timestamp
func (s *ClickHouseStore) RangeRows(ctx context.Context, q RangeQuery) ([]models.Point, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT `%s`, `%s` FROM `%s` WHERE 1=1", q.TSField, q.ValueField, q.Index)
	args := []interface{}{}

	if q.From != nil {
		query += fmt.Sprintf(" AND `%s` >= ?", q.TSField)
		args = append(args, *q.From)
	}
	if q.To != nil {
		query += fmt.Sprintf(" AND `%s` < ?", q.TSField)
		args = append(args, *q.To)
	}
	if q.After != nil {
		query += fmt.Sprintf(" AND `%s` > ?", q.TSField)
		args = append(args, *q.After)
	}

	query += fmt.Sprintf(" ORDER BY `%s` ASC LIMIT ? OFFSET ?", q.TSField)
	args = append(args, q.Limit, q.Offset)

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	metrics.StoreQueryLatency.WithLabelValues("range").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("range").Inc()
		return nil, fmt.Errorf("range query on %s failed: %w", q.Index, err)
	}
	defer rows.Close()

	var points []models.Point
	for rows.Next() {
		var ts time.Time
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, models.Point{TS: ts.UTC(), Value: decimal.NewFromFloat(value)})
	}

	return points, rows.Err()
}

// BucketAggregate runs a date-histogram aggregation over [From, To). Buckets
// with no rows come back with a nil value; WITH FILL materializes them so the
// interpolator sees the gaps.
func (s *ClickHouseStore) BucketAggregate(ctx context.Context, q AggQuery) ([]models.Bucket, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	unit, ok := chUnits[q.Interval.Unit]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interval.ErrInvalidFormat, q.Interval)
	}

	agg, err := aggExpr(q.Method, q.ValueField)
	if err != nil {
		return nil, err
	}

	step := fmt.Sprintf("INTERVAL %d %s", q.Interval.Magnitude, unit)
	query := fmt.Sprintf(
		"SELECT toStartOfInterval(`%s`, %s) AS bucket, %s AS agg FROM `%s`"+
			" WHERE `%s` >= ? AND `%s` < ?"+
			" GROUP BY bucket ORDER BY bucket ASC WITH FILL STEP %s",
		q.TSField, step, agg, q.Index, q.TSField, q.TSField, step)

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, q.From, q.To)
	metrics.StoreQueryLatency.WithLabelValues("aggregate").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("aggregate").Inc()
		return nil, fmt.Errorf("bucket aggregation on %s failed: %w", q.Index, err)
	}
	defer rows.Close()

	var buckets []models.Bucket
	for rows.Next() {
		var ts time.Time
		var value *float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}

		bucket := models.Bucket{TS: ts.UTC()}
		if value != nil {
			d := decimal.NewFromFloat(*value)
			bucket.Value = &d
		}
		buckets = append(buckets, bucket)
	}

	return buckets, rows.Err()
}

// FirstTimestamp returns the earliest timestamp at or after gte
func (s *ClickHouseStore) FirstTimestamp(ctx context.Context, index, tsField string, gte *time.Time) (time.Time, bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return time.Time{}, false, err
	}

	query := fmt.Sprintf("SELECT `%s` FROM `%s`", tsField, index)
	args := []interface{}{}
	if gte != nil {
		query += fmt.Sprintf(" WHERE `%s` >= ?", tsField)
		args = append(args, *gte)
	}
	query += fmt.Sprintf(" ORDER BY `%s` ASC LIMIT 1", tsField)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues("first_ts").Inc()
		return time.Time{}, false, fmt.Errorf("first-timestamp query on %s failed: %w", index, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return time.Time{}, false, rows.Err()
	}

	var ts time.Time
	if err := rows.Scan(&ts); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to scan first timestamp: %w", err)
	}

	return ts.UTC(), true, nil
}

// aggExpr maps an aggregation method to a Nullable ClickHouse expression so
// that WITH FILL rows default to NULL instead of zero
func aggExpr(method AggMethod, valueField string) (string, error) {
	switch method {
	case AggAvg:
		return fmt.Sprintf("avgOrNull(`%s`)", valueField), nil
	case AggSum:
		return fmt.Sprintf("sumOrNull(`%s`)", valueField), nil
	case AggMin:
		return fmt.Sprintf("minOrNull(`%s`)", valueField), nil
	case AggMax:
		return fmt.Sprintf("maxOrNull(`%s`)", valueField), nil
	case AggCount:
		return fmt.Sprintf("toNullable(toFloat64(count(`%s`)))", valueField), nil
	default:
		return "", fmt.Errorf("unsupported aggregation method %q", method)
	}
}
