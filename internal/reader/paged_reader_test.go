package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"tsfeed/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func syntheticRows(n int, start time.Time, spacing time.Duration) []models.Point {
	rows := make([]models.Point, n)
	for i := range rows {
		rows[i] = models.Point{
			TS:    start.Add(time.Duration(i) * spacing),
			Value: decimal.NewFromInt(int64(i)),
		}
	}
	return rows
}

func TestPagedReaderPagination(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{rows: syntheticRows(25000, start, time.Second)}
	r := NewPagedReader(st, "test", "sensor", "ts", "value", testLogger())

	timestamps, values, err := r.Read(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(timestamps) != 25000 || len(values) != 25000 {
		t.Fatalf("got %d timestamps and %d values, want 25000 each", len(timestamps), len(values))
	}
	// 10000 + 10000 + short 5000
	if st.rangeCalls != 3 {
		t.Errorf("store saw %d page requests, want 3", st.rangeCalls)
	}

	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			t.Fatalf("timestamps not strictly increasing at index %d", i)
		}
	}

	latest, ok := r.Latest()
	if !ok || !latest.Equal(timestamps[len(timestamps)-1]) {
		t.Errorf("high-water mark = %v, want %v", latest, timestamps[len(timestamps)-1])
	}
}

func TestPagedReaderExactPageMultiple(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{rows: syntheticRows(20000, start, time.Second)}
	r := NewPagedReader(st, "test", "sensor", "ts", "value", testLogger())

	timestamps, _, err := r.Read(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(timestamps) != 20000 {
		t.Fatalf("got %d rows, want 20000", len(timestamps))
	}
	// a final page of exactly pageSize rows costs one extra empty request,
	// which must terminate the loop: 10000 + 10000 + empty
	if st.rangeCalls != 3 {
		t.Errorf("store saw %d page requests, want 3", st.rangeCalls)
	}

	latest, ok := r.Latest()
	if !ok || !latest.Equal(timestamps[len(timestamps)-1]) {
		t.Errorf("high-water mark = %v, want %v", latest, timestamps[len(timestamps)-1])
	}
}

func TestPagedReaderIdempotence(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{rows: syntheticRows(100, start, time.Minute)}
	r := NewPagedReader(st, "test", "sensor", "ts", "value", testLogger())

	first, _, err := r.Read(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if len(first) != 100 {
		t.Fatalf("first read returned %d rows", len(first))
	}

	markBefore, _ := r.Latest()

	second, _, err := r.Read(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second read returned %d rows, want 0", len(second))
	}

	markAfter, ok := r.Latest()
	if !ok || !markAfter.Equal(markBefore) {
		t.Errorf("high-water mark moved from %v to %v on empty read", markBefore, markAfter)
	}
}

func TestPagedReaderIncremental(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{rows: syntheticRows(100, start, time.Minute)}
	r := NewPagedReader(st, "test", "sensor", "ts", "value", testLogger())

	if _, _, err := r.Read(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}

	// new data arrives
	st.rows = append(st.rows, syntheticRows(10, start.Add(100*time.Minute), time.Minute)...)

	timestamps, _, err := r.Read(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(timestamps) != 10 {
		t.Fatalf("incremental read returned %d rows, want 10", len(timestamps))
	}
	if !timestamps[0].Equal(start.Add(100 * time.Minute)) {
		t.Errorf("incremental read started at %v", timestamps[0])
	}
}

func TestPagedReaderErrorLeavesMark(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{rows: syntheticRows(50, start, time.Minute)}
	r := NewPagedReader(st, "test", "sensor", "ts", "value", testLogger())

	if _, _, err := r.Read(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	mark, _ := r.Latest()

	st.rangeErr = errors.New("store unreachable")
	if _, _, err := r.Read(context.Background(), nil, nil); err == nil {
		t.Fatal("expected store error to propagate")
	}

	after, ok := r.Latest()
	if !ok || !after.Equal(mark) {
		t.Errorf("high-water mark changed on failed read: %v -> %v", mark, after)
	}
}

func TestPagedReaderRangeBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{rows: syntheticRows(100, start, time.Minute)}
	r := NewPagedReader(st, "test", "sensor", "ts", "value", testLogger())

	from := start.Add(10 * time.Minute)
	to := start.Add(20 * time.Minute)
	timestamps, _, err := r.Read(context.Background(), &from, &to)
	if err != nil {
		t.Fatal(err)
	}

	// [from, to) is half-open
	if len(timestamps) != 10 {
		t.Fatalf("bounded read returned %d rows, want 10", len(timestamps))
	}
	if !timestamps[0].Equal(from) {
		t.Errorf("first row at %v, want %v", timestamps[0], from)
	}
	if !timestamps[len(timestamps)-1].Before(to) {
		t.Errorf("last row %v not before %v", timestamps[len(timestamps)-1], to)
	}
}
