package reader

import (
	"context"
	"time"

	"tsfeed/internal/models"
	"tsfeed/internal/store"
)

// mockStore is an in-memory Store for reader tests. Range queries filter a
// fixed row set; aggregation queries replay scripted responses in order.
type mockStore struct {
	rows []models.Point

	aggResponses [][]models.Bucket
	firstTS      *time.Time

	rangeCalls int
	aggCalls   int
	rangeErr   error
}

func (m *mockStore) RangeRows(_ context.Context, q store.RangeQuery) ([]models.Point, error) {
	m.rangeCalls++
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}

	var matched []models.Point
	for _, p := range m.rows {
		if q.From != nil && p.TS.Before(*q.From) {
			continue
		}
		if q.To != nil && !p.TS.Before(*q.To) {
			continue
		}
		if q.After != nil && !p.TS.After(*q.After) {
			continue
		}
		matched = append(matched, p)
	}

	if q.Offset >= len(matched) {
		return nil, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], nil
}

func (m *mockStore) BucketAggregate(_ context.Context, q store.AggQuery) ([]models.Bucket, error) {
	m.aggCalls++
	if len(m.aggResponses) == 0 {
		return nil, nil
	}
	resp := m.aggResponses[0]
	m.aggResponses = m.aggResponses[1:]
	return resp, nil
}

func (m *mockStore) FirstTimestamp(_ context.Context, index, tsField string, gte *time.Time) (time.Time, bool, error) {
	if m.firstTS == nil {
		return time.Time{}, false, nil
	}
	return *m.firstTS, true, nil
}
