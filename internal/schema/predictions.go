package schema

import (
	"context"
	"fmt"
	"time"

	"tsfeed/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Prediction is one forecast row written for downstream consumers
type Prediction struct {
	TS             time.Time       `json:"ts"`
	PredictedValue decimal.Decimal `json:"predicted_value"`
	CIMin          decimal.Decimal `json:"ci_min"`
	CIMax          decimal.Decimal `json:"ci_max"`
}

// PredictionStore manages the output schema the forecasting pipeline writes
// into: a timestamp, the predicted value and a confidence interval.
type PredictionStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewPredictionStore(conn driver.Conn, logger *logrus.Logger) *PredictionStore {
	return &PredictionStore{
		conn:   conn,
		logger: logger,
	}
}

// EnsureTable creates the prediction output table for a series if missing
func (s *PredictionStore) EnsureTable(ctx context.Context, name string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ts DateTime64(3),
			predicted_value Float64 CODEC(Gorilla, ZSTD(1)),
			ci_min Float64 CODEC(Gorilla, ZSTD(1)),
			ci_max Float64 CODEC(Gorilla, ZSTD(1)),
			created_at DateTime DEFAULT now()
		)
		ENGINE = ReplacingMergeTree(created_at)
		ORDER BY ts
		SETTINGS index_granularity = 8192`, quoteIdent(name))

	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create prediction table %s: %w", name, err)
	}

	s.logger.WithField("table", name).Info("Prediction table ready")
	return nil
}

// WriteBatch inserts prediction rows efficiently
func (s *PredictionStore) WriteBatch(ctx context.Context, name string, predictions []Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (ts, predicted_value, ci_min, ci_max)", quoteIdent(name)))
	if err != nil {
		return fmt.Errorf("failed to prepare prediction batch: %w", err)
	}

	for _, p := range predictions {
		predicted, _ := p.PredictedValue.Float64()
		ciMin, _ := p.CIMin.Float64()
		ciMax, _ := p.CIMax.Float64()

		if err := batch.Append(p.TS, predicted, ciMin, ciMax); err != nil {
			return fmt.Errorf("failed to append prediction: %w", err)
		}
	}

	return batch.Send()
}

// Latest returns the most recent prediction for a series
func (s *PredictionStore) Latest(ctx context.Context, name string) (*Prediction, error) {
	query := fmt.Sprintf(
		"SELECT ts, predicted_value, ci_min, ci_max FROM %s ORDER BY ts DESC LIMIT 1",
		quoteIdent(name))

	row := s.conn.QueryRow(ctx, query)

	var ts time.Time
	var predicted, ciMin, ciMax float64
	if err := row.Scan(&ts, &predicted, &ciMin, &ciMax); err != nil {
		return nil, err
	}

	return &Prediction{
		TS:             ts.UTC(),
		PredictedValue: decimal.NewFromFloat(predicted),
		CIMin:          decimal.NewFromFloat(ciMin),
		CIMax:          decimal.NewFromFloat(ciMax),
	}, nil
}

// ToResponse converts a prediction to wire format
func (p *Prediction) ToResponse() map[string]string {
	return map[string]string{
		"ts":              models.FormatTS(p.TS),
		"predicted_value": p.PredictedValue.String(),
		"ci_min":          p.CIMin.String(),
		"ci_max":          p.CIMax.String(),
	}
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}
