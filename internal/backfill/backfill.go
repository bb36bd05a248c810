package backfill

import (
	"context"
	"fmt"
	"time"

	"tsfeed/internal/forecast"
	"tsfeed/internal/interval"
	"tsfeed/internal/models"
	"tsfeed/internal/reader"
	"tsfeed/internal/schema"
	"tsfeed/internal/series"
	"tsfeed/internal/store"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Job describes one backfill run
type Job struct {
	Definition     series.Definition
	SeedPrediction bool
}

// Result summarizes what a backfill run processed
type Result struct {
	Buckets    int
	FirstTS    time.Time
	LastTS     time.Time
	NextTS     time.Time
	HasCadence bool
}

// Backfiller replays a series' full history through the resampler, reports
// what it saw, and optionally seeds the prediction table so the forecasting
// pipeline has a starting row before its first real run.
type Backfiller struct {
	store       store.Store
	predictions *schema.PredictionStore
	logger      *logrus.Logger
}

func New(st store.Store, predictions *schema.PredictionStore, logger *logrus.Logger) *Backfiller {
	return &Backfiller{
		store:       st,
		predictions: predictions,
		logger:      logger,
	}
}

// Run resamples the series' entire history and returns a summary
func (b *Backfiller) Run(ctx context.Context, job *Job) (*Result, error) {
	def := job.Definition
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.Raw {
		return nil, fmt.Errorf("series %s is raw; backfill only makes sense for resampled series", def.Name)
	}

	agg, err := reader.NewAggReader(b.store, def.Name, def.Index, def.TSField, def.ValueField, def.Interval, def.AggMethod(), b.logger)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(b.estimateBuckets(ctx, def, agg.Interval()),
		progressbar.OptionSetDescription(fmt.Sprintf("Resampling %s", def.Name)),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	agg.OnProgress(func(emitted int) { _ = bar.Set(emitted) })

	values, timestamps, err := agg.Read(ctx)
	if err != nil {
		return nil, err
	}
	_ = bar.Finish()
	fmt.Println()

	if len(timestamps) == 0 {
		b.logger.Warnf("Series %s is empty, nothing to backfill", def.Name)
		return &Result{}, nil
	}

	result := &Result{
		Buckets: len(timestamps),
		FirstTS: timestamps[0],
		LastTS:  timestamps[len(timestamps)-1],
	}

	cursor, err := forecast.EstimateCadence(timestamps)
	if err != nil {
		b.logger.WithError(err).Warn("Could not estimate cadence")
	} else {
		result.NextTS = cursor.Peek()
		result.HasCadence = true
	}

	if job.SeedPrediction && result.HasCadence {
		if err := b.seedPrediction(ctx, def.Name, result.NextTS, values[len(values)-1]); err != nil {
			return nil, err
		}
	}

	b.logger.WithFields(logrus.Fields{
		"series":  def.Name,
		"buckets": result.Buckets,
		"first":   models.FormatTS(result.FirstTS),
		"last":    models.FormatTS(result.LastTS),
	}).Info("Backfill complete")

	return result, nil
}

// seedPrediction writes a persistence forecast (last observed value carried
// forward, degenerate confidence interval) at the next expected timestamp
func (b *Backfiller) seedPrediction(ctx context.Context, name string, nextTS time.Time, lastValue decimal.Decimal) error {
	table := name + "_predictions"
	if err := b.predictions.EnsureTable(ctx, table); err != nil {
		return err
	}

	return b.predictions.WriteBatch(ctx, table, []schema.Prediction{{
		TS:             nextTS,
		PredictedValue: lastValue,
		CIMin:          lastValue,
		CIMax:          lastValue,
	}})
}

// estimateBuckets sizes the progress bar from the series' wall-clock extent.
// Approximate on purpose; -1 (spinner mode) when the extent is unknown.
func (b *Backfiller) estimateBuckets(ctx context.Context, def series.Definition, iv interval.Interval) int {
	first, ok, err := b.store.FirstTimestamp(ctx, def.Index, def.TSField, nil)
	if err != nil || !ok {
		return -1
	}

	width := iv.EstimateSpan(1)
	if width <= 0 {
		return -1
	}
	return int(time.Since(first)/width) + 1
}
