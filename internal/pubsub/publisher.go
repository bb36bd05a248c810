package pubsub

import (
	"context"
	"encoding/json"

	"tsfeed/internal/metrics"
	"tsfeed/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Publisher struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPublisher(client *redis.Client, logger *logrus.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// PublishBucket publishes one freshly resampled bucket to the series channel
func (p *Publisher) PublishBucket(ctx context.Context, bucket *models.BucketResponse) error {
	data, err := json.Marshal(bucket)
	if err != nil {
		return err
	}

	channel := "tsfeed:series:" + bucket.Series
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		metrics.PublishFailures.WithLabelValues("redis").Inc()
		return err
	}
	metrics.PublishSuccess.WithLabelValues("redis").Inc()
	return nil
}

// PublishSeries publishes a whole refreshed window at once
func (p *Publisher) PublishSeries(ctx context.Context, series *models.Series) error {
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}

	channel := "tsfeed:window:" + series.Name
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		metrics.PublishFailures.WithLabelValues("redis").Inc()
		return err
	}
	metrics.PublishSuccess.WithLabelValues("redis").Inc()
	return nil
}
