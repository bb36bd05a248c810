package cache

import (
	"context"
	"encoding/json"
	"time"

	"tsfeed/internal/metrics"
	"tsfeed/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SeriesCache keeps the most recently resampled window of each series in
// Redis so downstream consumers can pick up the feed without a store query.
type SeriesCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewSeriesCache(client *redis.Client, logger *logrus.Logger) *SeriesCache {
	return &SeriesCache{
		client: client,
		logger: logger,
	}
}

// Set caches the latest filled window of a series
func (c *SeriesCache) Set(ctx context.Context, series *models.Series, ttl time.Duration) error {
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, "series:"+series.Name, data, ttl).Err()
}

// Get retrieves a cached series window
func (c *SeriesCache) Get(ctx context.Context, name string) (*models.Series, error) {
	data, err := c.client.Get(ctx, "series:"+name).Result()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheMisses.WithLabelValues("redis").Inc()
		}
		return nil, err
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()

	var series models.Series
	if err := json.Unmarshal([]byte(data), &series); err != nil {
		return nil, err
	}

	return &series, nil
}

// Delete removes a series window from the cache
func (c *SeriesCache) Delete(ctx context.Context, name string) error {
	return c.client.Del(ctx, "series:"+name).Err()
}
