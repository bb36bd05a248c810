package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tsfeed/internal/cache"
	"tsfeed/internal/config"
	"tsfeed/internal/forecast"
	"tsfeed/internal/metrics"
	"tsfeed/internal/models"
	"tsfeed/internal/pubsub"
	"tsfeed/internal/reader"
	"tsfeed/internal/series"
	"tsfeed/internal/store"
	"tsfeed/internal/stream"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Service runs the per-series poll loops: read new data incrementally,
// resample and gap-fill, cache and publish the fresh buckets, and keep a
// forecast cursor per series in sync with the observed cadence.
type Service struct {
	store     store.Store
	cache     *cache.SeriesCache
	publisher *pubsub.Publisher
	hub       *stream.Hub
	cfg       *config.Config
	logger    *logrus.Logger

	mu    sync.RWMutex
	feeds map[string]*feedState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// feedState is the private state of one tracked series. Each series is
// polled by exactly one goroutine; the service mutex only guards the map and
// the cursor handoff to forecast requests.
type feedState struct {
	def    series.Definition
	agg    *reader.AggReader
	raw    *reader.PagedReader
	cursor *forecast.Cursor
}

func NewService(st store.Store, seriesCache *cache.SeriesCache, publisher *pubsub.Publisher, hub *stream.Hub, cfg *config.Config, logger *logrus.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		store:     st,
		cache:     seriesCache,
		publisher: publisher,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		feeds:     make(map[string]*feedState),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register adds a series definition and builds its reader
func (s *Service) Register(def series.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	fs := &feedState{def: def}
	if def.Raw {
		fs.raw = reader.NewPagedReader(s.store, def.Name, def.Index, def.TSField, def.ValueField, s.logger)
	} else {
		agg, err := reader.NewAggReader(s.store, def.Name, def.Index, def.TSField, def.ValueField, def.Interval, def.AggMethod(), s.logger)
		if err != nil {
			return err
		}
		fs.agg = agg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.feeds[def.Name]; exists {
		return fmt.Errorf("series %s already registered", def.Name)
	}
	s.feeds[def.Name] = fs
	return nil
}

// Start launches one poll loop per registered series
func (s *Service) Start() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fs := range s.feeds {
		s.wg.Add(1)
		go s.pollLoop(fs)
	}

	s.logger.Infof("Feed service started with %d series", len(s.feeds))
}

// Stop gracefully stops all poll loops
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Feed service stopped")
}

func (s *Service) pollLoop(fs *feedState) {
	defer s.wg.Done()

	// read immediately, then on the poll interval
	s.pollOnce(fs)

	ticker := time.NewTicker(s.cfg.Feed.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(fs)
		}
	}
}

func (s *Service) pollOnce(fs *feedState) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Feed.PollInterval)
	defer cancel()

	var timestamps []time.Time
	var values []decimal.Decimal
	var err error

	if fs.raw != nil {
		timestamps, values, err = fs.raw.Read(ctx, nil, nil)
	} else {
		values, timestamps, err = fs.agg.Read(ctx)
	}
	if err != nil {
		s.logger.WithError(err).WithField("series", fs.def.Name).Error("Feed poll failed")
		return
	}
	if len(timestamps) == 0 {
		return
	}

	window := &models.Series{
		Name:       fs.def.Name,
		Timestamps: timestamps,
		Values:     values,
	}

	if err := s.cache.Set(ctx, window, s.cfg.Cache.SeriesTTL); err != nil {
		s.logger.WithError(err).WithField("series", fs.def.Name).Warn("Failed to cache series window")
	}

	if err := s.publisher.PublishSeries(ctx, window); err != nil {
		s.logger.WithError(err).WithField("series", fs.def.Name).Warn("Failed to publish series window")
	}

	for i := range timestamps {
		bucket := models.ToResponse(fs.def.Name, timestamps[i], values[i])
		if err := s.publisher.PublishBucket(ctx, bucket); err != nil {
			s.logger.WithError(err).WithField("series", fs.def.Name).Debug("Failed to publish bucket")
		}
		s.hub.Broadcast(bucket)
	}

	s.syncCursor(fs, timestamps)
}

// syncCursor re-estimates the sampling cadence from the freshly observed
// timestamps and rebases the series' forecast cursor, discarding any
// speculative state from earlier forecasts
func (s *Service) syncCursor(fs *feedState, timestamps []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(timestamps) >= 2 {
		cursor, err := forecast.EstimateCadence(timestamps)
		if err == nil {
			fs.cursor = cursor
			return
		}
		s.logger.WithError(err).WithField("series", fs.def.Name).Warn("Cadence estimation failed")
	}

	if fs.cursor != nil {
		fs.cursor.SetLatest(timestamps[len(timestamps)-1])
	}
}

// Forecast returns the next `steps` expected timestamps of a series without
// disturbing its live cursor
func (s *Service) Forecast(name string, steps int) ([]time.Time, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive")
	}

	s.mu.RLock()
	fs, ok := s.feeds[name]
	var cursor *forecast.Cursor
	if ok && fs.cursor != nil {
		cursor = fs.cursor.Copy()
	}
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown series %s", name)
	}
	if cursor == nil {
		return nil, fmt.Errorf("series %s has no observed data yet", name)
	}

	metrics.ForecastRequests.WithLabelValues(name).Inc()

	out := make([]time.Time, steps)
	for i := range out {
		out[i] = cursor.Read()
	}
	return out, nil
}

// Window returns the cached latest window of a series
func (s *Service) Window(ctx context.Context, name string) (*models.Series, error) {
	return s.cache.Get(ctx, name)
}

// SeriesNames lists the registered series
func (s *Service) SeriesNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.feeds))
	for name := range s.feeds {
		names = append(names, name)
	}
	return names
}

// Stats reports per-series feed counters for the stats endpoint
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.feeds))
	for name, fs := range s.feeds {
		entry := map[string]interface{}{
			"buckets_emitted": metrics.CounterTotal(metrics.BucketsEmitted, name),
			"gaps_filled":     metrics.CounterTotal(metrics.GapsFilled, name),
			"pages_fetched":   metrics.CounterTotal(metrics.PagesFetched, name),
		}
		if fs.cursor != nil {
			entry["next_expected_ts"] = models.FormatTS(fs.cursor.Peek())
		}
		out[name] = entry
	}
	return out
}
