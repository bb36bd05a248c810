package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// Store query metrics
	StoreQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tsfeed_store_query_latency_ms",
			Help:    "Store query latency in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"operation"}, // range, aggregate, first_ts
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_store_query_errors_total",
			Help: "Total store query errors",
		},
		[]string{"operation"},
	)

	// Reader metrics
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_pages_fetched_total",
			Help: "Total raw pages fetched by series",
		},
		[]string{"series"},
	)

	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_rows_read_total",
			Help: "Total raw rows read by series",
		},
		[]string{"series"},
	)

	BucketsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_buckets_emitted_total",
			Help: "Total resampled buckets emitted by series",
		},
		[]string{"series"},
	)

	GapsFilled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_gaps_filled_total",
			Help: "Total empty buckets filled by interpolation",
		},
		[]string{"series"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"tier"},
	)

	// Publishing metrics
	PublishSuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_publish_success_total",
			Help: "Total successful bucket publishes",
		},
		[]string{"transport"}, // redis, websocket
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_publish_failures_total",
			Help: "Total failed bucket publishes",
		},
		[]string{"transport"},
	)

	// Forecast metrics
	ForecastRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsfeed_forecast_requests_total",
			Help: "Total forecast preview requests by series",
		},
		[]string{"series"},
	)

	ActiveStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsfeed_stream_clients_active",
			Help: "Number of connected WebSocket stream clients",
		},
	)
)

// TrackLatency measures and records latency against a histogram
func TrackLatency(start time.Time, histogram prometheus.Observer) {
	histogram.Observe(float64(time.Since(start).Milliseconds()))
}

// CounterTotal reads the current value of a labelled counter. Used by the
// stats endpoint; for anything serious query Prometheus instead.
func CounterTotal(vec *prometheus.CounterVec, labels ...string) float64 {
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if c.Write(m) != nil {
		return 0
	}
	return m.Counter.GetValue()
}
