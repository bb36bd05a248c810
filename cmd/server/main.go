package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"tsfeed/internal/cache"
	"tsfeed/internal/config"
	"tsfeed/internal/models"
	"tsfeed/internal/pubsub"
	"tsfeed/internal/schema"
	"tsfeed/internal/series"
	feedService "tsfeed/internal/service/feed"
	"tsfeed/internal/store"
	"tsfeed/internal/stream"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	startTime = time.Now()
)

func main() {
	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.Info("Starting tsfeed service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config: ", err)
	}

	// Set log level
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	// Initialize ClickHouse
	logger.Info("Connecting to ClickHouse...")
	clickhouseConn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouse.Host, cfg.ClickHouse.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		logger.Fatal("Failed to connect to ClickHouse: ", err)
	}
	defer clickhouseConn.Close()

	if err := clickhouseConn.Ping(context.Background()); err != nil {
		logger.Fatal("ClickHouse ping failed: ", err)
	}
	logger.Info("ClickHouse connected successfully")

	// Initialize Redis
	logger.Info("Connecting to Redis...")
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis: ", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected successfully")

	// Initialize store, cache, pub/sub and stream hub
	tsStore := store.NewClickHouseStore(clickhouseConn, cfg.Feed.StoreQPS, logger)
	seriesCache := cache.NewSeriesCache(redisClient, logger)
	publisher := pubsub.NewPublisher(redisClient, logger)
	hub := stream.NewHub(logger)

	// Load series definitions
	definitions, err := series.LoadFromYAML(cfg.Feed.SeriesFile)
	if err != nil {
		logger.Fatal("Failed to load series definitions: ", err)
	}
	logger.Infof("Loaded %d series definitions from %s", len(definitions), cfg.Feed.SeriesFile)

	// Initialize feed service
	feedSvc := feedService.NewService(tsStore, seriesCache, publisher, hub, cfg, logger)
	for _, def := range definitions {
		if err := feedSvc.Register(def); err != nil {
			logger.Fatal("Failed to register series: ", err)
		}
	}

	// Ensure prediction output tables
	if cfg.Feed.PredictionAuto {
		predictions := schema.NewPredictionStore(clickhouseConn, logger)
		for _, def := range definitions {
			if err := predictions.EnsureTable(ctx, def.Name+"_predictions"); err != nil {
				logger.WithError(err).Fatal("Failed to ensure prediction table")
			}
		}
	}

	// Start feed poll loops
	feedSvc.Start()

	// Start HTTP server
	httpErrChan := make(chan error, 1)
	httpSrv := newHTTPServer(cfg, logger, feedSvc, hub)
	go func() {
		logger.Infof("HTTP server listening on :%d", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrChan <- err
		}
	}()

	logger.Infof("tsfeed v%s started successfully", version)

	// Wait for shutdown signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Received shutdown signal")
	case err := <-httpErrChan:
		logger.WithError(err).Error("HTTP server error")
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	feedSvc.Stop()
	logger.Info("Shutdown complete")
}

func newHTTPServer(cfg *config.Config, logger *logrus.Logger, feedSvc *feedService.Service, hub *stream.Hub) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"healthy":true,"version":"%s","uptime_seconds":%d,"stream_clients":%d}`,
			version, int64(time.Since(startTime).Seconds()), hub.ClientCount())
	})

	mux.HandleFunc("/api/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, feedSvc.Stats())
	})

	mux.HandleFunc("/api/v1/series", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"series": feedSvc.SeriesNames()})
	})

	mux.HandleFunc("/api/v1/window", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("series")
		window, err := feedSvc.Window(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, window)
	})

	mux.HandleFunc("/api/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("series")
		steps, err := strconv.Atoi(r.URL.Query().Get("steps"))
		if err != nil || steps <= 0 {
			steps = 1
		}

		timestamps, err := feedSvc.Forecast(name, steps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		formatted := make([]string, len(timestamps))
		for i, ts := range timestamps {
			formatted[i] = models.FormatTS(ts)
		}
		writeJSON(w, map[string]interface{}{"series": name, "timestamps": formatted})
	})

	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
