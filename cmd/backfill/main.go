package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tsfeed/internal/backfill"
	"tsfeed/internal/config"
	"tsfeed/internal/models"
	"tsfeed/internal/schema"
	"tsfeed/internal/series"
	"tsfeed/internal/store"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	// Command line flags
	name := flag.String("series", "", "Series name from the series file (required)")
	seriesFile := flag.String("series-file", "", "Override series definitions file")
	seed := flag.Bool("seed-prediction", false, "Seed the prediction table with a persistence forecast")
	flag.Parse()

	if *name == "" {
		fmt.Println("Error: -series is required")
		flag.Usage()
		os.Exit(1)
	}

	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *seriesFile != "" {
		cfg.Feed.SeriesFile = *seriesFile
	}

	definitions, err := series.LoadFromYAML(cfg.Feed.SeriesFile)
	if err != nil {
		logger.Fatalf("Failed to load series definitions: %v", err)
	}

	var def *series.Definition
	for i := range definitions {
		if definitions[i].Name == *name {
			def = &definitions[i]
			break
		}
	}
	if def == nil {
		logger.Fatalf("Series %q not found in %s", *name, cfg.Feed.SeriesFile)
	}

	// Connect to ClickHouse
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouse.Host, cfg.ClickHouse.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		logger.Fatalf("ClickHouse ping failed: %v", err)
	}

	tsStore := store.NewClickHouseStore(conn, cfg.Feed.StoreQPS, logger)
	predictions := schema.NewPredictionStore(conn, logger)

	bf := backfill.New(tsStore, predictions, logger)

	logger.Infof("Starting backfill for series %s (%s %s on %s)", def.Name, def.Interval, def.Method, def.Index)

	result, err := bf.Run(ctx, &backfill.Job{
		Definition:     *def,
		SeedPrediction: *seed,
	})
	if err != nil {
		logger.Fatalf("Backfill failed: %v", err)
	}

	if result.Buckets == 0 {
		logger.Info("No data found")
		return
	}

	logger.Infof("Buckets:  %d", result.Buckets)
	logger.Infof("First:    %s", models.FormatTS(result.FirstTS))
	logger.Infof("Last:     %s", models.FormatTS(result.LastTS))
	if result.HasCadence {
		logger.Infof("Next expected: %s", models.FormatTS(result.NextTS))
	}
}
