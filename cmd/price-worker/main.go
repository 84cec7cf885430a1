package main

import (
	"context"
	"os"
	"time"

	"gptracker/internal/cli"
	"gptracker/internal/log"
	"gptracker/internal/prices"
	"gptracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentPrices)
	logger.Info("starting price-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.PriceAPIURL == "" {
		logger.Error("PRICE_API_URL is required for the price worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	source := prices.NewHTTPSource(cfg.PriceAPIURL, cfg.StatsAPIURL)
	refresher := services.NewPriceRefresher(repo, source,
		services.PriceRefresherConfig{Interval: cfg.PriceRefreshInterval})

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	if err := refresher.Start(ctx); err != nil {
		logger.Error("failed to start price refresher", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("price refresher running", "interval", cfg.PriceRefreshInterval.String())

	cli.WaitForShutdown(ctx, done)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := refresher.Stop(stopCtx); err != nil {
		logger.Error("price refresher stop error", log.FieldError, err)
	}
}
