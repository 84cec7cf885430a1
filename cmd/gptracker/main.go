package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gptracker/internal/amqp"
	"gptracker/internal/backend"
	"gptracker/internal/cli"
	apphttp "gptracker/internal/http"
	"gptracker/internal/log"
	"gptracker/internal/metrics"
	"gptracker/internal/prices"
	"gptracker/internal/services"
	gpsync "gptracker/internal/sync"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	logger.Info("starting gptracker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("failed to initialize remote backend",
			log.FieldError, err, log.FieldBackend, string(backendCfg.Type))
		os.Exit(1)
	}
	logger.Info("remote backend ready", log.FieldBackend, string(backendCfg.Type))

	collector := metrics.NewCollector()
	policy := gpsync.DefaultPolicy()
	uploader := gpsync.NewUploader(result.Store, cfg.SyncBatchSize, policy, collector)
	pipeline := gpsync.NewPipeline(result.Store, repo, uploader, policy, cfg.ChunkThreshold, collector)

	// The queue is optional; without it saves run inline in the request.
	var queue *amqp.Client
	if cfg.AMQPURL != "" {
		queue, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("amqp unavailable, saves will run inline", log.FieldError, err)
			queue = nil
		}
	}

	svc := services.NewDatasetService(repo, queue, pipeline, collector)

	var refresher *services.PriceRefresher
	if cfg.PriceAPIURL != "" {
		source := prices.NewHTTPSource(cfg.PriceAPIURL, cfg.StatsAPIURL)
		refresher = services.NewPriceRefresher(repo, source,
			services.PriceRefresherConfig{Interval: cfg.PriceRefreshInterval})
		if cfg.StatsAPIURL != "" {
			svc = svc.WithStatsSource(source)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, collector, logger.WithComponent(log.ComponentHTTP))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err)
		}
		if refresher != nil {
			if err := refresher.Stop(shutdownCtx); err != nil {
				logger.Error("price refresher stop error", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			result.Cleanup()
		}
		if err := svc.Close(); err != nil {
			logger.Error("service close error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if refresher != nil {
		g.Go(func() error {
			if err := refresher.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
