package main

import (
	"context"
	"os"
	"time"

	"gptracker/internal/amqp"
	"gptracker/internal/backend"
	"gptracker/internal/cli"
	"gptracker/internal/log"
	"gptracker/internal/metrics"
	gpsync "gptracker/internal/sync"
	"gptracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("starting gptracker-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

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

	queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize amqp client", log.FieldError, err)
		os.Exit(1)
	}
	defer queue.Close()

	collector := metrics.NewCollector()
	policy := gpsync.DefaultPolicy()
	uploader := gpsync.NewUploader(result.Store, cfg.SyncBatchSize, policy, collector)
	pipeline := gpsync.NewPipeline(result.Store, repo, uploader, policy, cfg.ChunkThreshold, collector)
	syncWorker := worker.NewSyncWorker(repo, pipeline)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if result.Cleanup != nil {
			result.Cleanup()
		}
	})

	// Finish any save a previous run left behind before taking new jobs.
	logger.Info("performing startup sync check", log.FieldOperation, log.OpStartup)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("startup sync check failed", log.FieldError, err)
	}

	logger.Info("consuming sync jobs", "queue", cfg.AMQPQueue)
	err = queue.ConsumeSyncJobs(ctx, func(job *amqp.SyncJob) error {
		return syncWorker.HandleSyncJob(ctx, job)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
