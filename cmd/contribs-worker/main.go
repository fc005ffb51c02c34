package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"contribs/internal/amqp"
	"contribs/internal/config"
	applog "contribs/internal/log"
	"contribs/internal/mirror"
	"contribs/internal/mirror/gcs"
	"contribs/internal/storage"
	"contribs/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting contribs-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker exists only to mirror the store; without a bucket there is
	// nothing to do.
	if !cfg.MirrorEnabled() {
		logger.Error("Remote mirror not configured - set GCS_BUCKET")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	gcsClient, err := gcs.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Cloud Storage client", "error", err, "bucket", cfg.GCSBucket)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(mirror.NewSyncer(repo, gcsClient, cfg.MirrorObjectKey))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Consume checkpoint messages from the dashboard server.
	g.Go(func() error {
		return amqpClient.ConsumeCheckpoints(ctx, func(msg *amqp.CheckpointMessage) error {
			return syncWorker.HandleCheckpoint(ctx, msg)
		})
	})

	// Periodic backstop sync for lost or coalesced messages.
	g.Go(func() error {
		return syncWorker.RunPeriodic(ctx, cfg.SyncInterval)
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"bucket", cfg.GCSBucket,
		"object_key", cfg.MirrorObjectKey,
		"sync_interval", cfg.SyncInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
