package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contribs/internal/amqp"
	"contribs/internal/config"
	apphttp "contribs/internal/http"
	applog "contribs/internal/log"
	"contribs/internal/mirror"
	"contribs/internal/mirror/gcs"
	"contribs/internal/services"
	"contribs/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Restore the store from the remote mirror before serving, so a fresh
	// deployment starts from the last uploaded snapshot.
	if cfg.MirrorEnabled() {
		gcsClient, err := gcs.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Cloud Storage client", "error", err, "bucket", cfg.GCSBucket)
			os.Exit(1)
		}
		syncer := mirror.NewSyncer(repo, gcsClient, cfg.MirrorObjectKey)
		if err := syncer.RestoreFromRemote(context.Background()); err != nil {
			logger.Error("Failed to restore store from remote mirror", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("Remote mirror disabled - no GCS_BUCKET provided")
	}

	// Checkpoint publishing is optional: without a broker the store still
	// works locally and the periodic worker sync remains the backstop.
	var publisher services.CheckpointPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, checkpoint publishing disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewContributionService(repo, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, svc)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting contribs server", "port", cfg.Port, "db_path", cfg.SQLiteDBPath, "mirror_enabled", cfg.MirrorEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
