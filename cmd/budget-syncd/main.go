package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdipippo/BudgetManager/internal/amqp"
	"github.com/rdipippo/BudgetManager/internal/config"
	"github.com/rdipippo/BudgetManager/internal/log"
	"github.com/rdipippo/BudgetManager/internal/provider"
	"github.com/rdipippo/BudgetManager/internal/secrets"
	"github.com/rdipippo/BudgetManager/internal/services"
	"github.com/rdipippo/BudgetManager/internal/storage"
	"github.com/rdipippo/BudgetManager/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	logger.Info("Starting budget-syncd")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	secretStore, err := secrets.NewStore(cfg.EncryptionKey)
	if err != nil {
		logger.Error("Failed to initialize secret store", log.FieldError, err)
		os.Exit(1)
	}

	client := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderClientID, cfg.ProviderSecret)

	syncService := services.NewSyncService(repo, repo, repo, secretStore, client, logger)
	categorizer := services.NewCategorizer(repo, repo, repo, repo, logger)

	scheduler := worker.NewScheduler(repo, syncService, categorizer, worker.SchedulerConfig{
		Interval:    cfg.SyncInterval,
		Concurrency: cfg.SyncConcurrency,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics endpoint.
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("Metrics listener started", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", log.FieldError, err)
		}
	}()

	// On-demand syncs over AMQP (optional; the periodic sweep still runs
	// without it).
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			handler := func(msg *amqp.ItemSyncMessage) error {
				return scheduler.HandleSyncMessage(ctx, msg)
			}
			if err := amqpClient.ConsumeItemSync(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
				cancel()
			}
		}()
	} else {
		logger.Info("AMQP disabled - periodic sweeps only")
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler shutdown timed out", log.FieldError, err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics listener shutdown failed", log.FieldError, err)
	}
	cancel()

	logger.Info("Shutdown complete")
}
