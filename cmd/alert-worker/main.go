package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finpulse/internal/amqp"
	"finpulse/internal/config"
	"finpulse/internal/log"
	"finpulse/internal/services"
	"finpulse/internal/storage"
)

func main() {
	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting alert-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	alerts := services.NewAlertService(repo, repo, repo, repo, repo, logger)
	processor := services.NewAlertProcessor(alerts, repo, services.AlertProcessorConfig{
		SweepInterval: cfg.SweepInterval,
		SweepLookback: cfg.SweepLookback,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start alert processor", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.ConsumeTransactionRecorded(ctx, func(msg *amqp.TransactionRecordedMessage) error {
			return processor.HandleTransactionEvent(ctx, msg)
		}); err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", log.FieldError, err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := processor.Stop(stopCtx); err != nil {
		logger.Error("Alert processor stop error", log.FieldError, err)
	}

	logger.Info("Alert worker stopped")
}
