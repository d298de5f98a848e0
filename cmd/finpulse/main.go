package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finpulse/internal/amqp"
	"finpulse/internal/cache"
	"finpulse/internal/config"
	apphttp "finpulse/internal/http"
	"finpulse/internal/log"
	"finpulse/internal/services"
	"finpulse/internal/storage"
)

func main() {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

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

	// The event channel is optional: without a broker the API still serves
	// everything, transaction events are simply picked up by the worker sweep.
	var publisher services.EventPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	dashCache := cache.NewLRU[services.DashboardData](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)

	balances := services.NewBalanceService(repo, repo, repo, logger)
	budgets := services.NewBudgetService(repo, repo, logger)
	summaries := services.NewSummaryService(repo, repo, balances, dashCache, logger)
	transactions := services.NewTransactionService(repo, publisher, logger)

	srv := apphttp.NewServer(":"+cfg.Port, balances, budgets, summaries, transactions, logger)

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
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting finpulse server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
