package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneytracker/internal/cli"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
	"moneytracker/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)

	logger.Info("Starting rates-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := cli.OpenStore(ctx, logger, cfg)
	defer db.Cleanup()

	cache := cli.NewRateCache(cfg, db.Store, logger, nil)

	var (
		publisher services.RefreshedPublisher
		consumer  worker.RequestConsumer
	)
	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher, consumer = amqpClient, amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, refreshing on schedule only")
	}

	processor := services.NewRefreshProcessor(cache, publisher, services.RefreshProcessorConfig{
		CheckInterval: cfg.RatesCheckInterval,
		Schedule:      cfg.RatesSchedule,
	}, logger)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start refresh processor", "error", err)
		os.Exit(1)
	}

	ratesWorker := worker.NewRatesWorker(processor, consumer, logger)
	go func() {
		if err := ratesWorker.Run(ctx); err != nil {
			logger.Error("Refresh request consumption failed", "error", err)
		}
		cancel()
	}()

	// Handle shutdown signals
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

	logger.Info("Shutting down worker...")
	cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", "error", err)
		return
	}
	logger.Info("Worker shutdown complete")
}
