// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/moneytracker, cmd/rates-worker, and cmd/seed.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/joho/godotenv"

	"moneytracker/internal/amqp"
	"moneytracker/internal/backend"
	"moneytracker/internal/config"
	"moneytracker/internal/currency"
	"moneytracker/internal/log"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured backend.
// Returns the store or exits the process on failure.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.Result {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentStorage)).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// NewRateCache builds the rate cache over store, fetching from the
// configured provider. Provider calls are traced as logfmt lines on out.
func NewRateCache(cfg *config.Config, store currency.RateStore, logger *log.Logger, out io.Writer) *currency.Cache {
	if out == nil {
		out = os.Stderr
	}
	trace := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(out))
	trace = kitlog.With(trace, "ts", kitlog.DefaultTimestampUTC, "provider", "frankfurter")

	provider := currency.NewLoggingProvider(trace, currency.NewFrankfurter(cfg.RatesAPIURL, cfg.RatesTimeout))
	return currency.NewCache(store, provider,
		currency.WithStaleAfter(cfg.RatesStaleAfter),
		currency.WithRefreshTimeout(2*cfg.RatesTimeout),
		currency.WithLogger(logger.WithComponent(log.ComponentRates)),
	)
}

// ConnectAMQP dials the broker when one is configured. It returns nil
// without an error when AMQP_URL is empty.
func ConnectAMQP(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		return nil, nil
	}
	return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPEventsQueue, logger)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
