package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"moneytracker/internal/auth"
	"moneytracker/internal/cli"
	"moneytracker/internal/currency"
	apphttp "moneytracker/internal/http"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
	gsheet "moneytracker/internal/sheets/google"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:]))
	}

	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	db := cli.OpenStore(startCtx, logger, cfg)
	defer func() {
		if err := db.Cleanup(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	st := db.Store

	cache := cli.NewRateCache(cfg, st, logger, nil)
	settings := currency.NewSettings(st, logger)
	reports := services.NewReportService(st, cache, settings, logger)

	deps := apphttp.Deps{
		Reports:            reports,
		Entries:            services.NewEntryService(st, logger),
		References:         services.NewReferenceService(st, logger),
		Settings:           settings,
		Health:             st,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	// Forced refreshes go to the rates worker when a broker is reachable,
	// otherwise they run inline.
	var requester services.RefreshRequester
	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	switch {
	case err != nil:
		logger.Warn("AMQP unavailable, rate refreshes will run inline", "error", err)
	case amqpClient != nil:
		defer amqpClient.Close()
		requester = amqpClient
		logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}
	deps.Rates = services.NewRatesService(cache, st, requester, cfg.RatesStaleAfter, logger)

	if cfg.SheetsEnabled() {
		sheets, err := gsheet.New(startCtx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		deps.Exporter = services.NewExportService(reports, sheets, logger)
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	if cfg.AuthEnabled() {
		a, err := auth.New(auth.Config{
			Username:        cfg.AuthUsername,
			PasswordHashB64: cfg.AuthPasswordHashB64,
			Secret:          cfg.AuthSecret,
		})
		if err != nil {
			logger.Error("Failed to initialize authentication", "error", err)
			os.Exit(1)
		}
		deps.Auth = a
	} else {
		logger.Warn("Authentication disabled - AUTH_USERNAME not set")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting moneytracker server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// hashPassword prints the value for AUTH_PASSWORD_HASH_B64. The password is
// taken from the argument or, when absent, from the first line of stdin.
func hashPassword(args []string) int {
	var password string
	if len(args) > 0 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: moneytracker hash-password <password>")
			return 2
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
