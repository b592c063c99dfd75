package main

import (
	"context"
	"os"
	"time"

	"moneytracker/internal/cli"
	"moneytracker/internal/seed"
	"moneytracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db := cli.OpenStore(ctx, logger, cfg)
	defer db.Cleanup()

	logger.Info("Seeding database...", "backend", cfg.DataBackend)
	res, err := seed.Run(ctx, services.NewReferenceService(db.Store, logger), logger)
	if err != nil {
		logger.Error("Seeding failed", "error", err, "inserted", res.Inserted, "skipped", res.Skipped)
		db.Cleanup()
		os.Exit(1)
	}
	logger.Info("Seeding complete", "inserted", res.Inserted, "skipped", res.Skipped)
}
