package main

import (
	"context"
	"errors"
	"os"

	"capprices/internal/amqp"
	"capprices/internal/cli"
	"capprices/internal/config"
	"capprices/internal/export"
	"capprices/internal/export/google"
	applog "capprices/internal/log"
	"capprices/internal/storage"
	"capprices/internal/worker"
)

func main() {
	os.Exit(cli.ExitCode(run()))
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr)
	logger.Info("Starting capprices-worker")

	if err := cfg.ValidateRelay(); err != nil {
		logger.WithComponent(applog.ComponentConfig).Critical("Configuration validation failed",
			applog.FieldError, err, applog.FieldFatal, true)
		return err
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	ctx = applog.WithLogger(ctx, logger)

	sheetsClient, err := google.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, google.Credentials{
		JSON: cfg.GoogleCredentialsJSON,
		File: config.ExpandPath(cfg.GoogleCredentialsFile),
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		return err
	}
	targets := []export.Named[export.StatsWriter]{{Name: "sheets", Sink: sheetsClient}}

	// The local store is optional; without it the startup sync is skipped.
	var latest worker.LatestReader
	if cfg.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.ExpandPath(cfg.SQLiteDBPath))
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, applog.FieldPath, cfg.SQLiteDBPath)
			return err
		}
		defer repo.Close()
		latest = repo
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		return err
	}
	defer amqpClient.Close()

	relay := worker.NewStatsRelay(targets, latest)

	logger.Info("Performing startup sync check...")
	if err := relay.StartupSync(ctx); err != nil {
		// Don't exit - the queue may still hold newer runs
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	err = amqpClient.ConsumeMonthlyStats(ctx, relay.HandleMessage)
	if errors.Is(err, context.Canceled) {
		logger.Info("Worker shutdown complete")
		return nil
	}
	logger.Error("Message consumption failed", applog.FieldError, err)
	return err
}
