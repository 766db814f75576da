package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"capprices/internal/cli"
	"capprices/internal/config"
	applog "capprices/internal/log"
)

func main() {
	os.Exit(cli.ExitCode(run(os.Args[1:], os.Stdout, os.Stderr)))
}

func run(args []string, stdout, stderr io.Writer) error {
	cli.LoadEnvFile()

	cfg := config.Load()
	if err := cfg.ParseArgs("capprices", args, stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			cli.SetupLogger(cfg.LogLevel, stderr).Critical("Invalid arguments", applog.FieldError, err, applog.FieldFatal, true)
		}
		return err
	}

	logger := cli.SetupLogger(cfg.LogLevel, stderr)

	if err := cfg.Validate(); err != nil {
		logger.WithComponent(applog.ComponentConfig).Critical("Configuration validation failed",
			applog.FieldError, err, applog.FieldFatal, true)
		return err
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	ctx = applog.WithLogger(ctx, logger)

	sinks, err := cli.OpenSinks(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline := cli.NewPipeline(cfg, sinks, stdout)
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Error("Failed to close sinks", applog.FieldError, err)
		}
	}()

	plan, err := cli.BuildPlan(ctx, cfg, pipeline)
	if err != nil {
		logger.Critical("Invalid date", applog.FieldError, err, applog.FieldFatal, true)
		return err
	}

	if err := pipeline.Run(ctx, plan); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Run interrupted")
		} else {
			logger.Critical("Run failed", applog.FieldError, err, applog.FieldFatal, true)
		}
		return err
	}

	logger.Info("Done")
	return nil
}
