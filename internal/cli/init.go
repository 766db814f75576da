// Package cli provides the initialization steps of the capprices command:
// logging, environment, sinks and the pipeline built from a Config.
package cli

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"capprices/internal/amqp"
	"capprices/internal/cache"
	"capprices/internal/config"
	"capprices/internal/core"
	"capprices/internal/export"
	"capprices/internal/export/google"
	applog "capprices/internal/log"
	"capprices/internal/report"
	"capprices/internal/scrape"
	"capprices/internal/services"
	"capprices/internal/storage"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfig        = 2
	ExitInvalidArgs   = 4
	ExitMalformedDate = 5
	ExitIntegrity     = 6
)

// ExitCode maps an error returned by the command to its exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, config.ErrInvalidArgs):
		return ExitInvalidArgs
	case errors.Is(err, core.ErrMalformedDate):
		return ExitMalformedDate
	case errors.Is(err, core.ErrIntegrityMismatch):
		return ExitIntegrity
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, core.ErrNoSelection):
		return ExitConfig
	default:
		return ExitFailure
	}
}

// SetupLogger builds the application logger for levelName and sets it as the
// default logger. An unknown level falls back to INFO with a warning.
func SetupLogger(levelName string, output io.Writer) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = output

	level, err := applog.ParseLevel(levelName)
	if err == nil {
		cfg.Level = level
	}

	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using INFO", "level", levelName, applog.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM, so that an
// interrupted run stops between two days.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// Sinks are the optional destinations opened from the configuration.
type Sinks struct {
	Observations []export.Named[export.ObservationWriter]
	Stats        []export.Named[export.StatsWriter]
	Closers      []io.Closer
}

func (s *Sinks) close() {
	for _, c := range s.Closers {
		_ = c.Close()
	}
}

// OpenSinks connects every sink the configuration enables. Nothing stays
// open when an error is returned.
func OpenSinks(ctx context.Context, cfg *config.Config) (*Sinks, error) {
	logger := applog.FromContext(ctx)
	sinks := &Sinks{}

	if cfg.SQLiteDBPath != "" {
		dbPath := config.ExpandPath(cfg.SQLiteDBPath)
		done := logger.WithComponent(applog.ComponentStorage).Step(ctx, applog.OpMigrate)
		repo, err := storage.NewSQLiteRepository(dbPath)
		done(err)
		if err != nil {
			logger.WithComponent(applog.ComponentStorage).ErrorContext(ctx, "Failed to initialize SQLite repository",
				applog.FieldError, err, applog.FieldPath, dbPath)
			return nil, err
		}
		sinks.Observations = append(sinks.Observations, export.Named[export.ObservationWriter]{Name: "sqlite", Sink: repo})
		sinks.Stats = append(sinks.Stats, export.Named[export.StatsWriter]{Name: "sqlite", Sink: repo})
		sinks.Closers = append(sinks.Closers, repo)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			sinks.close()
			logger.WithComponent(applog.ComponentAMQP).ErrorContext(ctx, "Failed to connect to AMQP broker", applog.FieldError, err)
			return nil, err
		}
		sinks.Stats = append(sinks.Stats, export.Named[export.StatsWriter]{Name: "amqp", Sink: client})
		sinks.Closers = append(sinks.Closers, client)
	}

	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, google.Credentials{
			JSON: cfg.GoogleCredentialsJSON,
			File: config.ExpandPath(cfg.GoogleCredentialsFile),
		})
		if err != nil {
			sinks.close()
			logger.WithComponent(applog.ComponentSheets).ErrorContext(ctx, "Failed to create Google Sheets client", applog.FieldError, err)
			return nil, err
		}
		sinks.Stats = append(sinks.Stats, export.Named[export.StatsWriter]{Name: "sheets", Sink: client})
	}

	return sinks, nil
}

// NewPipeline assembles the pipeline described by cfg. The summary goes to out.
func NewPipeline(cfg *config.Config, sinks *Sinks, out io.Writer) *services.Pipeline {
	if sinks == nil {
		sinks = &Sinks{}
	}

	var fetcher *scrape.Fetcher
	if !cfg.NoScrape {
		fetcher = scrape.NewFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.ScrapeURL,
			scrape.NewPoller(cfg.PollInterval, cfg.PollTimeout))
	}

	return services.NewPipeline(services.Settings{
		PricesPath:    cfg.PricesPath(),
		AveragePath:   cfg.AveragePath(),
		DateFormat:    cfg.DateFormat,
		MonthFormat:   cfg.MonthFormat,
		Today:         cfg.Today,
		Selection:     cfg.Selection(),
		ExitOnMissing: cfg.ExitOnMissing,
		RequestDelay:  cfg.RequestDelay,
	}, services.Deps{
		Cache:        cache.NewStore(cfg.CachePath(), !cfg.KeepCache),
		Fetcher:      fetcher,
		Renderer:     report.NewRenderer(out, cfg.Color),
		Observations: sinks.Observations,
		Stats:        sinks.Stats,
		Closers:      sinks.Closers,
	})
}

// BuildPlan resolves the steps and the scraping range of cfg. Without -s the
// range starts the day after the newest row of the price file.
func BuildPlan(ctx context.Context, cfg *config.Config, p *services.Pipeline) (services.Plan, error) {
	plan := services.Plan{
		Scrape:    !cfg.NoScrape,
		Calculate: !cfg.NoAverage,
		Summarize: !cfg.NoSummary,
	}
	if !plan.Scrape {
		return plan, nil
	}

	end, err := cfg.End()
	if err != nil {
		return plan, err
	}
	plan.End = end

	if cfg.StartSet() {
		start, err := cfg.Start()
		if err != nil {
			return plan, err
		}
		plan.Start = start
	} else {
		plan.Start = p.InferStart(ctx, cfg.DefaultStart())
	}

	applog.FromContext(ctx).DebugContext(ctx, "Scraping range resolved",
		"start", core.FormatDate(cfg.DateFormat, plan.Start),
		"end", core.FormatDate(cfg.DateFormat, plan.End))
	return plan, nil
}
