package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"capprices/internal/config"
	"capprices/internal/core"
	applog "capprices/internal/log"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "help", err: flag.ErrHelp, want: ExitOK},
		{name: "invalid args", err: fmt.Errorf("%w: -x", config.ErrInvalidArgs), want: ExitInvalidArgs},
		{name: "malformed date", err: fmt.Errorf("aggregate: %w", &core.MalformedDateError{Value: "x", Format: "%Y"}), want: ExitMalformedDate},
		{name: "integrity", err: fmt.Errorf("summary: %w", core.ErrIntegrityMismatch), want: ExitIntegrity},
		{name: "no selection", err: core.ErrNoSelection, want: ExitConfig},
		{name: "invalid config", err: fmt.Errorf("%w: %w", config.ErrInvalidConfig, multierr.Combine(errors.New("a"), errors.New("b"))), want: ExitConfig},
		{name: "other", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("verbose", &buf)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "Unknown log level") {
		t.Errorf("missing warning: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug must be filtered at INFO: %s", out)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Entities:     []string{"Frankreich"},
		OutputFolder: t.TempDir(),
		PricesFile:   "prices.csv",
		AverageFile:  "average.csv",
		CacheFile:    "cache.gob",
		Today:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		DateFormat:   core.DefaultDateFormat,
		MonthFormat:  core.DefaultMonthFormat,
		ScrapeURL:    config.DefaultURL,
		PollInterval: 100 * time.Millisecond,
		PollTimeout:  2 * time.Second,
	}
}

func quietContext() context.Context {
	return applog.WithLogger(context.Background(), SetupLogger("ERROR", io.Discard))
}

func TestBuildPlan(t *testing.T) {
	t.Run("default start", func(t *testing.T) {
		cfg := testConfig(t)
		var logs bytes.Buffer
		ctx := applog.WithLogger(context.Background(), SetupLogger("DEBUG", &logs))

		plan, err := BuildPlan(ctx, cfg, NewPipeline(cfg, nil, io.Discard))
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		for _, want := range []string{"Cannot determine the start date", "component=scrape", "Scraping range resolved"} {
			if !strings.Contains(logs.String(), want) {
				t.Errorf("log missing %q:\n%s", want, logs.String())
			}
		}
		if !plan.Start.Equal(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)) || !plan.End.Equal(cfg.Today) {
			t.Errorf("range = %v..%v", plan.Start, plan.End)
		}
		if !plan.Scrape || !plan.Calculate || !plan.Summarize {
			t.Errorf("all steps expected: %+v", plan)
		}
	})

	t.Run("resume after price file", func(t *testing.T) {
		cfg := testConfig(t)
		content := "Date;Entity;Metric;Value\n2024-03-01;Frankreich;P1;1"
		if err := os.WriteFile(filepath.Join(cfg.OutputFolder, "prices.csv"), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		plan, err := BuildPlan(quietContext(), cfg, NewPipeline(cfg, nil, io.Discard))
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if !plan.Start.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("start = %v", plan.Start)
		}
	})

	t.Run("malformed start", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StartDate = "03/01/2024"
		_, err := BuildPlan(quietContext(), cfg, NewPipeline(cfg, nil, io.Discard))
		if ExitCode(err) != ExitMalformedDate {
			t.Fatalf("expected malformed date, got %v", err)
		}
	})

	t.Run("no scrape", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.NoScrape = true
		cfg.NoSummary = true
		cfg.EndDate = "garbage"
		plan, err := BuildPlan(quietContext(), cfg, NewPipeline(cfg, nil, io.Discard))
		if err != nil {
			t.Fatalf("dates must not be resolved without scraping: %v", err)
		}
		if plan.Scrape || !plan.Calculate || plan.Summarize {
			t.Errorf("plan = %+v", plan)
		}
	})
}

func TestOpenSinksSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "db", "capprices.db")

	sinks, err := OpenSinks(quietContext(), cfg)
	if err != nil {
		t.Fatalf("open sinks: %v", err)
	}
	if len(sinks.Observations) != 1 || len(sinks.Stats) != 1 || len(sinks.Closers) != 1 {
		t.Errorf("unexpected sinks: %+v", sinks)
	}
	sinks.close()
}

func TestOpenSinksNone(t *testing.T) {
	sinks, err := OpenSinks(quietContext(), testConfig(t))
	if err != nil {
		t.Fatalf("open sinks: %v", err)
	}
	if len(sinks.Observations)+len(sinks.Stats)+len(sinks.Closers) != 0 {
		t.Errorf("no sink expected: %+v", sinks)
	}
}
