package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"

	"capprices/internal/cache"
	"capprices/internal/core"
	"capprices/internal/export"
	applog "capprices/internal/log"
	"capprices/internal/pricefile"
	"capprices/internal/report"
	"capprices/internal/scrape"
)

// dateCacheSize bounds the parsed-date memo used while aggregating. A few
// years of daily rows stay well below it.
const dateCacheSize = 4096

// Settings are the values every step reads.
type Settings struct {
	PricesPath    string
	AveragePath   string
	DateFormat    string
	MonthFormat   string
	Today         time.Time
	Selection     core.Selection
	ExitOnMissing bool
	RequestDelay  time.Duration
}

// Deps are the collaborators of a Pipeline. Sinks and Fetcher are optional.
// Steps log through the logger carried by their context.
type Deps struct {
	Cache        *cache.Store
	Fetcher      *scrape.Fetcher
	Renderer     *report.Renderer
	Observations []export.Named[export.ObservationWriter]
	Stats        []export.Named[export.StatsWriter]
	Closers      []io.Closer
	Now          func() time.Time
}

// Pipeline runs the scrape, calculate and summary steps.
type Pipeline struct {
	settings Settings
	Deps
}

func NewPipeline(settings Settings, deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{settings: settings, Deps: deps}
}

// Plan selects the steps of a run.
type Plan struct {
	Scrape    bool
	Start     time.Time
	End       time.Time
	Calculate bool
	Summarize bool
}

// Run executes the planned steps in order and stops at the first fatal error.
func (p *Pipeline) Run(ctx context.Context, plan Plan) error {
	if err := pricefile.Ensure(p.settings.PricesPath); err != nil {
		return err
	}

	if plan.Scrape {
		if plan.End.Before(plan.Start) {
			applog.FromContext(ctx).WarnContext(ctx, "No page to scrape: data is up to date or the end date is before the start date",
				"start", core.FormatDate(p.settings.DateFormat, plan.Start),
				"end", core.FormatDate(p.settings.DateFormat, plan.End))
		} else if err := p.Scrape(ctx, plan.Start, plan.End); err != nil {
			return err
		}
	}

	if plan.Calculate {
		if err := p.Calculate(ctx); err != nil {
			return err
		}
	}

	if plan.Summarize {
		if err := p.Summarize(ctx); err != nil {
			return err
		}
	}

	return nil
}

// InferStart returns the day after the newest row of the price file, or
// fallback when the file has no usable row.
func (p *Pipeline) InferStart(ctx context.Context, fallback time.Time) time.Time {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentScrape)

	latest, err := pricefile.LatestDate(p.settings.PricesPath, core.DateParserFor(p.settings.DateFormat))
	if err != nil {
		if errors.Is(err, core.ErrEmptyFile) || errors.Is(err, os.ErrNotExist) {
			logger.WarnContext(ctx, "Cannot determine the start date from the price file",
				applog.FieldPath, p.settings.PricesPath,
				"default", core.FormatDate(p.settings.DateFormat, fallback))
		} else {
			logger.WarnContext(ctx, "Reading the price file failed, using the default start date",
				applog.FieldPath, p.settings.PricesPath,
				applog.FieldError, err)
		}
		return fallback
	}
	return latest.AddDate(0, 0, 1)
}

// Scrape downloads every day of [start, end] and appends its rows to the
// price file and the observation sinks.
func (p *Pipeline) Scrape(ctx context.Context, start, end time.Time) error {
	if p.Fetcher == nil {
		return errors.New("scraping is not configured")
	}
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentScrape)
	done := logger.Step(ctx, applog.OpScrape)

	s := scrape.New(p.Fetcher, scrape.Options{
		Selection:     p.settings.Selection,
		DateFormat:    p.settings.DateFormat,
		ExitOnMissing: p.settings.ExitOnMissing,
		Delay:         p.settings.RequestDelay,
	}, p.writeDay, logger)

	res, err := s.Run(ctx, start, end)
	done(err)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	if res.Errors > 0 {
		logger.ErrorContext(ctx, "Errors happened while scraping", applog.FieldCount, res.Errors, "stopped", res.Stopped)
	}
	logger.InfoContext(ctx, "Scraping finished",
		"days", res.Days,
		"observations", res.Observations)
	return nil
}

func (p *Pipeline) writeDay(ctx context.Context, day time.Time, obs []core.Observation) error {
	if err := pricefile.Append(p.settings.PricesPath, obs, p.settings.DateFormat); err != nil {
		return err
	}
	if len(obs) == 0 {
		return nil
	}
	for _, sink := range p.Observations {
		if err := sink.Sink.AppendObservations(ctx, obs); err != nil {
			fields := applog.NewFields().WithOperation(applog.OpAppend).WithError(err)
			fields[applog.FieldSink] = sink.Name
			fields[applog.FieldDate] = core.FormatDate(p.settings.DateFormat, day)
			applog.FromContext(ctx).WithComponent(applog.ComponentStorage).
				WarnContext(ctx, "Sink rejected observations", fields.ToSlice()...)
		}
	}
	return nil
}

// Calculate aggregates the price file, stores the snapshot for the summary,
// rewrites the average file and feeds the statistics sinks.
func (p *Pipeline) Calculate(ctx context.Context) error {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentCalculate)

	// A failed run must not leave an older snapshot for the summary to show.
	if err := p.Cache.Delete(); err != nil {
		return err
	}

	done := logger.Step(ctx, applog.OpAggregate)
	snap, stats, err := p.calculate(ctx)
	done(err)
	if err != nil {
		return err
	}

	done = logger.WithComponent(applog.ComponentCache).Step(ctx, applog.OpSave)
	err = p.Cache.Save(snap)
	done(err)
	if err != nil {
		return fmt.Errorf("save cache: %w", err)
	}

	run := core.NewRun(p.Now(), p.settings.Today)
	for _, sink := range p.Stats {
		if err := sink.Sink.WriteMonthly(ctx, run, stats); err != nil {
			fields := applog.NewFields().WithOperation(applog.OpExport).WithError(err)
			fields[applog.FieldSink] = sink.Name
			fields[applog.FieldRunID] = run.ID.String()
			logger.WarnContext(ctx, "Sink rejected monthly stats", fields.ToSlice()...)
		}
	}

	logger.InfoContext(ctx, "Averages written",
		applog.FieldPath, p.settings.AveragePath,
		"entities", len(snap.Monthly))
	return nil
}

// calculate builds the snapshot and rewrites the average file. The snapshot
// is only saved by the caller once both succeeded.
func (p *Pipeline) calculate(ctx context.Context) (core.Snapshot, core.MonthlyStats, error) {
	f, err := os.Open(p.settings.PricesPath)
	if err != nil {
		return core.Snapshot{}, nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	dates := cache.NewLRU[time.Time](dateCacheSize)
	parse := cache.MemoizeDates(core.DateParserFor(p.settings.DateFormat), dates)

	daily, err := core.AggregateDaily(f, p.settings.Selection, parse)
	if err != nil {
		return core.Snapshot{}, nil, fmt.Errorf("aggregate %s: %w", p.settings.PricesPath, err)
	}
	hits, misses := dates.Stats()
	applog.FromContext(ctx).WithComponent(applog.ComponentCache).DebugContext(ctx, "Date parsing memo", "hits", hits, "misses", misses)

	stats := core.ReduceMonthly(daily, p.settings.MonthFormat)
	snap := core.Snapshot{
		Monthly: stats,
		Current: core.ExtractCurrentPeriod(daily, p.settings.Today, p.settings.DateFormat),
	}

	if err := pricefile.WriteAverages(p.settings.AveragePath, stats); err != nil {
		return core.Snapshot{}, nil, err
	}
	return snap, stats, nil
}

// Summarize renders the snapshot left by the last calculation. A missing
// cache is reported and skipped.
func (p *Pipeline) Summarize(ctx context.Context) error {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentSummary)

	snap, err := p.Cache.Load()
	if errors.Is(err, core.ErrMissingCache) {
		logger.WarnContext(ctx, "Cannot make a summary", applog.FieldPath, p.Cache.Path(), applog.FieldError, err)
		return nil
	}
	if err != nil {
		return err
	}

	done := logger.Step(ctx, applog.OpRender)
	err = p.Renderer.Render(snap, p.settings.Selection)
	done(err)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}

// Close releases every sink connection.
func (p *Pipeline) Close() error {
	var err error
	for _, c := range p.Closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
