// Package scrape downloads the daily tender pages and turns their results
// table into observations.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"capprices/internal/core"
	applog "capprices/internal/log"
)

// SiteDateFormat is the day format the tender page expects in its URL.
const SiteDateFormat = "%Y-%m-%d"

// Fetcher downloads and parses the tender page of a day.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	poller      Poller
}

// NewFetcher returns a Fetcher for urlTemplate, in which {date} is replaced
// with the requested day.
func NewFetcher(client *http.Client, urlTemplate string, poller Poller) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, urlTemplate: urlTemplate, poller: poller}
}

// URL returns the page address of day.
func (f *Fetcher) URL(day time.Time) string {
	return strings.ReplaceAll(f.urlTemplate, "{date}", core.FormatDate(SiteDateFormat, day))
}

// FetchDay returns the results table of day, polling while the page does
// not carry it yet.
func (f *Fetcher) FetchDay(ctx context.Context, day time.Time) (*Table, error) {
	url := f.URL(day)
	return Poll(ctx, f.poller, func(ctx context.Context) (*Table, error) {
		return f.fetch(ctx, url)
	})
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	return ParseTable(resp.Body)
}

// DayWriter stores the observations of one scraped day.
type DayWriter func(ctx context.Context, day time.Time, obs []core.Observation) error

// Result summarises a scraping run.
type Result struct {
	Days         int
	Observations int
	Errors       int
	Stopped      bool
}

// Scraper walks a date range day by day.
type Scraper struct {
	fetcher       *Fetcher
	selection     core.Selection
	dateFormat    string
	exitOnMissing bool
	delay         time.Duration
	write         DayWriter
	logger        *applog.Logger
}

type Options struct {
	Selection     core.Selection
	DateFormat    string
	ExitOnMissing bool
	Delay         time.Duration
}

func New(fetcher *Fetcher, opts Options, write DayWriter, logger *applog.Logger) *Scraper {
	return &Scraper{
		fetcher:       fetcher,
		selection:     opts.Selection,
		dateFormat:    opts.DateFormat,
		exitOnMissing: opts.ExitOnMissing,
		delay:         opts.Delay,
		write:         write,
		logger:        logger,
	}
}

// Run scrapes every day from start to end, both included. Each day is
// written before the next one is requested. A missing entity is counted as
// an error; with exitOnMissing it also ends the run after that day.
func (s *Scraper) Run(ctx context.Context, start, end time.Time) (Result, error) {
	var res Result
	start, end = core.Day(start), core.Day(end)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.After(start) && s.delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		obs, errs, stop := s.scrapeDay(ctx, day)
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Days++
		res.Errors += errs

		if err := s.write(ctx, day, obs); err != nil {
			return res, fmt.Errorf("write %s: %w", core.FormatDate(s.dateFormat, day), err)
		}
		res.Observations += len(obs)

		if stop {
			res.Stopped = true
			break
		}
	}

	return res, nil
}

func (s *Scraper) scrapeDay(ctx context.Context, day time.Time) ([]core.Observation, int, bool) {
	dayLabel := core.FormatDate(s.dateFormat, day)
	s.logger.InfoContext(ctx, "Scraping day", applog.FieldDate, dayLabel)

	table, err := s.fetcher.FetchDay(ctx, day)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, true
		}
		s.logger.ErrorContext(ctx, "Cannot read the results table",
			applog.FieldDate, dayLabel,
			applog.FieldURL, s.fetcher.URL(day),
			applog.FieldError, err)
		return nil, 1, s.exitOnMissing
	}

	var (
		obs  []core.Observation
		errs int
	)
	for _, entity := range s.selection.Names() {
		values, ok := table.Values(entity)
		if !ok {
			action := "skip"
			if s.exitOnMissing {
				action = "exit"
			}
			s.logger.ErrorContext(ctx, "Entity not found on the page",
				applog.FieldEntity, entity,
				applog.FieldDate, dayLabel,
				"action", action)
			errs++
			if s.exitOnMissing {
				return obs, errs, true
			}
			continue
		}

		for i, metric := range table.Metrics {
			if i >= len(values) {
				break
			}
			v, err := ParseGermanNumber(values[i])
			if err != nil {
				s.logger.WarnContext(ctx, "Skipping unreadable cell",
					applog.FieldEntity, entity,
					applog.FieldDate, dayLabel,
					"metric", metric,
					applog.FieldError, err)
				continue
			}
			obs = append(obs, core.Observation{Date: day, Entity: entity, Metric: metric, Value: v})
		}
	}

	return obs, errs, false
}
