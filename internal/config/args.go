package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidArgs reports a command line that cannot be parsed.
var ErrInvalidArgs = errors.New("invalid arguments")

// entityList is a repeatable -c flag.
type entityList struct {
	entities *[]string
}

func (l entityList) String() string {
	if l.entities == nil {
		return ""
	}
	return strings.Join(*l.entities, ",")
}

func (l entityList) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("empty entity name")
	}
	*l.entities = append(*l.entities, value)
	return nil
}

// FlagSet returns the command-line flags bound to c. Entities given with -c
// are added to those already loaded from the environment.
func (c *Config) FlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Var(entityList{&c.Entities}, "c", "entity to scrape, in German (repeatable, at least one)")
	fs.StringVar(&c.PricesFile, "p", c.PricesFile, "prices output file")
	fs.StringVar(&c.AverageFile, "a", c.AverageFile, "average output file")
	fs.StringVar(&c.OutputFolder, "f", c.OutputFolder, "output folder, created when missing")
	fs.StringVar(&c.StartDate, "s", c.StartDate, "first day to scrape, included (default: day after the newest row, or 3 days ago)")
	fs.StringVar(&c.EndDate, "e", c.EndDate, "last day to scrape, included")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	fs.StringVar(&c.DateFormat, "d", c.DateFormat, "strftime date format used everywhere")
	fs.StringVar(&c.MonthFormat, "m", c.MonthFormat, "strftime format representing a month")

	fs.BoolVar(&c.ExitOnMissing, "exit", c.ExitOnMissing, "stop scraping when an entity is missing from a page")
	fs.BoolVar(&c.NoScrape, "no-scrape", c.NoScrape, "skip scraping")
	fs.BoolVar(&c.NoScrape, "no-scrap", c.NoScrape, "alias of -no-scrape")
	fs.BoolVar(&c.NoAverage, "no-average", c.NoAverage, "skip the average calculation")
	fs.BoolVar(&c.NoSummary, "no-summary", c.NoSummary, "skip the summary")
	fs.BoolVar(&c.KeepCache, "keep-cache", c.KeepCache, "keep the cache file after the summary")
	fs.BoolVar(&c.Color, "color", c.Color, "emphasise headings with ANSI colors")

	fs.StringVar(&c.ScrapeURL, "url", c.ScrapeURL, "tender page URL, {date} is replaced with the day")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "wait between two table lookups")
	fs.DurationVar(&c.PollTimeout, "poll-timeout", c.PollTimeout, "give up looking for the table after this long")
	fs.DurationVar(&c.RequestDelay, "delay", c.RequestDelay, "pause between two page requests")

	fs.StringVar(&c.SQLiteDBPath, "db", c.SQLiteDBPath, "optional SQLite database mirroring prices and averages")

	return fs
}

// ParseArgs applies command-line arguments on top of the loaded values.
// -h returns flag.ErrHelp unchanged; every other problem matches ErrInvalidArgs.
func (c *Config) ParseArgs(name string, args []string, output io.Writer) error {
	fs := c.FlagSet(name, output)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrInvalidArgs, fs.Arg(0))
	}
	return nil
}
