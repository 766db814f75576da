package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"capprices/internal/core"
)

// TodayToken may be passed instead of a date for -s and -e.
const TodayToken = "today"

// DefaultURL is the tender page of the balancing capacity data center.
// {date} is replaced with the day in %Y-%m-%d.
const DefaultURL = "https://www.regelleistung.net/apps/datacenter/tenders/" +
	"?productTypes=PRL&markets=BALANCING_CAPACITY&date={date}&tenderTab=PRL$CAPACITY$1"

// DefaultLookback is how many days before today scraping starts when
// neither -s nor a previous price file says otherwise.
const DefaultLookback = 3

// ErrInvalidConfig wraps every problem reported by Validate.
var ErrInvalidConfig = errors.New("configuration validation failed")

type Config struct {
	// Selection
	Entities []string

	// Files
	OutputFolder string
	PricesFile   string
	AverageFile  string
	CacheFile    string
	KeepCache    bool

	// Dates, kept raw until the date format is known
	StartDate   string
	EndDate     string
	Today       time.Time
	DateFormat  string
	MonthFormat string

	// Logging
	LogLevel string
	Color    bool

	// Steps
	ExitOnMissing bool
	NoScrape      bool
	NoAverage     bool
	NoSummary     bool

	// Scraping
	ScrapeURL    string
	PollInterval time.Duration
	PollTimeout  time.Duration
	RequestDelay time.Duration
	HTTPTimeout  time.Duration

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// Load reads the configuration from the environment. Command-line flags are
// applied on top with ParseArgs.
func Load() *Config {
	return &Config{
		Entities: getEnvList("COUNTRIES"),

		OutputFolder: getEnv("OUTPUT_FOLDER", "."),
		PricesFile:   getEnv("PRICES_FILE", "prices.csv"),
		AverageFile:  getEnv("AVERAGE_FILE", "average.csv"),
		CacheFile:    getEnv("CACHE_FILE", "cache.gob"),
		KeepCache:    getEnvBool("KEEP_CACHE", false),

		StartDate:   getEnv("START_DATE", ""),
		EndDate:     getEnv("END_DATE", TodayToken),
		Today:       core.Day(time.Now()),
		DateFormat:  getEnv("DATE_FORMAT", core.DefaultDateFormat),
		MonthFormat: getEnv("MONTH_FORMAT", core.DefaultMonthFormat),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		Color:    getEnvBool("COLOR", true),

		ExitOnMissing: getEnvBool("EXIT_ON_MISSING", false),

		ScrapeURL:    getEnv("SCRAPE_URL", DefaultURL),
		PollInterval: getEnvDuration("POLL_INTERVAL", 100*time.Millisecond),
		PollTimeout:  getEnvDuration("POLL_TIMEOUT", 2*time.Second),
		RequestDelay: getEnvDuration("REQUEST_DELAY", 500*time.Millisecond),
		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "capprices"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "monthly_stats"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Averages"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var err error

	if len(c.Entities) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: pass at least one -c", core.ErrNoSelection))
	}

	if ferr := core.ValidateFormat(c.DateFormat); ferr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid date format: %w", ferr))
	}
	if ferr := core.ValidateFormat(c.MonthFormat); ferr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid month format: %w", ferr))
	}

	if c.PricesFile == "" {
		err = multierr.Append(err, fmt.Errorf("prices file name cannot be empty"))
	}
	if c.AverageFile == "" {
		err = multierr.Append(err, fmt.Errorf("average file name cannot be empty"))
	}
	if c.CacheFile == "" {
		err = multierr.Append(err, fmt.Errorf("cache file name cannot be empty"))
	}

	if !c.NoScrape {
		if !strings.Contains(c.ScrapeURL, "{date}") {
			err = multierr.Append(err, fmt.Errorf("invalid scrape URL '%s': must contain {date}", c.ScrapeURL))
		} else if u, perr := url.Parse(c.ScrapeURL); perr != nil {
			err = multierr.Append(err, fmt.Errorf("invalid scrape URL '%s': %v", c.ScrapeURL, perr))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			err = multierr.Append(err, fmt.Errorf("invalid scrape URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.PollInterval <= 0 {
			err = multierr.Append(err, fmt.Errorf("invalid poll interval %v: must be positive", c.PollInterval))
		} else if c.PollTimeout < c.PollInterval {
			err = multierr.Append(err, fmt.Errorf("invalid poll timeout %v: must be at least the poll interval", c.PollTimeout))
		}
		if c.RequestDelay < 0 {
			err = multierr.Append(err, fmt.Errorf("invalid request delay %v: cannot be negative", c.RequestDelay))
		}
	}

	err = multierr.Append(err, c.validateSinks())

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateRelay validates the settings the stats relay worker needs: a broker
// to consume from and the spreadsheet to write to.
func (c *Config) ValidateRelay() error {
	var err error

	if c.AMQPURL == "" {
		err = multierr.Append(err, fmt.Errorf("AMQP_URL is required by the relay worker"))
	}
	if c.GoogleSpreadsheetID == "" {
		err = multierr.Append(err, fmt.Errorf("GOOGLE_SPREADSHEET_ID is required by the relay worker"))
	}
	err = multierr.Append(err, c.validateSinks())

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validateSinks() error {
	var err error

	if c.AMQPURL != "" {
		if parsedURL, perr := url.Parse(c.AMQPURL); perr != nil {
			err = multierr.Append(err, fmt.Errorf("invalid AMQP URL '%s': %v", c.AMQPURL, perr))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			err = multierr.Append(err, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			err = multierr.Append(err, fmt.Errorf("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
		if c.AMQPQueue == "" {
			err = multierr.Append(err, fmt.Errorf("AMQP queue name cannot be empty when AMQP URL is provided"))
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			err = multierr.Append(err, fmt.Errorf("Google Sheet name is required when a spreadsheet ID is set"))
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			err = multierr.Append(err, fmt.Errorf("either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for the sheets export"))
		}
		if c.GoogleCredentialsFile != "" {
			if _, serr := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(serr) {
				err = multierr.Append(err, fmt.Errorf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	return err
}

// Selection returns the selected entities as a set.
func (c *Config) Selection() core.Selection {
	return core.NewSelection(c.Entities...)
}

func (c *Config) PricesPath() string  { return c.join(c.PricesFile) }
func (c *Config) AveragePath() string { return c.join(c.AverageFile) }
func (c *Config) CachePath() string   { return c.join(c.CacheFile) }

func (c *Config) join(name string) string {
	name = ExpandPath(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(ExpandPath(c.OutputFolder), name)
}

// StartSet reports whether a start date was given explicitly.
func (c *Config) StartSet() bool {
	return strings.TrimSpace(c.StartDate) != ""
}

// DefaultStart is the start date used when nothing else decides it.
func (c *Config) DefaultStart() time.Time {
	return core.Day(c.Today).AddDate(0, 0, -DefaultLookback)
}

// Start resolves the start date. It falls back to DefaultStart when unset.
func (c *Config) Start() (time.Time, error) {
	if !c.StartSet() {
		return c.DefaultStart(), nil
	}
	return c.resolveDate(c.StartDate)
}

// End resolves the end date, today by default.
func (c *Config) End() (time.Time, error) {
	if strings.TrimSpace(c.EndDate) == "" {
		return core.Day(c.Today), nil
	}
	return c.resolveDate(c.EndDate)
}

func (c *Config) resolveDate(value string) (time.Time, error) {
	if strings.EqualFold(strings.TrimSpace(value), TodayToken) {
		return core.Day(c.Today), nil
	}
	return core.ParseDate(c.DateFormat, value)
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
