// Package pricefile manages the delimited price and average files.
//
// Rows are written the way the files have always been written: the header
// has no line terminator and every row is prefixed with a newline, so
// appending never depends on how the previous writer ended the file.
package pricefile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"capprices/internal/core"
)

// Ensure creates the parent folder and an empty price file holding only the
// header when the file does not exist yet.
func Ensure(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create price file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(core.PricesHeader, core.FieldSeparator)); err != nil {
		return fmt.Errorf("write price header: %w", err)
	}
	return nil
}

// Append adds observations at the end of the price file. Existing rows are
// never rewritten, so re-scraping a date produces duplicates.
func Append(path string, obs []core.Observation, dateFormat string) error {
	if len(obs) == 0 {
		return nil
	}

	var b strings.Builder
	for _, o := range obs {
		b.WriteString("\n")
		b.WriteString(o.Encode(dateFormat))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open price file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("append prices: %w", err)
	}
	return f.Close()
}

// LatestDate returns the newest valid date of the price file. Rows whose date
// cannot be parsed are skipped. core.ErrEmptyFile is returned when no row
// carries a valid date.
func LatestDate(path string, parse core.DateParser) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	var latest time.Time
	found := false

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.SplitN(scanner.Text(), core.FieldSeparator, 2)
		if len(fields) < 2 {
			continue
		}
		d, err := parse(fields[0])
		if err != nil {
			continue
		}
		if !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("read price file: %w", err)
	}

	if !found {
		return time.Time{}, fmt.Errorf("%w: %s", core.ErrEmptyFile, path)
	}
	return latest, nil
}

// WriteAverages overwrites the average file with one row per entity and month.
func WriteAverages(path string, stats core.MonthlyStats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(core.AveragesHeader, core.FieldSeparator))
	for _, em := range stats {
		for _, m := range em.Months {
			b.WriteString("\n")
			b.WriteString(strings.Join([]string{
				em.Entity,
				m.Label,
				m.Mean.StringFixed(core.Precision),
				m.Min.StringFixed(core.Precision),
				m.Max.StringFixed(core.Precision),
			}, core.FieldSeparator))
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write average file: %w", err)
	}
	return nil
}
