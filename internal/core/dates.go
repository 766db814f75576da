package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

const (
	DefaultDateFormat  = "%Y-%m-%d"
	DefaultMonthFormat = "%Y-%m"
)

// DateParser turns a date string from the price file into a calendar day.
type DateParser func(value string) (time.Time, error)

// ParseDate parses value with a strftime format and truncates it to a UTC calendar day.
func ParseDate(format, value string) (time.Time, error) {
	t, err := strftime.Parse(format, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &MalformedDateError{Value: value, Format: format, Err: err}
	}
	return Day(t), nil
}

// DateParserFor returns a DateParser bound to format.
func DateParserFor(format string) DateParser {
	return func(value string) (time.Time, error) {
		return ParseDate(format, value)
	}
}

// FormatDate formats t with a strftime format.
func FormatDate(format string, t time.Time) string {
	return strftime.Format(format, t)
}

// ValidateFormat reports whether format can be used both to format and to parse dates.
func ValidateFormat(format string) error {
	if strings.TrimSpace(format) == "" {
		return fmt.Errorf("empty date format")
	}
	if _, err := strftime.Layout(format); err != nil {
		return fmt.Errorf("date format %q: %w", format, err)
	}
	return nil
}

// Day drops the clock and location of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of the month containing t.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether a and b fall in the same calendar month of the same year.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
