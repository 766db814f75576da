package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldSeparator separates the fields of the price and average files.
const FieldSeparator = ";"

var (
	PricesHeader   = []string{"Date", "Entity", "Metric", "Value"}
	AveragesHeader = []string{"Entity", "Month", "Mean", "Min", "Max"}
)

// Observation is one decoded row of the price file.
type Observation struct {
	Date   time.Time
	Entity string
	Metric string
	Value  decimal.Decimal
}

// SplitLine splits a price file row into its four fields.
func SplitLine(line string) ([]string, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), FieldSeparator)
	if len(fields) != len(PricesHeader) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidLine, len(PricesHeader), len(fields))
	}
	return fields, nil
}

// DecodeLine parses one price file row. A date that does not match the
// parser's format yields a *MalformedDateError; the caller decides whether to
// skip the row or abort.
func DecodeLine(line string, parse DateParser) (Observation, error) {
	fields, err := SplitLine(line)
	if err != nil {
		return Observation{}, err
	}

	date, err := parse(fields[0])
	if err != nil {
		return Observation{}, err
	}

	value, err := ParseValue(fields[3])
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		Date:   date,
		Entity: strings.TrimSpace(fields[1]),
		Metric: strings.TrimSpace(fields[2]),
		Value:  value,
	}, nil
}

// Encode renders the observation as a price file row, without line terminator.
func (o Observation) Encode(dateFormat string) string {
	return strings.Join([]string{
		FormatDate(dateFormat, o.Date),
		o.Entity,
		o.Metric,
		FormatValue(o.Value),
	}, FieldSeparator)
}
