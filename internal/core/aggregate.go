package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// AggregateDaily reads a price file stream, skips the header line and sums
// the values of the selected entities per day. Rows of other entities are
// discarded without being decoded further than their fields. Any row that
// cannot be decoded aborts the whole pass.
func AggregateDaily(r io.Reader, sel Selection, parse DateParser) (*DailyTotal, error) {
	daily := NewDailyTotal()
	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields, err := SplitLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !sel.Contains(strings.TrimSpace(fields[1])) {
			continue
		}

		obs, err := DecodeLine(text, parse)
		if err != nil {
			var dateErr *MalformedDateError
			if errors.As(err, &dateErr) {
				dateErr.Line = line
				return nil, dateErr
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		daily.Add(obs.Entity, obs.Date, obs.Value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}

	return daily, nil
}
