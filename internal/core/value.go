package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseValue converts a price string into a decimal.
//
// Both locales found in price files are accepted. When the string carries a
// single kind of separator it is the decimal separator ("10,50", "10.50").
// When it carries both, the rightmost one is the decimal separator and the
// other one groups thousands ("1.234,56", "1,234.56").
//
// Examples:
//
//	ParseValue("10,50")    -> 10.5
//	ParseValue("1.234,56") -> 1234.56
//	ParseValue("1,234.56") -> 1234.56
func ParseValue(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidValue)
	}

	dot := strings.LastIndexByte(s, '.')
	comma := strings.LastIndexByte(s, ',')
	switch {
	case comma > dot:
		s = strings.ReplaceAll(s[:comma], ".", "") + "." + s[comma+1:]
	case dot > comma && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return d, nil
}

// FormatValue renders a value the way it is stored in the price file: dot
// decimal separator, no grouping.
func FormatValue(d decimal.Decimal) string {
	return d.String()
}
