package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"10,50", "10.5", true},
		{"10.50", "10.5", true},
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"1.234.567,8", "1234567.8", true},
		{" 42 ", "42", true},
		{"3 000,25", "3000.25", true},
		{"-1,5", "-1.5", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"1,2,3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseValue(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("%q expected ErrInvalidValue, got %v", tc.in, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("%Y-%m-%d", "2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, err = ParseDate("%d/%m/%Y", "01/03/2023")
	if err != nil || !got.Equal(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("custom format: got %v err=%v", got, err)
	}

	_, err = ParseDate("%Y-%m-%d", "03/01/2023")
	if !errors.Is(err, ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
	var dateErr *MalformedDateError
	if !errors.As(err, &dateErr) || dateErr.Value != "03/01/2023" || dateErr.Format != "%Y-%m-%d" {
		t.Fatalf("unexpected error detail: %#v", err)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2022, 11, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate("%Y-%m", d); got != "2022-11" {
		t.Fatalf("month label = %q", got)
	}
	if got := FormatDate("%Y-%m-%d", d); got != "2022-11-05" {
		t.Fatalf("date label = %q", got)
	}
}

func TestValidateFormat(t *testing.T) {
	if err := ValidateFormat("%Y-%m-%d"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateFormat(""); err == nil {
		t.Fatalf("expected error for empty format")
	}
}

func TestDecodeLine(t *testing.T) {
	parse := DateParserFor(DefaultDateFormat)

	obs, err := DecodeLine("2024-01-01;FR;NEGPOS_00_04;10,50\n", parse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Entity != "FR" || obs.Metric != "NEGPOS_00_04" || obs.Value.String() != "10.5" {
		t.Fatalf("unexpected observation: %+v", obs)
	}
	if got := obs.Encode(DefaultDateFormat); got != "2024-01-01;FR;NEGPOS_00_04;10.5" {
		t.Fatalf("encode = %q", got)
	}

	if _, err := DecodeLine("2024-01-01;FR;10,50", parse); !errors.Is(err, ErrInvalidLine) {
		t.Fatalf("expected ErrInvalidLine, got %v", err)
	}
	if _, err := DecodeLine("01.01.2024;FR;P;1", parse); !errors.Is(err, ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
	if _, err := DecodeLine("2024-01-01;FR;P;n/a", parse); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}
