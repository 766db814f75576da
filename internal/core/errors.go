package core

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDate     = errors.New("malformed date")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidLine       = errors.New("invalid line")
	ErrMissingCache      = errors.New("missing or corrupt cache")
	ErrIntegrityMismatch = errors.New("cache integrity mismatch")
	ErrEmptyFile         = errors.New("no data rows")
	ErrNoSelection       = errors.New("no entity selected")
	ErrNotFound          = errors.New("not found")
)

// MalformedDateError reports a date string that does not match the configured format.
// Line is 0 when the value did not come from a file.
type MalformedDateError struct {
	Value  string
	Format string
	Line   int
	Err    error
}

func (e *MalformedDateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: date %q doesn't match format %q", e.Line, e.Value, e.Format)
	}
	return fmt.Sprintf("date %q doesn't match format %q", e.Value, e.Format)
}

// Is makes errors.Is(err, ErrMalformedDate) hold for every MalformedDateError.
func (e *MalformedDateError) Is(target error) bool {
	return target == ErrMalformedDate
}

func (e *MalformedDateError) Unwrap() error {
	return e.Err
}
