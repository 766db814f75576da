package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"capprices/internal/core"
)

// Poller retries an operation while it reports core.ErrNotFound.
type Poller struct {
	Interval time.Duration
	Attempts int
}

// NewPoller spreads timeout over attempts made every interval.
func NewPoller(interval, timeout time.Duration) Poller {
	attempts := 1
	if interval > 0 {
		attempts = int(timeout / interval)
	}
	if attempts < 1 {
		attempts = 1
	}
	return Poller{Interval: interval, Attempts: attempts}
}

// Poll calls fn until it succeeds, fails with an error other than
// core.ErrNotFound, or the attempts are used up. In the last case the
// returned error matches core.ErrNotFound.
func Poll[T any](ctx context.Context, p Poller, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var last error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return zero, err
		}
		last = err

		if attempt == p.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	return zero, fmt.Errorf("gave up after %d attempts: %w", p.Attempts, last)
}
