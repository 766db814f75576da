package scrape

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"capprices/internal/core"
)

func TestNewPoller(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
		want     int
	}{
		{"defaults", 100 * time.Millisecond, 2 * time.Second, 20},
		{"timeout below interval", time.Second, 10 * time.Millisecond, 1},
		{"zero interval", 0, time.Second, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPoller(tt.interval, tt.timeout).Attempts; got != tt.want {
				t.Errorf("attempts = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPoll(t *testing.T) {
	p := Poller{Interval: time.Millisecond, Attempts: 5}

	t.Run("succeeds after transient misses", func(t *testing.T) {
		calls := 0
		v, err := Poll(context.Background(), p, func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, core.ErrNotFound
			}
			return 42, nil
		})
		if err != nil || v != 42 || calls != 3 {
			t.Fatalf("v=%d err=%v calls=%d", v, err, calls)
		}
	})

	t.Run("gives up with not found", func(t *testing.T) {
		calls := 0
		_, err := Poll(context.Background(), p, func(context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("table: %w", core.ErrNotFound)
		})
		if !errors.Is(err, core.ErrNotFound) || calls != 5 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("other errors stop at once", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		_, err := Poll(context.Background(), p, func(context.Context) (int, error) {
			calls++
			return 0, boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := Poll(ctx, Poller{Interval: time.Hour, Attempts: 3}, func(context.Context) (int, error) {
			cancel()
			return 0, core.ErrNotFound
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
