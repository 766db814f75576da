// Package export defines the optional destinations a run can mirror its
// results to, next to the price and average files.
package export

import (
	"context"

	"capprices/internal/core"
)

// Ports for outbound adapters.
type (
	// ObservationWriter receives every scraped row right after it is
	// appended to the price file.
	ObservationWriter interface {
		AppendObservations(ctx context.Context, obs []core.Observation) error
	}

	// StatsWriter receives the monthly statistics of a calculation run.
	StatsWriter interface {
		WriteMonthly(ctx context.Context, run core.Run, stats core.MonthlyStats) error
	}
)

// Named pairs a sink with the name used in logs.
type Named[T any] struct {
	Name string
	Sink T
}
