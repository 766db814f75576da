package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is what a calculation run hands over to the next summary run.
type Snapshot struct {
	Monthly MonthlyStats
	Current CurrentPeriodValues
}

// Validate checks that both halves list the same entities at the same positions.
func (s Snapshot) Validate() error {
	if len(s.Monthly) != len(s.Current) {
		return fmt.Errorf("%w: %d monthly entities, %d current-month entities",
			ErrIntegrityMismatch, len(s.Monthly), len(s.Current))
	}
	for i := range s.Monthly {
		if s.Monthly[i].Entity != s.Current[i].Entity {
			return fmt.Errorf("%w: position %d holds %q and %q",
				ErrIntegrityMismatch, i, s.Monthly[i].Entity, s.Current[i].Entity)
		}
	}
	return nil
}

// Run identifies one calculation run for the external sinks.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Today     time.Time
}

func NewRun(startedAt, today time.Time) Run {
	return Run{
		ID:        uuid.New(),
		StartedAt: startedAt,
		Today:     Day(today),
	}
}
