package memory

import (
	"context"
	"sync"

	"capprices/internal/core"
	"capprices/internal/export"
)

var (
	_ export.ObservationWriter = (*Recorder)(nil)
	_ export.StatsWriter       = (*Recorder)(nil)
)

// RecordedRun is one WriteMonthly call.
type RecordedRun struct {
	Run   core.Run
	Stats core.MonthlyStats
}

// Recorder keeps everything it receives in memory.
type Recorder struct {
	mu   sync.Mutex
	obs  []core.Observation
	runs []RecordedRun
	err  error
}

func New() *Recorder {
	return &Recorder{}
}

// FailWith makes every following write return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) AppendObservations(_ context.Context, obs []core.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.obs = append(r.obs, obs...)
	return nil
}

func (r *Recorder) WriteMonthly(_ context.Context, run core.Run, stats core.MonthlyStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, RecordedRun{Run: run, Stats: stats})
	return nil
}

// Observations returns a copy of the recorded rows.
func (r *Recorder) Observations() []core.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Observation(nil), r.obs...)
}

// Runs returns a copy of the recorded runs.
func (r *Recorder) Runs() []RecordedRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedRun(nil), r.runs...)
}
