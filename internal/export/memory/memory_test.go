package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"capprices/internal/core"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := New()

	obs := []core.Observation{{
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Entity: "FR",
		Metric: "P1",
		Value:  decimal.RequireFromString("1.5"),
	}}
	if err := r.AppendObservations(ctx, obs); err != nil {
		t.Fatalf("append: %v", err)
	}
	run := core.NewRun(time.Now(), time.Now())
	if err := r.WriteMonthly(ctx, run, core.MonthlyStats{{Entity: "FR"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := r.Observations(); len(got) != 1 || got[0].Entity != "FR" {
		t.Errorf("observations = %+v", got)
	}
	if got := r.Runs(); len(got) != 1 || got[0].Run.ID != run.ID {
		t.Errorf("runs = %+v", got)
	}

	boom := errors.New("boom")
	r.FailWith(boom)
	if err := r.AppendObservations(ctx, obs); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if len(r.Observations()) != 1 {
		t.Errorf("failed write must not be recorded")
	}
}
