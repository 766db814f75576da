package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capprices/internal/core"

	_ "modernc.org/sqlite"
)

// dayLayout is the storage format of calendar days, independent of the
// user-facing date format.
const dayLayout = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AppendObservations implements export.ObservationWriter
func (r *SQLiteRepository) AppendObservations(ctx context.Context, obs []core.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	err := r.withTx(ctx, func(q *Queries) error {
		for _, o := range obs {
			if err := q.CreateObservation(ctx, CreateObservationParams{
				Day:    o.Date.Format(dayLayout),
				Entity: o.Entity,
				Metric: o.Metric,
				Value:  o.Value.String(),
			}); err != nil {
				return fmt.Errorf("create observation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Observations saved to SQLite", "count", len(obs))
	return nil
}

// WriteMonthly implements export.StatsWriter
func (r *SQLiteRepository) WriteMonthly(ctx context.Context, run core.Run, stats core.MonthlyStats) error {
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.CreateRun(ctx, CreateRunParams{
			ID:        run.ID.String(),
			StartedAt: run.StartedAt.UTC().Format(time.RFC3339Nano),
			Today:     run.Today.Format(dayLayout),
		}); err != nil {
			return fmt.Errorf("create run: %w", err)
		}

		for pos, em := range stats {
			for _, m := range em.Months {
				if err := q.CreateMonthlyStat(ctx, MonthlyStat{
					RunID:      run.ID.String(),
					Entity:     em.Entity,
					Month:      m.Label,
					MonthStart: m.Start.Format(dayLayout),
					Position:   int64(pos),
					Mean:       m.Mean.String(),
					Min:        m.Min.String(),
					Max:        m.Max.String(),
				}); err != nil {
					return fmt.Errorf("create monthly stat %s/%s: %w", em.Entity, m.Label, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Monthly stats saved to SQLite", "run_id", run.ID.String(), "entities", len(stats))
	return nil
}

// LatestMonthly returns the most recent run and the statistics it stored.
// Entities without any month are not stored and therefore not returned.
// An empty database yields an error matching core.ErrNotFound.
func (r *SQLiteRepository) LatestMonthly(ctx context.Context) (core.Run, core.MonthlyStats, error) {
	row, err := r.queries.GetLatestRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Run{}, nil, fmt.Errorf("latest run: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Run{}, nil, fmt.Errorf("get latest run: %w", err)
	}
	run, err := runFromRow(row)
	if err != nil {
		return core.Run{}, nil, err
	}

	rows, err := r.queries.ListMonthlyStatsByRun(ctx, row.ID)
	if err != nil {
		return core.Run{}, nil, fmt.Errorf("list monthly stats: %w", err)
	}

	var stats core.MonthlyStats
	for _, row := range rows {
		m, err := monthFromRow(row)
		if err != nil {
			return core.Run{}, nil, err
		}
		if n := len(stats); n == 0 || stats[n-1].Entity != row.Entity {
			stats = append(stats, core.EntityMonths{Entity: row.Entity})
		}
		last := &stats[len(stats)-1]
		last.Months = append(last.Months, m)
	}

	return run, stats, nil
}

func runFromRow(row Run) (core.Run, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Run{}, fmt.Errorf("run %s: parse id: %w", row.ID, err)
	}
	startedAt, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return core.Run{}, fmt.Errorf("run %s: parse start time: %w", row.ID, err)
	}
	today, err := time.Parse(dayLayout, row.Today)
	if err != nil {
		return core.Run{}, fmt.Errorf("run %s: parse today: %w", row.ID, err)
	}
	return core.Run{ID: id, StartedAt: startedAt, Today: today}, nil
}

// ObservationsByEntity returns the stored rows of entity ordered by day.
func (r *SQLiteRepository) ObservationsByEntity(ctx context.Context, entity string) ([]core.Observation, error) {
	rows, err := r.queries.ListObservationsByEntity(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}

	out := make([]core.Observation, 0, len(rows))
	for _, row := range rows {
		day, err := time.Parse(dayLayout, row.Day)
		if err != nil {
			return nil, fmt.Errorf("observation %d: parse day: %w", row.ID, err)
		}
		value, err := decimal.NewFromString(row.Value)
		if err != nil {
			return nil, fmt.Errorf("observation %d: parse value: %w", row.ID, err)
		}
		out = append(out, core.Observation{Date: day, Entity: row.Entity, Metric: row.Metric, Value: value})
	}
	return out, nil
}

func monthFromRow(row MonthlyStat) (core.MonthStat, error) {
	start, err := time.Parse(dayLayout, row.MonthStart)
	if err != nil {
		return core.MonthStat{}, fmt.Errorf("month %s/%s: parse start: %w", row.Entity, row.Month, err)
	}
	values := make([]decimal.Decimal, 3)
	for i, s := range []string{row.Mean, row.Min, row.Max} {
		if values[i], err = decimal.NewFromString(s); err != nil {
			return core.MonthStat{}, fmt.Errorf("month %s/%s: parse value: %w", row.Entity, row.Month, err)
		}
	}
	return core.MonthStat{
		Label: row.Month,
		Start: start,
		Mean:  values[0],
		Min:   values[1],
		Max:   values[2],
	}, nil
}
