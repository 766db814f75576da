package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Observation struct {
	ID     int64
	Day    string
	Entity string
	Metric string
	Value  string
}

type Run struct {
	ID        string
	StartedAt string
	Today     string
}

type MonthlyStat struct {
	RunID      string
	Entity     string
	Month      string
	MonthStart string
	Position   int64
	Mean       string
	Min        string
	Max        string
}

const createObservation = `
INSERT INTO observations (day, entity, metric, value)
VALUES (?, ?, ?, ?)
`

type CreateObservationParams struct {
	Day    string
	Entity string
	Metric string
	Value  string
}

func (q *Queries) CreateObservation(ctx context.Context, arg CreateObservationParams) error {
	_, err := q.db.ExecContext(ctx, createObservation, arg.Day, arg.Entity, arg.Metric, arg.Value)
	return err
}

const listObservationsByEntity = `
SELECT id, day, entity, metric, value
FROM observations
WHERE entity = ?
ORDER BY day, id
`

func (q *Queries) ListObservationsByEntity(ctx context.Context, entity string) ([]Observation, error) {
	rows, err := q.db.QueryContext(ctx, listObservationsByEntity, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Observation
	for rows.Next() {
		var i Observation
		if err := rows.Scan(&i.ID, &i.Day, &i.Entity, &i.Metric, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRun = `
INSERT INTO runs (id, started_at, today)
VALUES (?, ?, ?)
`

type CreateRunParams struct {
	ID        string
	StartedAt string
	Today     string
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun, arg.ID, arg.StartedAt, arg.Today)
	return err
}

const getLatestRun = `
SELECT id, started_at, today
FROM runs
ORDER BY started_at DESC
LIMIT 1
`

func (q *Queries) GetLatestRun(ctx context.Context) (Run, error) {
	row := q.db.QueryRowContext(ctx, getLatestRun)
	var i Run
	err := row.Scan(&i.ID, &i.StartedAt, &i.Today)
	return i, err
}

const createMonthlyStat = `
INSERT INTO monthly_stats (run_id, entity, month, month_start, position, mean, min, max)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateMonthlyStat(ctx context.Context, arg MonthlyStat) error {
	_, err := q.db.ExecContext(ctx, createMonthlyStat,
		arg.RunID, arg.Entity, arg.Month, arg.MonthStart, arg.Position, arg.Mean, arg.Min, arg.Max)
	return err
}

const listMonthlyStatsByRun = `
SELECT run_id, entity, month, month_start, position, mean, min, max
FROM monthly_stats
WHERE run_id = ?
ORDER BY position, month_start
`

func (q *Queries) ListMonthlyStatsByRun(ctx context.Context, runID string) ([]MonthlyStat, error) {
	rows, err := q.db.QueryContext(ctx, listMonthlyStatsByRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MonthlyStat
	for rows.Next() {
		var i MonthlyStat
		if err := rows.Scan(&i.RunID, &i.Entity, &i.Month, &i.MonthStart, &i.Position, &i.Mean, &i.Min, &i.Max); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
