package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capprices/internal/core"
)

const dayLayout = "2006-01-02"

// ErrUndecodable marks a message that can never be processed. Consumers drop
// it instead of requeueing it.
var ErrUndecodable = errors.New("undecodable message")

// MonthRow is one month of one entity, with figures rounded to two decimals.
type MonthRow struct {
	Month string `json:"month"`
	Start string `json:"start"`
	Mean  string `json:"mean"`
	Min   string `json:"min"`
	Max   string `json:"max"`
}

type EntityStats struct {
	Entity string     `json:"entity"`
	Months []MonthRow `json:"months"`
}

// MonthlyStatsMessage announces the statistics produced by one calculation run
type MonthlyStatsMessage struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Today     string        `json:"today"`
	Entities  []EntityStats `json:"entities"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewMonthlyStatsMessage builds the message of run
func NewMonthlyStatsMessage(run core.Run, stats core.MonthlyStats) *MonthlyStatsMessage {
	entities := make([]EntityStats, 0, len(stats))
	for _, em := range stats {
		rows := make([]MonthRow, 0, len(em.Months))
		for _, m := range em.Months {
			rows = append(rows, MonthRow{
				Month: m.Label,
				Start: m.Start.Format(dayLayout),
				Mean:  m.Mean.StringFixed(core.Precision),
				Min:   m.Min.StringFixed(core.Precision),
				Max:   m.Max.StringFixed(core.Precision),
			})
		}
		entities = append(entities, EntityStats{Entity: em.Entity, Months: rows})
	}

	return &MonthlyStatsMessage{
		RunID:     run.ID.String(),
		StartedAt: run.StartedAt,
		Today:     run.Today.Format(dayLayout),
		Entities:  entities,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthlyStatsMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthlyStatsMessageFromJSON creates a message from JSON bytes
func MonthlyStatsMessageFromJSON(data []byte) (*MonthlyStatsMessage, error) {
	var msg MonthlyStatsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	return &msg, nil
}

// Decode turns the message back into the run and statistics it was built from.
// Every error matches ErrUndecodable.
func (m *MonthlyStatsMessage) Decode() (core.Run, core.MonthlyStats, error) {
	run, stats, err := m.decode()
	if err != nil {
		return core.Run{}, nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	return run, stats, nil
}

func (m *MonthlyStatsMessage) decode() (core.Run, core.MonthlyStats, error) {
	id, err := uuid.Parse(m.RunID)
	if err != nil {
		return core.Run{}, nil, fmt.Errorf("run id: %w", err)
	}
	today, err := time.Parse(dayLayout, m.Today)
	if err != nil {
		return core.Run{}, nil, fmt.Errorf("today: %w", err)
	}
	run := core.Run{ID: id, StartedAt: m.StartedAt, Today: today}

	stats := make(core.MonthlyStats, 0, len(m.Entities))
	for _, es := range m.Entities {
		months := make([]core.MonthStat, 0, len(es.Months))
		for _, row := range es.Months {
			month, err := row.decode()
			if err != nil {
				return core.Run{}, nil, fmt.Errorf("%s %s: %w", es.Entity, row.Month, err)
			}
			months = append(months, month)
		}
		stats = append(stats, core.EntityMonths{Entity: es.Entity, Months: months})
	}
	return run, stats, nil
}

func (r MonthRow) decode() (core.MonthStat, error) {
	start, err := time.Parse(dayLayout, r.Start)
	if err != nil {
		return core.MonthStat{}, fmt.Errorf("month start: %w", err)
	}
	var values [3]decimal.Decimal
	for i, raw := range []string{r.Mean, r.Min, r.Max} {
		if values[i], err = decimal.NewFromString(raw); err != nil {
			return core.MonthStat{}, fmt.Errorf("%w: %q", core.ErrInvalidValue, raw)
		}
	}
	return core.MonthStat{Label: r.Month, Start: start, Mean: values[0], Min: values[1], Max: values[2]}, nil
}
