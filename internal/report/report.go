// Package report prints the monthly and current-month tables of a snapshot.
package report

import (
	"fmt"
	"io"

	"capprices/internal/core"
)

// NothingToShow is printed instead of any table when the snapshot is empty.
const NothingToShow = "Nothing to show"

const (
	ansiHeading = "\x1b[1m\x1b[4m\x1b[94m"
	ansiReset   = "\x1b[0m"
)

// Renderer writes report tables to an output stream.
type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer returns a Renderer writing to w. Headings are emphasised with
// ANSI sequences when color is set.
func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, color: color}
}

// Render prints both tables for every entity of snap that is also in sel.
// A snapshot whose halves disagree on the entity order is rejected before
// anything is printed.
func (r *Renderer) Render(snap core.Snapshot, sel core.Selection) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	if len(snap.Monthly) == 0 {
		_, err := fmt.Fprintln(r.w, NothingToShow)
		return err
	}

	for i, em := range snap.Monthly {
		if !sel.Contains(em.Entity) {
			continue
		}
		if err := r.entity(em, snap.Current[i]); err != nil {
			return fmt.Errorf("render %s: %w", em.Entity, err)
		}
	}
	return nil
}

func (r *Renderer) entity(em core.EntityMonths, ed core.EntityDays) error {
	if err := r.heading("\t\t", em.Entity); err != nil {
		return err
	}
	if err := r.heading("\t", fmt.Sprintf("Summary of all the averages per months (%s)", em.Entity)); err != nil {
		return err
	}
	if err := monthsTable(em.Months).render(r.w); err != nil {
		return err
	}
	if err := r.heading("\t", fmt.Sprintf("Summary of the current month (%s)", em.Entity)); err != nil {
		return err
	}
	return currentTable(ed.Days).render(r.w)
}

func (r *Renderer) heading(indent, text string) error {
	if r.color {
		_, err := fmt.Fprintf(r.w, "%s%s%s%s\n", indent, ansiHeading, text, ansiReset)
		return err
	}
	_, err := fmt.Fprintf(r.w, "%s%s\n", indent, text)
	return err
}

// monthsTable lists one row per month and repeats the title whenever the
// calendar year changes between two consecutive rows.
func monthsTable(months []core.MonthStat) *table {
	t := newTable(core.AveragesHeader[1:]...)
	for i, m := range months {
		if i > 0 && m.Start.Year() != months[i-1].Start.Year() {
			t.breakBefore()
		}
		t.addRow(
			m.Label,
			m.Mean.StringFixed(core.Precision),
			m.Min.StringFixed(core.Precision),
			m.Max.StringFixed(core.Precision),
		)
	}
	return t
}

// ValueColumn is the title of the per-hour column of the current-month table.
var ValueColumn = core.PricesHeader[3] + " per hour"

func currentTable(days []core.DayValue) *table {
	t := newTable(core.PricesHeader[0], ValueColumn)
	for _, d := range days {
		t.addRow(d.Date, d.Value)
	}
	return t
}
