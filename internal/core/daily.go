package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DailyTotal accumulates, per entity and per calendar day, the sum of every
// metric recorded for that day. Entities keep their first-seen order.
type DailyTotal struct {
	entities []string
	days     map[string]map[time.Time]decimal.Decimal
}

func NewDailyTotal() *DailyTotal {
	return &DailyTotal{days: make(map[string]map[time.Time]decimal.Decimal)}
}

// Add adds value to the running sum of (entity, day).
func (d *DailyTotal) Add(entity string, day time.Time, value decimal.Decimal) {
	day = Day(day)
	sums, ok := d.days[entity]
	if !ok {
		sums = make(map[time.Time]decimal.Decimal)
		d.days[entity] = sums
		d.entities = append(d.entities, entity)
	}
	sums[day] = sums[day].Add(value)
}

// Entities returns the entities in first-seen order.
func (d *DailyTotal) Entities() []string {
	return append([]string(nil), d.entities...)
}

// Dates returns the days recorded for entity in chronological order.
func (d *DailyTotal) Dates(entity string) []time.Time {
	sums := d.days[entity]
	dates := make([]time.Time, 0, len(sums))
	for day := range sums {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Sum returns the accumulated value for (entity, day) and whether it exists.
func (d *DailyTotal) Sum(entity string, day time.Time) (decimal.Decimal, bool) {
	v, ok := d.days[entity][Day(day)]
	return v, ok
}

// Len returns the number of distinct (entity, day) pairs.
func (d *DailyTotal) Len() int {
	n := 0
	for _, sums := range d.days {
		n += len(sums)
	}
	return n
}

// Equal reports whether both totals hold the same entities, days and sums.
func (d *DailyTotal) Equal(other *DailyTotal) bool {
	if len(d.entities) != len(other.entities) {
		return false
	}
	for i, entity := range d.entities {
		if other.entities[i] != entity || len(d.days[entity]) != len(other.days[entity]) {
			return false
		}
		for day, v := range d.days[entity] {
			ov, ok := other.days[entity][day]
			if !ok || !ov.Equal(v) {
				return false
			}
		}
	}
	return true
}
