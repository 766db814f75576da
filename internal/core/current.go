package core

import "time"

// DayValue is one formatted per-hour value of the current month.
type DayValue struct {
	Date  string
	Value string
}

// EntityDays lists the current-month values of an entity in chronological order.
type EntityDays struct {
	Entity string
	Days   []DayValue
}

// CurrentPeriodValues keeps one entry per entity, aligned with MonthlyStats.
type CurrentPeriodValues []EntityDays

// Entities returns the entity keys in stored order.
func (c CurrentPeriodValues) Entities() []string {
	out := make([]string, len(c))
	for i, ed := range c {
		out[i] = ed.Entity
	}
	return out
}

// ExtractCurrentPeriod keeps the days of today's month and formats their
// per-hour value. Every entity of daily gets an entry, possibly empty.
func ExtractCurrentPeriod(daily *DailyTotal, today time.Time, dateFormat string) CurrentPeriodValues {
	entities := daily.Entities()
	out := make(CurrentPeriodValues, 0, len(entities))

	for _, entity := range entities {
		ed := EntityDays{Entity: entity, Days: []DayValue{}}
		for _, day := range daily.Dates(entity) {
			if !SameMonth(day, today) {
				continue
			}
			sum, _ := daily.Sum(entity, day)
			ed.Days = append(ed.Days, DayValue{
				Date:  FormatDate(dateFormat, day),
				Value: PerHour(sum).StringFixed(Precision),
			})
		}
		out = append(out, ed)
	}

	return out
}
