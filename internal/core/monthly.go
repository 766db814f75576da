package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// HoursPerDay converts a daily summed price into a per-hour price.
	HoursPerDay = 24
	// Precision is the number of decimals kept in every reported figure.
	Precision int32 = 2
)

var hoursPerDay = decimal.NewFromInt(HoursPerDay)

// PerHour scales a daily sum to its per-hour value. No rounding happens here.
func PerHour(sum decimal.Decimal) decimal.Decimal {
	return sum.Div(hoursPerDay)
}

// MonthStat holds the rounded statistics of one month for one entity.
// Start is the first day of the earliest month grouped under Label.
type MonthStat struct {
	Label string
	Start time.Time
	Mean  decimal.Decimal
	Min   decimal.Decimal
	Max   decimal.Decimal
}

// EntityMonths lists the months of an entity in chronological order.
type EntityMonths struct {
	Entity string
	Months []MonthStat
}

// MonthlyStats keeps one entry per entity, in the order of the DailyTotal it came from.
type MonthlyStats []EntityMonths

// Entities returns the entity keys in stored order.
func (m MonthlyStats) Entities() []string {
	out := make([]string, len(m))
	for i, em := range m {
		out[i] = em.Entity
	}
	return out
}

type monthGroup struct {
	label  string
	start  time.Time
	values []decimal.Decimal
}

func (g *monthGroup) stat() MonthStat {
	first, rest := g.values[0], g.values[1:]
	mean := decimal.Sum(first, rest...).Div(decimal.NewFromInt(int64(len(g.values))))
	return MonthStat{
		Label: g.label,
		Start: g.start,
		Mean:  mean.Round(Precision),
		Min:   decimal.Min(first, rest...).Round(Precision),
		Max:   decimal.Max(first, rest...).Round(Precision),
	}
}

// ReduceMonthly groups the per-hour daily values by month label and computes
// mean, min and max for every group.
func ReduceMonthly(daily *DailyTotal, monthFormat string) MonthlyStats {
	entities := daily.Entities()
	out := make(MonthlyStats, 0, len(entities))

	for _, entity := range entities {
		groups := make(map[string]*monthGroup)
		var order []*monthGroup

		for _, day := range daily.Dates(entity) {
			sum, _ := daily.Sum(entity, day)
			label := FormatDate(monthFormat, day)
			g, ok := groups[label]
			if !ok {
				g = &monthGroup{label: label, start: MonthStart(day)}
				groups[label] = g
				order = append(order, g)
			}
			g.values = append(g.values, PerHour(sum))
		}

		sort.SliceStable(order, func(i, j int) bool { return order[i].start.Before(order[j].start) })

		months := make([]MonthStat, 0, len(order))
		for _, g := range order {
			months = append(months, g.stat())
		}
		out = append(out, EntityMonths{Entity: entity, Months: months})
	}

	return out
}
