package scrape

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"capprices/internal/core"
)

// Selectors of the results table, tried in order. The page has shipped both
// layouts.
var TableSelectors = []string{
	"main section table",
	"table",
}

// Table is the results table of one tender day.
type Table struct {
	Metrics  []string
	Entities []string
	cells    map[string][]string
}

// Values returns the raw cells of entity, aligned with Metrics.
func (t *Table) Values(entity string) ([]string, bool) {
	v, ok := t.cells[entity]
	return v, ok
}

// ParseTable reads the first table matching TableSelectors. It returns an
// error matching core.ErrNotFound when the page holds no usable table yet.
func ParseTable(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	for _, sel := range TableSelectors {
		var t *Table
		doc.Find(sel).EachWithBreak(func(_ int, table *goquery.Selection) bool {
			t = readTable(table)
			return t == nil
		})
		if t != nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("results table: %w", core.ErrNotFound)
}

func readTable(table *goquery.Selection) *Table {
	headRows := table.Find("thead tr")
	if headRows.Length() == 0 {
		return nil
	}
	// Metric labels sit in the second header row when there is one.
	metricRow := headRows.Last()
	if headRows.Length() >= 2 {
		metricRow = headRows.Eq(1)
	}

	var labels []string
	metricRow.Find("th").Each(func(_ int, th *goquery.Selection) {
		labels = append(labels, cellText(th))
	})

	t := &Table{cells: make(map[string][]string)}
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 2 {
			return
		}
		entity := cellText(tds.First())
		if entity == "" {
			return
		}
		var values []string
		tds.Slice(1, tds.Length()).Each(func(_ int, td *goquery.Selection) {
			values = append(values, cellText(td))
		})
		if _, dup := t.cells[entity]; !dup {
			t.Entities = append(t.Entities, entity)
		}
		t.cells[entity] = values
	})
	if len(t.Entities) == 0 {
		return nil
	}

	// A header row covering the entity column too carries one extra label.
	width := len(t.cells[t.Entities[0]])
	if len(labels) == width+1 {
		labels = labels[1:]
	}
	if len(labels) > width {
		labels = labels[:width]
	}
	t.Metrics = labels
	return t
}

// cellText prefers the label span used by the page over the full cell text,
// which also holds sort icons and tooltips.
func cellText(s *goquery.Selection) string {
	if label := s.Find("span div span").First(); label.Length() > 0 {
		if text := normalizeSpace(label.Text()); text != "" {
			return text
		}
	}
	return normalizeSpace(s.Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

// ParseGermanNumber reads a number written with "." as thousands separator
// and "," as decimal separator, the way the page prints prices.
func ParseGermanNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(normalizeSpace(s), " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", core.ErrInvalidValue, s)
	}
	return d, nil
}
