package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

// table is a box-drawn fixed-width table. Widths are computed once from the
// title and every row before anything is printed.
type table struct {
	title  []string
	rows   [][]string
	breaks map[int]bool // row indexes preceded by a separator and a repeated title
	widths []int
}

func newTable(title ...string) *table {
	return &table{title: title, breaks: make(map[int]bool)}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// breakBefore repeats the title right before the next added row.
func (t *table) breakBefore() {
	t.breaks[len(t.rows)] = true
}

func (t *table) measure() {
	t.widths = make([]int, len(t.title))
	for i, h := range t.title {
		t.widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if n := utf8.RuneCountInString(c); n > t.widths[i] {
				t.widths[i] = n
			}
		}
	}
}

func (t *table) render(w io.Writer) error {
	t.measure()

	var b strings.Builder
	t.separator(&b, "┌", "┬", "┐")
	t.titleRow(&b)
	for i, row := range t.rows {
		if t.breaks[i] && i > 0 {
			t.separator(&b, "├", "┼", "┤")
			t.titleRow(&b)
		}
		t.line(&b, row, alignRight)
	}
	t.separator(&b, "└", "┴", "┘")

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *table) titleRow(b *strings.Builder) {
	t.line(b, t.title, alignLeft)
	t.separator(b, "├", "┼", "┤")
}

func (t *table) separator(b *strings.Builder, left, mid, right string) {
	parts := make([]string, len(t.widths))
	for i, n := range t.widths {
		parts[i] = strings.Repeat("─", n+2)
	}
	fmt.Fprintf(b, "%s%s%s\n", left, strings.Join(parts, mid), right)
}

func (t *table) line(b *strings.Builder, cells []string, a align) {
	padded := make([]string, len(cells))
	for i, c := range cells {
		pad := strings.Repeat(" ", t.widths[i]-utf8.RuneCountInString(c))
		if a == alignRight {
			padded[i] = pad + c
		} else {
			padded[i] = c + pad
		}
	}
	fmt.Fprintf(b, "│ %s │\n", strings.Join(padded, " │ "))
}
