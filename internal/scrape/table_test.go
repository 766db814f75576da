package scrape

import (
	"errors"
	"strings"
	"testing"

	"capprices/internal/core"
)

const tenderPage = `<html><body><main><section>
<table>
  <thead>
    <tr><th rowspan="2">Country</th><th colspan="3">Local marginal capacity price (EUR/MW)</th></tr>
    <tr>
      <th><span><div><span>NEGPOS_00_04</span><span class="sort"></span></div></span></th>
      <th><span><div><span>NEGPOS_04_08</span></div></span></th>
      <th>NEGPOS_08_12</th>
    </tr>
  </thead>
  <tbody>
    <tr><td>Frankreich</td><td>1.234,56</td><td>10,50</td><td>5,50</td></tr>
    <tr><td>Deutschland</td><td>7,00</td><td>8,00</td><td>-</td></tr>
  </tbody>
</table>
</section></main></body></html>`

func TestParseTable(t *testing.T) {
	table, err := ParseTable(strings.NewReader(tenderPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := strings.Join(table.Metrics, "|"); got != "NEGPOS_00_04|NEGPOS_04_08|NEGPOS_08_12" {
		t.Errorf("metrics = %q", got)
	}
	if got := strings.Join(table.Entities, "|"); got != "Frankreich|Deutschland" {
		t.Errorf("entities = %q", got)
	}
	values, ok := table.Values("Frankreich")
	if !ok || strings.Join(values, "|") != "1.234,56|10,50|5,50" {
		t.Errorf("values = %v, %v", values, ok)
	}
	if _, ok := table.Values("Belgien"); ok {
		t.Errorf("unexpected entity")
	}
}

func TestParseTableFallbackLayout(t *testing.T) {
	page := `<html><body><div><table>
<thead><tr><th>Country</th><th>P1</th></tr></thead>
<tbody><tr><td>Frankreich</td><td>3,00</td></tr></tbody>
</table></div></body></html>`

	table, err := ParseTable(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Metrics) != 1 || table.Metrics[0] != "P1" {
		t.Errorf("metrics = %v", table.Metrics)
	}
}

func TestParseTableNotFound(t *testing.T) {
	pages := []string{
		`<html><body><p>Loading…</p></body></html>`,
		`<html><body><table><tr><td>layout</td></tr></table></body></html>`,
	}
	for _, page := range pages {
		if _, err := ParseTable(strings.NewReader(page)); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	}
}

func TestParseGermanNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10,50", "10.5", false},
		{"1.234,56", "1234.56", false},
		{" 7 ", "7", false},
		{"1 234,5", "1234.5", false},
		{"-", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGermanNumber(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidValue) {
					t.Errorf("expected ErrInvalidValue, got %v", err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
