package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"capprices/internal/core"
	applog "capprices/internal/log"
)

func page(rows ...string) string {
	return `<html><body><main><section><table>
<thead><tr><th rowspan="2">Country</th><th colspan="2">Price</th></tr><tr><th>P1</th><th>P2</th></tr></thead>
<tbody>` + strings.Join(rows, "") + `</tbody></table></section></main></body></html>`
}

func row(entity, p1, p2 string) string {
	return fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>", entity, p1, p2)
}

// tenderServer serves one page per date query parameter.
type tenderServer struct {
	mu       sync.Mutex
	pages    map[string]string
	requests []string
}

func (s *tenderServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	s.mu.Lock()
	s.requests = append(s.requests, date)
	body, ok := s.pages[date]
	s.mu.Unlock()
	if !ok {
		body = "<html><body>Loading</body></html>"
	}
	fmt.Fprint(w, body)
}

func testLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelDebug, Component: applog.ComponentScrape, Output: buf})
}

type recorded struct {
	days []time.Time
	obs  []core.Observation
}

func (r *recorded) write(_ context.Context, day time.Time, obs []core.Observation) error {
	r.days = append(r.days, day)
	r.obs = append(r.obs, obs...)
	return nil
}

func newTestScraper(t *testing.T, srv *tenderServer, exit bool, out *recorded, logs *bytes.Buffer) *Scraper {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	fetcher := NewFetcher(ts.Client(), ts.URL+"/tenders?date={date}", Poller{Interval: time.Millisecond, Attempts: 2})
	return New(fetcher, Options{
		Selection:     core.NewSelection("Frankreich", "Deutschland"),
		DateFormat:    core.DefaultDateFormat,
		ExitOnMissing: exit,
	}, out.write, testLogger(logs))
}

func date(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestScraperRun(t *testing.T) {
	srv := &tenderServer{pages: map[string]string{
		"2024-01-01": page(row("Frankreich", "10,50", "5,50"), row("Deutschland", "1.000,00", "2,00")),
		"2024-01-02": page(row("Deutschland", "3,00", "4,00"), row("Frankreich", "1,00", "2,00")),
	}}
	out := &recorded{}
	var logs bytes.Buffer

	res, err := newTestScraper(t, srv, false, out, &logs).Run(context.Background(), date(1), date(2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Days != 2 || res.Observations != 8 || res.Errors != 0 || res.Stopped {
		t.Errorf("result = %+v", res)
	}
	if len(out.days) != 2 || !out.days[1].Equal(date(2)) {
		t.Errorf("days written = %v", out.days)
	}

	// Entities come in sorted order, metrics in header order.
	first := out.obs[0]
	if first.Entity != "Deutschland" || first.Metric != "P1" || first.Value.String() != "1000" {
		t.Errorf("first observation = %+v", first)
	}
	fr := out.obs[2]
	if fr.Entity != "Frankreich" || fr.Value.String() != "10.5" || !fr.Date.Equal(date(1)) {
		t.Errorf("FR observation = %+v", fr)
	}
}

func TestScraperMissingEntity(t *testing.T) {
	pages := map[string]string{
		"2024-01-01": page(row("Frankreich", "1,00", "2,00")),
		"2024-01-02": page(row("Frankreich", "1,00", "2,00"), row("Deutschland", "1,00", "2,00")),
	}

	t.Run("skip", func(t *testing.T) {
		out := &recorded{}
		var logs bytes.Buffer
		res, err := newTestScraper(t, &tenderServer{pages: pages}, false, out, &logs).Run(context.Background(), date(1), date(2))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if res.Errors != 1 || res.Stopped || res.Days != 2 || res.Observations != 6 {
			t.Errorf("result = %+v", res)
		}
		if !strings.Contains(logs.String(), "Entity not found on the page") || !strings.Contains(logs.String(), "action=skip") {
			t.Errorf("missing error log: %s", logs.String())
		}
	})

	t.Run("exit", func(t *testing.T) {
		srv := &tenderServer{pages: pages}
		out := &recorded{}
		var logs bytes.Buffer
		res, err := newTestScraper(t, srv, true, out, &logs).Run(context.Background(), date(1), date(2))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if !res.Stopped || res.Days != 1 || res.Errors != 1 {
			t.Errorf("result = %+v", res)
		}
		for _, d := range srv.requests {
			if d == "2024-01-02" {
				t.Errorf("second day must not be requested after exit")
			}
		}
	})
}

func TestScraperTableNeverAppears(t *testing.T) {
	srv := &tenderServer{pages: map[string]string{}}
	out := &recorded{}
	var logs bytes.Buffer

	res, err := newTestScraper(t, srv, false, out, &logs).Run(context.Background(), date(1), date(1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Errors != 1 || len(out.obs) != 0 {
		t.Errorf("result = %+v, obs = %d", res, len(out.obs))
	}
	if len(srv.requests) != 2 {
		t.Errorf("expected one request per poll attempt, got %d", len(srv.requests))
	}
}

func TestScraperEmptyRange(t *testing.T) {
	srv := &tenderServer{}
	out := &recorded{}
	var logs bytes.Buffer

	res, err := newTestScraper(t, srv, false, out, &logs).Run(context.Background(), date(3), date(2))
	if err != nil || res.Days != 0 || len(srv.requests) != 0 {
		t.Errorf("res=%+v err=%v requests=%d", res, err, len(srv.requests))
	}
}

func TestFetcherURL(t *testing.T) {
	f := NewFetcher(nil, "https://example.com/tenders/?date={date}&tab=1", Poller{Attempts: 1})
	if got := f.URL(date(31)); got != "https://example.com/tenders/?date=2024-01-31&tab=1" {
		t.Errorf("URL = %q", got)
	}
}
