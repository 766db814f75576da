package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"capprices/internal/core"
	"capprices/internal/export"
)

var _ export.StatsWriter = (*Client)(nil)

// Client overwrites one sheet with the latest monthly statistics.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Credentials holds a service account key, inline or as a file path.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
}

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, spreadsheetID, sheetName string, creds Credentials) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet", spreadsheetID, "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// WriteMonthly clears the sheet and writes a header followed by one row per
// entity and month.
func (c *Client) WriteMonthly(ctx context.Context, run core.Run, stats core.MonthlyStats) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	all := a1Range(c.sheetName, "A:Z")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", all, err)
	}

	rows := statsRows(run, stats)
	rng := a1Range(c.sheetName, "A1")
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Monthly stats exported to Google Sheets",
		"run_id", run.ID.String(),
		"sheet", c.sheetName,
		"rows", len(rows)-1)
	return nil
}

// statsRows lays out the values written by WriteMonthly. Figures are kept
// as fixed two-decimal strings so the sheet shows what the report shows.
func statsRows(run core.Run, stats core.MonthlyStats) [][]any {
	header := make([]any, 0, len(core.AveragesHeader)+1)
	for _, h := range core.AveragesHeader {
		header = append(header, h)
	}
	header = append(header, "Run")

	rows := [][]any{header}
	for _, em := range stats {
		for _, m := range em.Months {
			rows = append(rows, []any{
				em.Entity,
				m.Label,
				m.Mean.StringFixed(core.Precision),
				m.Min.StringFixed(core.Precision),
				m.Max.StringFixed(core.Precision),
				run.ID.String(),
			})
		}
	}
	return rows
}

// a1Range quotes the sheet name so names with spaces or quotes stay valid.
func a1Range(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
