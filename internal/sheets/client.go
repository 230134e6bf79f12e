// Package sheets reads client spreadsheets through the Google Sheets
// API using the client's own service-account credentials.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/halduskeskus/postiljon/internal/dispatch"
)

// Client wraps an authenticated Sheets service for one credential file.
type Client struct {
	svc *sheets.Service
}

// NewClient builds a Sheets client from a service-account JSON key.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	key, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// Rows fetches the sheet and maps it to dispatch rows. The first row
// is the header and is consumed as column names. An empty sheet yields
// an empty slice, not an error.
func (c *Client) Rows(ctx context.Context, spreadsheetID, sheetName string) ([]dispatch.SheetRow, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, sheetName).Context(ctx).Do()
	if err != nil {
		return nil, &dispatch.RemoteFetchError{Op: "sheet rows", Err: err}
	}
	return rowsFromValues(resp.Values), nil
}

// Expected column headers in the client's sheet.
const (
	colUnit    = "apt_number"
	colEmail   = "email"
	colRefCode = "kr_nr"
)

func rowsFromValues(values [][]interface{}) []dispatch.SheetRow {
	if len(values) < 2 {
		return nil
	}

	index := make(map[string]int, len(values[0]))
	for i, h := range values[0] {
		if name, ok := h.(string); ok {
			index[strings.TrimSpace(name)] = i
		}
	}

	rows := make([]dispatch.SheetRow, 0, len(values)-1)
	for _, raw := range values[1:] {
		rows = append(rows, dispatch.SheetRow{
			UnitID:  cell(raw, index, colUnit),
			Email:   cell(raw, index, colEmail),
			RefCode: cell(raw, index, colRefCode),
		})
	}
	return rows
}

func cell(row []interface{}, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok || i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return strings.TrimSpace(s)
	}
	// The API hands unformatted numeric cells back as non-strings.
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
