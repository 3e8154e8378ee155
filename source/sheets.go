// Package source turns the two supported spreadsheet inputs (the Google
// Sheets API and an uploaded workbook) into header-keyed raw records.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"calldash/transform"
)

const sheetsBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// SheetClient fetches call-log rows from one tab of a Google Sheet via the
// values.get endpoint.
type SheetClient struct {
	client  *http.Client
	baseURL string
	sheetID string
	tab     string
	apiKey  string
}

func NewSheetClient(client *http.Client, sheetID, tab, apiKey string) *SheetClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &SheetClient{client: client, baseURL: sheetsBaseURL, sheetID: sheetID, tab: tab, apiKey: apiKey}
}

var bareA1Name = regexp.MustCompile(`^\w+$`)

// a1TabRef quotes a tab name for an A1 range reference: embedded quotes are
// doubled, and any name with spaces or symbols needs surrounding quotes.
func a1TabRef(name string) string {
	escaped := strings.ReplaceAll(name, "'", "''")
	if bareA1Name.MatchString(escaped) {
		return escaped
	}
	return "'" + escaped + "'"
}

// ValuesURL builds the values.get request URL for columns A:F of the
// configured tab.
func (c *SheetClient) ValuesURL() string {
	rng := a1TabRef(c.tab) + "!A:F"
	return fmt.Sprintf("%s/%s/values/%s?key=%s",
		c.baseURL,
		url.PathEscape(c.sheetID),
		url.PathEscape(rng),
		url.QueryEscape(c.apiKey),
	)
}

// Fetch retrieves the tab and converts it into raw records: row 0 supplies
// the headers, every later row becomes one record. A non-2xx response is an
// error carrying the response body for the operator.
func (c *SheetClient) Fetch(ctx context.Context) ([]transform.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ValuesURL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sheets api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Values [][]interface{} `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("sheets decode: %w", err)
	}

	rows := make([][]string, 0, len(payload.Values))
	for _, row := range payload.Values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, cellString(v))
		}
		rows = append(rows, cells)
	}
	return HeaderRecords(rows), nil
}

// cellString renders a decoded JSON cell as text. The API usually returns
// formatted strings, but numbers must not pick up float formatting artifacts.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// HeaderRecords converts a header-first 2D table into raw records. Short
// data rows are padded with empty cells so every record carries the full
// header set, matching what the upload path produces.
func HeaderRecords(rows [][]string) []transform.RawRecord {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	out := make([]transform.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(transform.RawRecord, 0, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec = append(rec, transform.Cell{Header: h, Value: value})
		}
		out = append(out, rec)
	}
	return out
}
