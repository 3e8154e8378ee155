package source

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestA1TabRef(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Sheet1", "Sheet1"},
		{"Call Log", "'Call Log'"},
		{"O'Brien", "'O''Brien'"},
	}
	for _, c := range cases {
		if got := a1TabRef(c.in); got != c.want {
			t.Errorf("a1TabRef(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFetchBuildsHeaderKeyedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/values/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values":[
			["Number Called","Calls#","Who Called","Reason"],
			["5.27E+11","3","john",""],
			["5615551234"]
		]}`))
	}))
	defer srv.Close()

	c := NewSheetClient(srv.Client(), "sheet-id", "Sheet1", "key")
	c.baseURL = srv.URL

	records, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0][0].Header != "Number Called" || records[0][0].Value != "5.27E+11" {
		t.Fatalf("first cell = %+v", records[0][0])
	}
	// short row padded to full header set
	if len(records[1]) != 4 || records[1][3].Value != "" {
		t.Fatalf("short row not padded: %+v", records[1])
	}
}

func TestFetchSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewSheetClient(srv.Client(), "sheet-id", "Sheet1", "key")
	c.baseURL = srv.URL

	_, err := c.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("error missing status/body: %v", err)
	}
}

func TestCellStringNumericCells(t *testing.T) {
	if got := cellString(float64(3)); got != "3" {
		t.Fatalf("cellString(3) = %q", got)
	}
	if got := cellString(nil); got != "" {
		t.Fatalf("cellString(nil) = %q", got)
	}
}

func TestParseWorkbook(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Number Called", "Calls#", "Who Called", "Reason"},
		{"5615551234", 2, "expedia", "Lost Bag"},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	records, err := ParseWorkbook(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0][1].Header != "Calls#" || records[0][1].Value != "2" {
		t.Fatalf("cell = %+v", records[0][1])
	}
}

func TestParseWorkbookRejectsGarbage(t *testing.T) {
	if _, err := ParseWorkbook(strings.NewReader("not a workbook")); err == nil {
		t.Fatal("expected error")
	}
}
