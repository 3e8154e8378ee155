package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"calldash/exclusions"
	"calldash/internal/refresh"
	"calldash/metrics"
	"calldash/transform"
)

type staticFetcher struct{ raws []transform.RawRecord }

func (s staticFetcher) Fetch(ctx context.Context) ([]transform.RawRecord, error) {
	return s.raws, nil
}

func setupTest(t *testing.T) (*http.ServeMux, *refresh.Runner) {
	t.Helper()
	raws := []transform.RawRecord{
		{{Header: "Number Called", Value: "5615551234"}, {Header: "Calls#", Value: "3"}, {Header: "Reason", Value: "Lost Bag"}},
		{{Header: "Number Called", Value: "5615550000"}, {Header: "Calls#", Value: "1"}, {Header: "Reason", Value: "Refund"}},
		{{Header: "Number Called", Value: "5615551234"}, {Header: "Calls#", Value: "2"}, {Header: "Reason", Value: "Refund"}},
	}
	m := metrics.New()
	runner := refresh.NewRunner(staticFetcher{raws: raws}, func() exclusions.Table { return exclusions.Table{} }, time.Minute, m)
	if err := runner.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	NewRouter(runner, m).Register(mux)
	return mux, runner
}

func getJSON(t *testing.T, mux *http.ServeMux, url string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return body
}

func TestRecordsSearchAndPagination(t *testing.T) {
	mux, _ := setupTest(t)

	body := getJSON(t, mux, "/api/records?q=refund")
	if body["total"].(float64) != 2 {
		t.Fatalf("search total = %v", body["total"])
	}

	body = getJSON(t, mux, "/api/records?per_page=2&page=2")
	if len(body["records"].([]any)) != 1 {
		t.Fatalf("page 2 size = %d", len(body["records"].([]any)))
	}

	body = getJSON(t, mux, "/api/records?reason=Lost+Bag")
	if body["total"].(float64) != 1 {
		t.Fatalf("reason filter total = %v", body["total"])
	}

	reasons := body["reasons"].([]any)
	if len(reasons) != 2 || reasons[0] != "Lost Bag" {
		t.Fatalf("distinct reasons = %v", reasons)
	}
}

func TestReasonsTopN(t *testing.T) {
	mux, _ := setupTest(t)
	body := getJSON(t, mux, "/api/reasons?limit=1")
	entries := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %v", entries)
	}
	top := entries[0].(map[string]any)
	if top["reason"] != "Lost Bag" || top["quantity"].(float64) != 3 {
		t.Fatalf("top entry = %v", top)
	}
	if body["total"].(float64) != 6 {
		t.Fatalf("total = %v", body["total"])
	}
}

func TestSummaryEndpoint(t *testing.T) {
	mux, _ := setupTest(t)
	body := getJSON(t, mux, "/api/summary")
	if body["state"] != refresh.StateOK {
		t.Fatalf("state = %v", body["state"])
	}
	summary := body["summary"].(map[string]any)
	if summary["uniqueNumbers"].(float64) != 2 || summary["repeatCount"].(float64) != 1 {
		t.Fatalf("summary = %v", summary)
	}
}

func TestUploadEndpoint(t *testing.T) {
	mux, runner := setupTest(t)

	f := excelize.NewFile()
	cells := map[string]any{
		"A1": "Number Called", "B1": "Calls#", "C1": "Reason",
		"A2": "7025550101", "B2": 4, "C2": "Upgrade",
	}
	for cell, v := range cells {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	var workbook bytes.Buffer
	if err := f.Write(&workbook); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "calls.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(workbook.Bytes()); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rr.Code, rr.Body.String())
	}

	snap := runner.Snapshot()
	if !snap.Uploaded || snap.Summary.TotalCalls != 4 {
		t.Fatalf("uploaded snapshot = %+v", snap.Summary)
	}
}

func TestUploadRejectsGet(t *testing.T) {
	mux, _ := setupTest(t)
	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestManualRefreshEndpoint(t *testing.T) {
	mux, _ := setupTest(t)
	req := httptest.NewRequest(http.MethodPost, "/ops/refresh", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := setupTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ops/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
