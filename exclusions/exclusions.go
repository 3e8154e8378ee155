// Package exclusions loads the phone-keyed caller override workbook and
// applies it to normalized record batches.
package exclusions

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"calldash/transform"
)

// Table maps a digits-only phone key to the display name that should replace
// the caller field. Built in a single pass and read-only afterwards.
type Table map[string]string

// Load reads the override workbook at path. A missing or unreadable file is
// not an error: overrides simply become a no-op and the rest of the pipeline
// proceeds, so the table never blocks a refresh.
func Load(path string) Table {
	f, err := excelize.OpenFile(path)
	if err != nil {
		log.Printf("exclusions: %s unavailable: %v (overrides disabled)", path, err)
		return Table{}
	}
	defer f.Close()
	table, err := fromWorkbook(f)
	if err != nil {
		log.Printf("exclusions: %s unreadable: %v (overrides disabled)", path, err)
		return Table{}
	}
	log.Printf("exclusions: loaded %d phone -> name overrides from %s", len(table), path)
	return table
}

// Parse reads the override workbook from a stream, for callers that do not
// have it on disk.
func Parse(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return fromWorkbook(f)
}

// The source workbook has a sparse layout: column A holds the phone number,
// column C the display name, column B is ignored. Row 0 is a header.
func fromWorkbook(f *excelize.File) (Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	table := Table{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		var phone, name string
		if len(row) > 0 {
			phone = row[0]
		}
		if len(row) > 2 {
			name = strings.TrimSpace(row[2])
		}
		key := transform.PhoneKey(phone)
		if key == "" || name == "" {
			continue
		}
		table[key] = name
	}
	return table, nil
}

// Apply relabels records whose number matches an override entry: the caller
// name is always replaced, the reason only when it is empty or the
// placeholder. A genuine reason already on the record is never clobbered.
// Apply is pure and idempotent; the input slice is not modified.
func Apply(records []transform.CanonicalRecord, table Table) []transform.CanonicalRecord {
	if len(records) == 0 || len(table) == 0 {
		return records
	}
	out := make([]transform.CanonicalRecord, len(records))
	copy(out, records)
	for i := range out {
		name, ok := table[transform.PhoneKey(out[i].NumberCalled)]
		if !ok {
			continue
		}
		out[i].WhoCalled = name
		if out[i].Reason == "" || out[i].Reason == transform.NoReason {
			out[i].Reason = transform.Capitalize(name)
		}
	}
	return out
}
