package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"calldash/transform"
)

// ParseWorkbook reads an uploaded spreadsheet and produces the same
// header-keyed record shape as the remote fetch, so the rest of the pipeline
// cannot tell the two sources apart. Only the first sheet is read.
func ParseWorkbook(r io.Reader) ([]transform.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook sheet %q is empty", sheets[0])
	}
	return HeaderRecords(rows), nil
}
