// Package ingest turns uploaded tabular payloads (CSV or Excel) into
// validated contribution records.
//
// The whole file is rejected when it is unreadable (ParseError) or when a
// required column is missing (SchemaError). Individual rows with an
// unparseable transfer date, a non-numeric amount, or an amount <= 0 are
// dropped and counted; the surviving rows are returned sorted by transfer
// date descending.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"contribs/internal/core"

	"github.com/xuri/excelize/v2"
)

// RequiredColumns are the header names an uploaded file must carry.
// Matching is case-insensitive; extra columns are ignored.
var RequiredColumns = []string{"phone", "amount", "transfer_date"}

// ParseError reports a payload that could not be read as tabular data.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unreadable tabular file: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// SchemaError reports required columns absent from the header row.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Result is the outcome of a successful ingestion, including row counts for
// user-facing feedback.
type Result struct {
	Records  []core.Contribution
	Accepted int
	Dropped  int
	Total    int
}

// ReadCSV validates a CSV payload.
func ReadCSV(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return Result{}, &ParseError{Cause: err}
	}
	if len(rows) == 0 {
		return Result{}, &ParseError{Cause: errors.New("empty file")}
	}
	return fromTable(rows[0], rows[1:])
}

// ReadXLSX validates an Excel payload. Only the first sheet is read.
func ReadXLSX(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, &ParseError{Cause: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, &ParseError{Cause: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, &ParseError{Cause: err}
	}
	if len(rows) == 0 {
		return Result{}, &ParseError{Cause: errors.New("empty sheet")}
	}
	return fromTable(rows[0], rows[1:])
}

// fromTable applies the schema check, type coercion, and row filtering steps
// to a decoded header + data rows.
func fromTable(header []string, rows [][]string) (Result, error) {
	idx, missing := columnIndex(header)
	if len(missing) > 0 {
		return Result{}, &SchemaError{Missing: missing}
	}

	res := Result{Total: len(rows)}
	for _, row := range rows {
		c, ok := coerceRow(row, idx)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, c)
	}
	res.Accepted = len(res.Records)

	// Newest first, the display order of the dashboard.
	sort.SliceStable(res.Records, func(i, j int) bool {
		return res.Records[i].TransferDate.After(res.Records[j].TransferDate.Time)
	})

	return res, nil
}

// columnIndex maps the required column names to their positions in the header.
func columnIndex(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(RequiredColumns))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return idx, missing
}

// coerceRow converts one data row into a typed record. Returns false when the
// row must be dropped.
func coerceRow(row []string, idx map[string]int) (core.Contribution, bool) {
	phone := strings.TrimSpace(cell(row, idx["phone"]))

	date, err := core.ParseDate(cell(row, idx["transfer_date"]))
	if err != nil {
		return core.Contribution{}, false
	}

	cents, err := core.ParseDecimalToCents(cell(row, idx["amount"]))
	if err != nil {
		return core.Contribution{}, false
	}

	c := core.Contribution{
		Phone:        phone,
		Amount:       core.Money{Cents: cents},
		TransferDate: date,
	}
	if err := c.Validate(); err != nil {
		return core.Contribution{}, false
	}
	return c, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
