package core

// parse.go turns uploaded files into ordered, header-keyed rows.
//
// Both CSV and XLSX inputs produce the same []ImportRow shape so the rest of
// the pipeline never sees the source format. Parsing is all-or-nothing: any
// failure here is a *HardInputError and no row is processed.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxImportRows is the hard cap on data rows per import. It bounds the size
// of the commit transaction.
const MaxImportRows = 200

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("File must be CSV or XLSX format")

// ImportFormat identifies the tokenizer used for an upload.
type ImportFormat string

const (
	FormatCSV  ImportFormat = "csv"
	FormatXLSX ImportFormat = "xlsx"
)

// FormatFromName picks the format from a file name's extension. Names without
// an extension are treated as CSV.
func FormatFromName(name string) (ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", hardInput(ErrUnsupportedFormat, nil)
	}
}

// ImportRow is one data row of an upload.
type ImportRow struct {
	// Row is the 1-based line number including the header offset, so the
	// first data row is row 2.
	Row int

	// Values maps canonical field name to the raw cell text. Columns that
	// are not recognized fields are dropped.
	Values map[string]string
}

// Raw returns the raw cell for field, or "" if the column was missing.
func (r ImportRow) Raw(field string) string {
	return r.Values[field]
}

// Parse dispatches to the tokenizer for format.
func Parse(format ImportFormat, r io.Reader) ([]ImportRow, error) {
	switch format {
	case FormatXLSX:
		return ParseWorkbook(r)
	case FormatCSV, "":
		return ParseCSV(r)
	default:
		return nil, hardInput(ErrUnsupportedFormat, nil)
	}
}

// ParseCSV reads a header row followed by data rows. Quoting is strict;
// ragged rows are allowed and missing trailing cells read as empty.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(WrapForParsing(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, hardInput(ErrEmptyInput, nil)
	}
	if err != nil {
		return nil, hardInput(ErrParse, err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, hardInput(ErrParse, err)
		}
		records = append(records, record)
	}

	return buildRows(header, records)
}

// ParseWorkbook reads the first sheet of an XLSX workbook. The first row is
// the header.
func ParseWorkbook(r io.Reader) ([]ImportRow, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, hardInput(ErrParse, fmt.Errorf("read workbook: %w", err))
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, hardInput(ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, hardInput(ErrEmptyInput, nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, hardInput(ErrParse, err)
	}
	if len(rows) == 0 {
		return nil, hardInput(ErrEmptyInput, nil)
	}

	// Rows with no cells at all are the sheet's empty lines. They are dropped
	// the same way encoding/csv drops empty lines.
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) > 0 {
			records = append(records, row)
		}
	}
	return buildRows(rows[0], records)
}

// buildRows keys each record by canonical field name and enforces the empty
// and row-limit rules. Records whose cells are all empty are still data rows
// and keep their position in the numbering.
func buildRows(header []string, records [][]string) ([]ImportRow, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		field, ok := canonicalField(h)
		if !ok {
			continue
		}
		if _, dup := columns[field]; !dup {
			columns[field] = i
		}
	}

	rows := make([]ImportRow, 0, len(records))
	for i, record := range records {
		values := make(map[string]string, len(columns))
		for field, pos := range columns {
			if pos < len(record) {
				values[field] = record[pos]
			}
		}
		rows = append(rows, ImportRow{
			Row:    i + 2,
			Values: values,
		})
	}

	if len(rows) == 0 {
		return nil, hardInput(ErrEmptyInput, nil)
	}
	if len(rows) > MaxImportRows {
		return nil, hardInput(ErrRowLimit, nil)
	}
	return rows, nil
}

// canonicalField maps a header cell onto a known field name, ignoring case
// and surrounding whitespace.
func canonicalField(header string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return "", false
	}
	if alias, ok := headerAliases[h]; ok {
		return alias, true
	}
	for _, f := range TrackedFields {
		if strings.ToLower(f) == h {
			return f, true
		}
	}
	return "", false
}
