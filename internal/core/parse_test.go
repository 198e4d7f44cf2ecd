package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const leadHeader = "fullName,email,phone,city,propertyType,bhk,purpose,budgetMin,budgetMax,timeline,source,status,notes,tags"

// ============================================================================
// ParseCSV Tests
// ============================================================================

func TestParseCSV_RowNumbers(t *testing.T) {
	input := leadHeader + "\n" +
		"Asha Verma,asha@example.com,9876543210,Mohali,Apartment,Two,Buy,,,Exploring,Website,,,\n" +
		"Ravi Kumar,,9876543211,Chandigarh,Plot,,Buy,,,Exploring,Call,,,\n" +
		"Meera Shah,,9876543212,Other,Office,,Rent,,,Exploring,Referral,,,\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	for i, row := range rows {
		if row.Row != i+2 {
			t.Errorf("rows[%d].Row = %d, want %d", i, row.Row, i+2)
		}
	}
	if got := rows[0].Raw(FieldName); got != "Asha Verma" {
		t.Errorf("fullName alias: Raw(name) = %q, want %q", got, "Asha Verma")
	}
}

func TestParseCSV_QuotedFields(t *testing.T) {
	input := "name,phone,notes,tags\n" +
		`"Verma, Asha",9876543210,"Said ""call after 6""` + "\nline two\",\"vip, investor\"\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}

	row := rows[0]
	if got := row.Raw(FieldName); got != "Verma, Asha" {
		t.Errorf("name = %q, want %q", got, "Verma, Asha")
	}
	if got := row.Raw(FieldNotes); got != "Said \"call after 6\"\nline two" {
		t.Errorf("notes = %q", got)
	}
	if got := row.Raw(FieldTags); got != "vip, investor" {
		t.Errorf("tags = %q, want %q", got, "vip, investor")
	}
}

func TestParseCSV_Headers(t *testing.T) {
	input := "\xEF\xBB\xBF Full_Name , EMAIL ,Phone,Referrer,City\n" +
		"Asha Verma,asha@example.com,9876543210,Someone,Mohali,extra\n" +
		"Ravi Kumar\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	first := rows[0]
	if got := first.Raw(FieldName); got != "Asha Verma" {
		t.Errorf("name = %q, want %q", got, "Asha Verma")
	}
	if got := first.Raw(FieldEmail); got != "asha@example.com" {
		t.Errorf("email = %q, want %q", got, "asha@example.com")
	}
	if _, ok := first.Values["referrer"]; ok {
		t.Error("unknown column should be dropped")
	}
	if len(first.Values) != 4 {
		t.Errorf("len(Values) = %d, want 4", len(first.Values))
	}

	// Ragged row: missing trailing cells read as absent.
	if got := rows[1].Raw(FieldCity); got != "" {
		t.Errorf("short row city = %q, want empty", got)
	}
}

func TestParseCSV_BlankCellRows(t *testing.T) {
	// The empty line is not a record. The all-empty records are data rows.
	input := "name,phone\nAsha Verma,9876543210\n\n,\n , \nRavi Kumar,9876543211\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}
	for i, row := range rows {
		if row.Row != i+2 {
			t.Errorf("rows[%d].Row = %d, want %d", i, row.Row, i+2)
		}
	}
	if got := rows[1].Raw(FieldName); got != "" {
		t.Errorf("rows[1] name = %q, want empty", got)
	}
	if got := rows[3].Raw(FieldName); got != "Ravi Kumar" {
		t.Errorf("rows[3] name = %q, want %q", got, "Ravi Kumar")
	}
}

func TestParseCSV_HardErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{
			name:  "empty input",
			input: "",
			want:  ErrEmptyInput,
		},
		{
			name:  "header only",
			input: leadHeader + "\n",
			want:  ErrEmptyInput,
		},
		{
			name:  "unterminated quote",
			input: "name,phone\n\"Asha,9876543210\n",
			want:  ErrParse,
		},
		{
			name:  "bare quote in unquoted field",
			input: "name,phone\nAs\"ha,9876543210\n",
			want:  ErrParse,
		},
		{
			name:  "too many rows",
			input: csvWithRows(MaxImportRows + 1),
			want:  ErrRowLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseCSV() error = %v, want %v", err, tt.want)
			}
			var hard *HardInputError
			if !errors.As(err, &hard) {
				t.Errorf("error %T is not a *HardInputError", err)
			}
			if rows != nil {
				t.Errorf("rows = %d, want nil", len(rows))
			}
		})
	}
}

func TestParseCSV_ExactlyMaxRows(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(csvWithRows(MaxImportRows)))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != MaxImportRows {
		t.Errorf("len(rows) = %d, want %d", len(rows), MaxImportRows)
	}
	if last := rows[len(rows)-1].Row; last != MaxImportRows+1 {
		t.Errorf("last Row = %d, want %d", last, MaxImportRows+1)
	}
}

func csvWithRows(n int) string {
	var b strings.Builder
	b.WriteString("name,phone\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Lead %d,98765%05d\n", i, i)
	}
	return b.String()
}

// ============================================================================
// ParseWorkbook / Format Tests
// ============================================================================

func TestParseWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	mustSetRow(t, f, sheet, "A1", []any{"Full Name", "Phone", "City"})
	mustSetRow(t, f, sheet, "A2", []any{"Asha Verma", "9876543210", "Mohali"})
	mustSetRow(t, f, sheet, "A3", []any{"Ravi Kumar", "9876543211", "Zirakpur"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := ParseWorkbook(&buf)
	if err != nil {
		t.Fatalf("ParseWorkbook() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[1].Row != 3 || rows[1].Raw(FieldCity) != "Zirakpur" {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestParseWorkbook_Corrupt(t *testing.T) {
	_, err := ParseWorkbook(strings.NewReader("not a zip archive"))
	if !errors.Is(err, ErrParse) {
		t.Errorf("ParseWorkbook() error = %v, want ErrParse", err)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestParseWorkbook_ReadFailure(t *testing.T) {
	cause := errors.New("connection reset")
	_, err := ParseWorkbook(failingReader{err: cause})

	var hard *HardInputError
	if !errors.As(err, &hard) {
		t.Fatalf("error %T is not a *HardInputError", err)
	}
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error = %v, want it to wrap the read error", err)
	}
}

func mustSetRow(t *testing.T, f *excelize.File, sheet, cell string, values []any) {
	t.Helper()
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		t.Fatalf("SetSheetRow(%s): %v", cell, err)
	}
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    ImportFormat
		wantErr bool
	}{
		{"leads.csv", FormatCSV, false},
		{"LEADS.CSV", FormatCSV, false},
		{"leads", FormatCSV, false},
		{"leads.xlsx", FormatXLSX, false},
		{"leads.pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatFromName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatFromName(%q) = %q, want %q", tt.name, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("error = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}
