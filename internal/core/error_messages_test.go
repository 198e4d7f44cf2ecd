package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "parse failure",
			err:      hardInput(ErrParse, errors.New(`bare " in non-quoted field`)),
			wantCode: "FILE002",
		},
		{
			name:     "empty input",
			err:      hardInput(ErrEmptyInput, nil),
			wantCode: "FILE003",
		},
		{
			name:     "row limit",
			err:      hardInput(ErrRowLimit, nil),
			wantCode: "FILE005",
		},
		{
			name:     "unsupported format",
			err:      hardInput(ErrUnsupportedFormat, nil),
			wantCode: "FILE006",
		},
		{
			name:     "commit error wins over wrapped cause",
			err:      &CommitError{Rows: 3, Err: context.DeadlineExceeded},
			wantCode: "IMP001",
		},
		{
			name:     "validation errors",
			err:      ValidationErrors{{Field: FieldCity, Message: "city is required"}},
			wantCode: "VAL001",
		},
		{
			name:     "wrapped email taken",
			err:      fmt.Errorf("update: %w", ErrEmailTaken),
			wantCode: "VAL002",
		},
		{
			name:     "not found",
			err:      ErrNotFound,
			wantCode: "LEAD001",
		},
		{
			name:     "too many imports",
			err:      ErrTooManyImports,
			wantCode: "IMP002",
		},
		{
			name:     "duplicate key from driver",
			err:      errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"),
			wantCode: "DB001",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode: "DB004",
		},
		{
			name:     "sqlite busy",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode: "DB007",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("RATE LIMIT exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNotFound)

	expected := "Lead not found (Code: LEAD001). It may have been deleted. Refresh the list"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known sentinel is user facing", ErrEmailTaken, true},
		{"known pattern is user facing", errors.New("deadlock detected"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
