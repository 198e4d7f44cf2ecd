package core

import (
	"errors"
	"fmt"
	"slices"
)

const (
	msgNoValidRecords = "No valid records found to import"
	msgCommitFailed   = "Import failed: no leads were saved"
)

// ImportResult is the response of a bulk import.
type ImportResult struct {
	Success  bool              `json:"success"`
	Imported int               `json:"imported"`
	Errors   []ValidationError `json:"errors"`
	Message  string            `json:"message"`
}

// ErroredRows returns the number of distinct rows with at least one error.
func (r ImportResult) ErroredRows() int {
	rows := make(map[int]struct{}, len(r.Errors))
	for _, e := range r.Errors {
		rows[e.Row] = struct{}{}
	}
	return len(rows)
}

// aggregate merges the per-row errors with the outcome of the commit.
// commitErr is nil on success; a hard input failure is handled by abortResult.
func aggregate(rowErrs []ValidationError, imported int, commitErr error) ImportResult {
	errs := slices.Clone(rowErrs)
	if errs == nil {
		errs = []ValidationError{}
	}
	slices.SortStableFunc(errs, func(a, b ValidationError) int {
		return a.Row - b.Row
	})

	if commitErr != nil {
		return ImportResult{
			Success:  false,
			Imported: 0,
			Errors:   errs,
			Message:  msgCommitFailed,
		}
	}

	msg := msgNoValidRecords
	if imported > 0 {
		msg = fmt.Sprintf("Successfully imported %d leads", imported)
	}
	return ImportResult{
		Success:  imported > 0,
		Imported: imported,
		Errors:   errs,
		Message:  msg,
	}
}

// abortResult describes a hard input failure: nothing processed, no row
// attribution.
func abortResult(err error) ImportResult {
	msg := err.Error()
	var hard *HardInputError
	if errors.As(err, &hard) {
		msg = hard.Kind.Error()
	}
	return ImportResult{
		Success:  false,
		Imported: 0,
		Errors:   []ValidationError{},
		Message:  msg,
	}
}
