package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lead does not exist or is not owned by
	// the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("lead not found")

	// ErrEmailTaken is returned by create/update when another lead of the
	// same owner already uses the email.
	ErrEmailTaken = errors.New("email already in use")

	// ErrUnauthorized is returned when no CurrentUser is available.
	ErrUnauthorized = errors.New("unauthorized")
)

// Hard input failures. Each aborts an import before any row is processed.
var (
	ErrParse      = errors.New("Invalid CSV format")
	ErrEmptyInput = errors.New("CSV file is empty")
	ErrRowLimit   = fmt.Errorf("Maximum %d rows allowed", MaxImportRows)
)

// HardInputError wraps one of ErrParse, ErrEmptyInput or ErrRowLimit with the
// underlying cause, if any.
type HardInputError struct {
	Kind  error
	Cause error
}

func (e *HardInputError) Error() string {
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *HardInputError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func hardInput(kind, cause error) *HardInputError {
	return &HardInputError{Kind: kind, Cause: cause}
}

// CommitError reports that the transactional commit of an import failed and
// nothing was persisted.
type CommitError struct {
	Rows int
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %d leads: %v", e.Rows, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
