package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// Known sentinel errors are matched first with errors.Is / errors.As. Errors
// coming from drivers and libraries are then matched by case-insensitive
// substring, first match wins, so specific patterns precede general ones.
//
// # Codes
//
//	DB001  duplicate key            DB004  connection refused
//	DB002  unique constraint        DB005  connection reset
//	DB003  foreign key              DB006  timeout
//	                                DB007  deadlock
//
//	VAL001 record failed validation
//	VAL002 email already used by another lead
//
//	FILE001 file too large          FILE004 no file provided
//	FILE002 malformed CSV           FILE005 more than 200 rows
//	FILE003 no data rows            FILE006 unsupported file type
//
//	IMP001 commit rolled back       IMP003 request cancelled
//	IMP002 too many imports         IMP004 request timed out
//
//	LEAD001 lead not found
//	AUTH001 not signed in           AUTH002 session expired
//	AUTH003 session revoked
//	RATE001 rate limited
//	ERR000  anything else; check the logs for the technical error

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

// Errors raised by the identity layer that the catalog knows about.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrParse, UserMessage{"The file is not a valid CSV", "Check for unbalanced quotes and save the file as comma-separated values", "FILE002"}},
	{ErrEmptyInput, UserMessage{"The file has no data rows", "Add at least one lead below the header row", "FILE003"}},
	{ErrRowLimit, UserMessage{fmt.Sprintf("The file has more than %d rows", MaxImportRows), "Split the file and import each part separately", "FILE005"}},
	{ErrUnsupportedFormat, UserMessage{"Unsupported file type", "Upload a .csv or .xlsx file", "FILE006"}},
	{ErrTooManyImports, UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP002"}},
	{ErrEmailTaken, UserMessage{"A lead with this email already exists", "Use a different email or leave it empty", "VAL002"}},
	{ErrNotFound, UserMessage{"Lead not found", "It may have been deleted. Refresh the list", "LEAD001"}},
	{ErrTokenExpired, UserMessage{"Your session has expired", "Sign in again", "AUTH002"}},
	{ErrTokenRevoked, UserMessage{"Your session was signed out", "Sign in again", "AUTH003"}},
	{ErrUnauthorized, UserMessage{"You are not signed in", "Sign in and try again", "AUTH001"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "IMP003"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or try again later", "IMP004"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database constraints
	{"duplicate key", UserMessage{"A record with this ID already exists", "Please try again", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Check for duplicate entries", "DB002"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Refresh and try again", "DB003"}},

	// Database connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"database is locked", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Upload handling
	{"file too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return UserMessage{"Some fields are invalid", "Correct the highlighted fields and try again", "VAL001"}
	}
	var commitErr *CommitError
	if errors.As(err, &commitErr) {
		return UserMessage{"Import failed and no leads were saved", "Please try again. Your file was not partially imported", "IMP001"}
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
