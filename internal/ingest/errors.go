package ingest

// errors.go maps failures to short user-facing messages with codes that can
// be quoted when reporting a problem.
//
// Codes are grouped by category:
//
//	VAL  row failed schema validation
//	REF  row references a record that does not exist
//	DUP  record already exists
//	DB   store failure
//	NET  remote catalogue failure
//	SRC  bulk file problem
//	ERR000 anything else
//
// Typed errors are matched first with errors.Is. Remaining errors are matched
// case-insensitively by substring; the first matching pattern wins, so more
// specific patterns come first.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/libingest/internal/openlibrary"
	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/source"
	"github.com/JonMunkholm/libingest/internal/store"
)

var (
	// ErrMissingSource is returned when a required bulk file is absent.
	ErrMissingSource = errors.New("required source file missing")

	// ErrReferential marks a record whose referenced row does not exist.
	ErrReferential = errors.New("referenced record does not exist")

	// ErrDuplicateRecord marks a record found by a natural-key pre-check.
	ErrDuplicateRecord = errors.New("record already exists")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

type typedPattern struct {
	target error
	msg    UserMessage
}

// typedPatterns are checked with errors.Is before any text matching.
var typedPatterns = []typedPattern{
	{target: ErrReferential, msg: UserMessage{
		Message: "Referenced library does not exist",
		Action:  "Load the library first or fix library_id",
		Code:    "REF001",
	}},
	{target: store.ErrForeignKey, msg: UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Ensure parent records are loaded first",
		Code:    "REF002",
	}},
	{target: ErrDuplicateRecord, msg: UserMessage{
		Message: "A record with the same identity already exists",
		Action:  "Remove the repeated row",
		Code:    "DUP001",
	}},
	{target: store.ErrDuplicate, msg: UserMessage{
		Message: "A unique value is already taken",
		Action:  "Check for repeated emails, phone numbers or ISBNs",
		Code:    "DUP002",
	}},
	{target: store.ErrCheck, msg: UserMessage{
		Message: "The store rejected a value",
		Action:  "Check copy counts and member type",
		Code:    "DB001",
	}},
	{target: openlibrary.ErrNotFound, msg: UserMessage{
		Message: "No match in the catalogue",
		Action:  "Check the spelling of the author name",
		Code:    "NET002",
	}},
	{target: openlibrary.ErrNetwork, msg: UserMessage{
		Message: "The catalogue could not be reached",
		Action:  "Try again later; rows fetched so far were kept",
		Code:    "NET001",
	}},
	{target: ErrMissingSource, msg: UserMessage{
		Message: "A required bulk file is missing",
		Action:  "Provide libraries, authors, books and members files",
		Code:    "SRC001",
	}},
	{target: context.Canceled, msg: UserMessage{
		Message: "The run was cancelled",
		Action:  "Start a new run when ready",
		Code:    "ERR001",
	}},
	{target: context.DeadlineExceeded, msg: UserMessage{
		Message: "The run timed out",
		Action:  "Try again or raise the timeout",
		Code:    "ERR002",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps validation and driver messages (case-insensitive) to
// user messages.
var errorPatterns = []errorPattern{
	{pattern: "missing required field", msg: UserMessage{
		Message: "Required column is missing",
		Action:  "Check that every required column is present",
		Code:    "VAL001",
	}},
	{pattern: "required field is empty", msg: UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in every required field",
		Code:    "VAL002",
	}},
	{pattern: "invalid email", msg: UserMessage{
		Message: "Invalid email address",
		Action:  "Use the form name@example.com",
		Code:    "VAL003",
	}},
	{pattern: "invalid phone", msg: UserMessage{
		Message: "Invalid phone number",
		Action:  "Use at least ten digits, with a country code for non-domestic numbers",
		Code:    "VAL004",
	}},
	{pattern: "invalid isbn", msg: UserMessage{
		Message: "Invalid ISBN",
		Action:  "Use a checksum-valid ISBN-10 or ISBN-13",
		Code:    "VAL005",
	}},
	{pattern: "invalid date", msg: UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
		Code:    "VAL006",
	}},
	{pattern: "whole number", msg: UserMessage{
		Message: "Invalid number",
		Action:  "Use a whole number without separators",
		Code:    "VAL007",
	}},
	{pattern: "must not be negative", msg: UserMessage{
		Message: "Negative number",
		Action:  "Use zero or a positive number",
		Code:    "VAL008",
	}},
	{pattern: "cannot exceed total_copies", msg: UserMessage{
		Message: "More copies available than owned",
		Action:  "Make available_copies at most total_copies",
		Code:    "VAL009",
	}},
	{pattern: "must be one of", msg: UserMessage{
		Message: "Value is not in the allowed list",
		Action:  "Check the allowed values for this field",
		Code:    "VAL010",
	}},
	{pattern: "maximum length", msg: UserMessage{
		Message: "Value is too long",
		Action:  "Shorten the value",
		Code:    "VAL011",
	}},
	{pattern: "value cannot be empty", msg: UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in every required field",
		Code:    "VAL002",
	}},
	{pattern: "connection refused", msg: UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check DATABASE_URL and that the server is running",
		Code:    "DB002",
	}},
	{pattern: "savepoint", msg: UserMessage{
		Message: "The batch transaction failed",
		Action:  "Nothing from this run was kept; try again",
		Code:    "DB003",
	}},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for details",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. For schema failures
// the first field error decides the message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var failure *schema.Failure
	if errors.As(err, &failure) && len(failure.Errors) > 0 {
		err = failure.Errors[0]
	}
	var rowErr *source.RowError
	if errors.As(err, &rowErr) {
		return UserMessage{
			Message: "Row could not be parsed",
			Action:  "Check quoting and delimiters on this line",
			Code:    "SRC002",
		}
	}

	for _, tp := range typedPatterns {
		if errors.Is(err, tp.target) {
			return tp.msg
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
