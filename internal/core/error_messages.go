package core

// error_messages.go maps technical errors to messages a person can act on.
//
// Codes are grouped by category so support can tell at a glance where a
// failure came from:
//
//	REQ001-REQ099  request problems (no rows, malformed body, batch too large)
//	IMP001-IMP099  import run problems (busy, cancelled, timed out)
//	DB001-DB099    storage problems (missing records, constraints, connectivity)
//	RATE001        request throttling
//	ERR000         anything else; check the logs for the original error
//
// Sentinel errors are matched first with errors.Is. Everything else falls back
// to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

var (
	// ErrNoRows is returned by Import for an empty batch.
	ErrNoRows = errors.New("no rows received")

	// ErrBatchTooLarge is returned when a batch exceeds IMPORT_MAX_ROWS.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrInvalidRange is returned when a date range query is malformed.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrMethodNotAllowed is reported for unsupported HTTP methods.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
	Status  int    // HTTP status for the response
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages are checked in order with errors.Is.
var sentinelMessages = []sentinelMessage{
	{ErrNoRows, UserMessage{
		Message: "No rows were received",
		Action:  "Send at least one sermon row",
		Code:    "REQ001",
		Status:  http.StatusBadRequest,
	}},
	{ErrBatchTooLarge, UserMessage{
		Message: "Too many rows in one batch",
		Action:  "Split the file into smaller batches",
		Code:    "REQ003",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{ErrInvalidRange, UserMessage{
		Message: "Invalid date range",
		Action:  "Use ISO-8601 dates for from and to, with from before to",
		Code:    "REQ005",
		Status:  http.StatusBadRequest,
	}},
	{ErrMethodNotAllowed, UserMessage{
		Message: "Method not allowed",
		Action:  "Use POST for check and import",
		Code:    "REQ006",
		Status:  http.StatusMethodNotAllowed,
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Another import is still running",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
		Status:  http.StatusServiceUnavailable,
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "IMP002",
		Status:  http.StatusServiceUnavailable,
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller batch or try again later",
		Code:    "IMP003",
		Status:  http.StatusGatewayTimeout,
	}},
	{sermonimport.ErrNotFound, UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Run the check again to refresh existing sermons",
		Code:    "DB001",
		Status:  http.StatusConflict,
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched against the lower-cased error text.
// More specific patterns come first.
var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{
		Message: "Request body is too large",
		Action:  "Split the file into smaller batches",
		Code:    "REQ004",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{"invalid request body", UserMessage{
		Message: "Request body is not valid JSON",
		Action:  `Send {"sermons": [...]} with a list of rows`,
		Code:    "REQ002",
		Status:  http.StatusBadRequest,
	}},
	{"foreign key", UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Run the check again to refresh existing sermons",
		Code:    "DB001",
		Status:  http.StatusConflict,
	}},
	{"unique constraint", UserMessage{
		Message: "This record already exists",
		Action:  "Run the check again before importing",
		Code:    "DB002",
		Status:  http.StatusConflict,
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
		Status:  http.StatusServiceUnavailable,
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB004",
		Status:  http.StatusServiceUnavailable,
	}},
	{"database is locked", UserMessage{
		Message: "Database is busy",
		Action:  "Please try again",
		Code:    "DB005",
		Status:  http.StatusServiceUnavailable,
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
		Status:  http.StatusTooManyRequests,
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts a technical error to a user-friendly message.
// It returns the zero UserMessage for a nil error and the ERR000 fallback when
// nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
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

// IsUserFacing reports whether err maps to a specific message rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
