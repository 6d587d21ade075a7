package core

// error_messages.go maps technical errors to user-facing messages with a
// code support staff can look up.
//
// Codes by category:
//
//	FILE001 - Unreadable file         (*ReadError, "read error")
//	FILE002 - File too large          ("file too large", "request body too large")
//	FILE003 - No file                 ("no file provided")
//	COL001  - Column out of range     (ErrInvalidColumnIndex)
//	SES001  - Preview not ready       (ErrNotReady)
//	SES002  - Session expired         (ErrSessionNotFound)
//	SES003  - System busy             (ErrTooManyLoads)
//	SES004  - Request cancelled       ("context canceled")
//	SES005  - Request timed out       ("context deadline exceeded")
//	MAP001  - Mapping not saved       ("deliver mapping")
//	RATE001 - Rate limited            ("rate limit")
//	REQ001  - Malformed request       ("invalid request")
//	ERR000  - Anything else
//
// Sentinel and typed errors are checked first; the remaining patterns are
// matched case-insensitively with strings.Contains, first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file still exists and is a UTF-8 text file",
		Code:    "FILE001",
	}
	msgInvalidColumn = UserMessage{
		Message: "That column does not exist in the preview",
		Action:  "Pick one of the listed columns",
		Code:    "COL001",
	}
	msgNotReady = UserMessage{
		Message: "The preview is not ready yet",
		Action:  "Wait for the file to finish loading, or select a file first",
		Code:    "SES001",
	}
	msgSessionNotFound = UserMessage{
		Message: "Preview session not found",
		Action:  "The session may have expired. Please select the file again",
		Code:    "SES002",
	}
	msgBusy = UserMessage{
		Message: "System is busy reading other files",
		Action:  "Please wait a moment and try again",
		Code:    "SES003",
	}
)

// sentinelMessages maps errors recognised with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrInvalidColumnIndex, msgInvalidColumn},
	{ErrNotReady, msgNotReady},
	{ErrSessionNotFound, msgSessionNotFound},
	{ErrTooManyLoads, msgBusy},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive as plain text (wrapped library
// errors, http.MaxBytesReader, context errors). Order matters.
var errorPatterns = []errorPattern{
	{pattern: "read error", msg: msgUnreadable},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Only the first part of the file is previewed; upload a smaller export",
			Code:    "FILE002",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Only the first part of the file is previewed; upload a smaller export",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to preview",
			Code:    "FILE003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SES004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again, or preview a smaller file",
			Code:    "SES005",
		},
	},
	{
		pattern: "deliver mapping",
		msg: UserMessage{
			Message: "The column mapping could not be saved",
			Action:  "Please confirm again in a few moments",
			Code:    "MAP001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request was not understood",
			Action:  "Check the request parameters and try again",
			Code:    "REQ001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var readErr *ReadError
	if errors.As(err, &readErr) {
		return msgUnreadable
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

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and keeps the original for logging. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
