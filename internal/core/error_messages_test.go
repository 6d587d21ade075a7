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
		{name: "nil", err: nil, wantCode: ""},
		{name: "read error", err: &ReadError{Source: "a.csv", Err: errors.New("EOF")}, wantCode: "FILE001"},
		{name: "wrapped read error", err: fmt.Errorf("load: %w", &ReadError{Source: "a.csv", Err: errors.New("x")}), wantCode: "FILE001"},
		{name: "upload too large", err: errors.New("http: request body too large"), wantCode: "FILE002"},
		{name: "no file", err: errors.New("no file provided"), wantCode: "FILE003"},
		{name: "invalid column", err: fmt.Errorf("%w: 9 not in [0, 2)", ErrInvalidColumnIndex), wantCode: "COL001"},
		{name: "not ready", err: fmt.Errorf("confirm: %w (phase loading)", ErrNotReady), wantCode: "SES001"},
		{name: "session not found", err: fmt.Errorf("%w: abc", ErrSessionNotFound), wantCode: "SES002"},
		{name: "busy", err: ErrTooManyLoads, wantCode: "SES003"},
		{name: "canceled", err: context.Canceled, wantCode: "SES004"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "SES005"},
		{name: "sink failure", err: fmt.Errorf("deliver mapping: %w", errors.New("db down")), wantCode: "MAP001"},
		{name: "rate limit", err: errors.New("Rate limit exceeded"), wantCode: "RATE001"},
		{name: "bad request", err: errors.New("invalid request: limit \"x\""), wantCode: "REQ001"},
		{name: "unknown", err: errors.New("something odd"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) has empty text: %+v", tt.err, got)
			}
		})
	}
}

func TestMapError_ReadErrorBeatsPatterns(t *testing.T) {
	// The cause mentions a deadline but the read failure is what the user sees.
	err := &ReadError{Source: "a.csv", Err: context.DeadlineExceeded}
	if got := MapError(err).Code; got != "FILE001" {
		t.Errorf("Code = %q, want FILE001", got)
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q", got)
	}
	want := "Preview session not found (Code: SES002). The session may have expired. Please select the file again"
	if got := FormatUserError(ErrSessionNotFound); got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrNotReady) {
		t.Error("ErrNotReady should be user facing")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("unknown error should not be user facing")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}
	ue := NewUserError(ErrTooManyLoads)
	if ue.User.Code != "SES003" {
		t.Errorf("Code = %q", ue.User.Code)
	}
	if !errors.Is(ue, ErrTooManyLoads) {
		t.Error("UserError does not unwrap to the technical error")
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q", ue.Error())
	}
}
