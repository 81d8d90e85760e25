// Package model holds the canonical timetable types shared by every source.
package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Fault tells which party is responsible for a failure.
type Fault string

const (
	// FaultUser means the caller's request was invalid.
	FaultUser Fault = "User"
	// FaultInternal means this service's own logic, network or parsing failed.
	FaultInternal Fault = "Internal"
	// FaultExternal means the upstream source misbehaved.
	FaultExternal Fault = "External"
)

// Error is the typed failure returned by sources. Title and Message are safe
// to show to callers for user faults; Detail carries diagnostics that only
// belong in logs.
type Error struct {
	Title    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Fault    Fault  `json:"fault"`
	HTTPCode uint16 `json:"http_code,omitempty"`
	Detail   string `json:"-"`
	Err      error  `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Title, e.Fault)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the boundary HTTP status for the error.
func (e *Error) Status() int {
	switch e.Fault {
	case FaultUser:
		if e.HTTPCode != 0 {
			return int(e.HTTPCode)
		}
		return http.StatusBadRequest
	case FaultExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns a copy of e carrying diagnostic detail.
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

// UserError builds a 400 user fault with a field-specific message.
func UserError(message string) *Error {
	return &Error{
		Title:    "Bad request",
		Message:  message,
		Fault:    FaultUser,
		HTTPCode: http.StatusBadRequest,
	}
}

// InternalError builds an internal fault wrapping cause.
func InternalError(title, message string, cause error) *Error {
	return &Error{
		Title:   title,
		Message: message,
		Fault:   FaultInternal,
		Err:     cause,
	}
}

// ExternalError builds an upstream fault.
func ExternalError(title, message string) *Error {
	return &Error{
		Title:   title,
		Message: message,
		Fault:   FaultExternal,
	}
}

// AsError extracts a *Error from err. Anything else is reported as an
// internal fault so it never leaks to callers verbatim.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalError("Unexpected error", "", err)
}
