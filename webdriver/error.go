package webdriver

import (
	"errors"
	"fmt"
)

// W3C error codes the suite cares about. See
// https://www.w3.org/TR/webdriver/#errors for the full table.
const (
	ErrNoSuchElement          = "no such element"
	ErrStaleElement           = "stale element reference"
	ErrElementNotInteractable = "element not interactable"
	ErrElementClickIntercept  = "element click intercepted"
	ErrInvalidSelector        = "invalid selector"
	ErrTimeout                = "timeout"
	ErrUnknown                = "unknown error"
)

// Error contains information about a failure of a command. See the table of
// these strings at https://www.w3.org/TR/webdriver/#handling-errors .
type Error struct {
	// Err contains a general error string provided by the server.
	Err string `json:"error"`
	// Message is a detailed, human-readable message specific to the failure.
	Message string `json:"message"`
	// Stacktrace may contain the server-side stacktrace where the error occurred.
	Stacktrace string `json:"stacktrace"`
	// HTTPCode is the HTTP status code returned by the server.
	HTTPCode int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Err
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

// HasCode reports whether err is, or wraps, an *Error with the given W3C
// error code.
func HasCode(err error, code string) bool {
	var we *Error
	if !errors.As(err, &we) {
		return false
	}
	return we.Err == code
}
