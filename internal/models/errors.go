package models

import (
	"errors"
	"fmt"
)

// Error classes shared by the request executor, list operations and the bridge.
// Callers test with errors.Is.
var (
	ErrUnauthenticated    = errors.New("no session captured")
	ErrAuthInvalid        = errors.New("session rejected by upstream")
	ErrTransient          = errors.New("upstream unreachable")
	ErrRequestRejected    = errors.New("request rejected by upstream")
	ErrShape              = errors.New("unexpected upstream response shape")
	ErrFormat             = errors.New("unrecognised session encoding")
	ErrPersistence        = errors.New("session store write failed")
	ErrNoListID           = errors.New("no list id available: list is empty")
	ErrMissingID          = errors.New("item has no id")
	ErrItemNotFound       = errors.New("item not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrExtractionFailed   = errors.New("no cookies extracted from browser session")
	ErrTransmissionFailed = errors.New("session hand-off failed")
)

// UpstreamError describes a classified outcome of one upstream call.
// Class is one of ErrAuthInvalid, ErrTransient or ErrRequestRejected.
type UpstreamError struct {
	Class      error
	Method     string
	URL        string
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Class)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the class sentinel and the underlying cause
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

// IsAuthFailure reports whether err means a human must log in again
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrAuthInvalid)
}
