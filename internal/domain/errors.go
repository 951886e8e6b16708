package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("campground: not found")
	ErrDuplicate = errors.New("campground: duplicate id")
)

// NormalizationError rejects a single raw record.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize: field %q: %s", e.Field, e.Reason)
}

type FetchErrorKind int

const (
	FetchTransient FetchErrorKind = iota + 1
	FetchClientError
	FetchMalformedResponse
	FetchMaxRetriesExceeded
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTransient:
		return "transient"
	case FetchClientError:
		return "client_error"
	case FetchMalformedResponse:
		return "malformed_response"
	case FetchMaxRetriesExceeded:
		return "max_retries_exceeded"
	default:
		return "unknown"
	}
}

// FetchError describes a failed upstream search call.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int    // 0 for transport or decode failures
	Message    string // upstream body excerpt or transport error text
	Attempts   int    // set by the retry controller
	Err        error
}

func (e *FetchError) Error() string {
	msg := "fetch " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is expected to clear on retry.
func (e *FetchError) Retryable() bool { return e.Kind == FetchTransient }

// PersistenceError is a per-record storage failure; the transaction was rolled back.
type PersistenceError struct {
	ID  string
	Op  string // begin|find|insert|commit
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
