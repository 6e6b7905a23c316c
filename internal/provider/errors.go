package provider

import (
	"errors"
	"fmt"
)

// LookupErrorCode categorizes lookup failures.
type LookupErrorCode string

const (
	// ErrCodeEmpty means the provider answered but matched nothing.
	ErrCodeEmpty LookupErrorCode = "EMPTY"

	// ErrCodeAmbiguous means more than one record matched.
	ErrCodeAmbiguous LookupErrorCode = "AMBIGUOUS"

	// ErrCodeNotFound means the provider answered 404.
	ErrCodeNotFound LookupErrorCode = "NOT_FOUND"

	// ErrCodeTransport covers network failures, non-success statuses and
	// undecodable bodies. Retrying is the caller's decision.
	ErrCodeTransport LookupErrorCode = "TRANSPORT"
)

// LookupError is returned by every Client lookup that does not yield
// exactly one record.
type LookupError struct {
	Code   LookupErrorCode
	Target string // "comics?upc=…" or "series/100"
	Status int    // HTTP status when known
	Count  int    // result count when the envelope was decoded
	Err    error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("%s: lookup %s", e.Code, e.Target)
	switch {
	case e.Code == ErrCodeAmbiguous:
		msg += fmt.Sprintf(" matched %d records", e.Count)
	case e.Status != 0:
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() error { return e.Err }

func hasCode(err error, code LookupErrorCode) bool {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// IsEmpty reports whether err is an empty-result lookup error.
func IsEmpty(err error) bool { return hasCode(err, ErrCodeEmpty) }

// IsAmbiguous reports whether err is a multi-result lookup error.
func IsAmbiguous(err error) bool { return hasCode(err, ErrCodeAmbiguous) }

// IsNotFound reports whether err is a 404 lookup error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsTransport reports whether err is a transport lookup error.
func IsTransport(err error) bool { return hasCode(err, ErrCodeTransport) }
