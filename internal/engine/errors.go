package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/provider"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

// OutcomeCode categorizes why an item was skipped or failed.
type OutcomeCode string

const (
	// CodeNone is recorded for committed items.
	CodeNone OutcomeCode = ""

	// CodeEmpty means the provider matched nothing.
	CodeEmpty OutcomeCode = "EMPTY"

	// CodeAmbiguous means the provider matched more than one record.
	CodeAmbiguous OutcomeCode = "AMBIGUOUS"

	// CodeNotFound means the provider has no record with that id.
	CodeNotFound OutcomeCode = "NOT_FOUND"

	// CodeMalformedReference means a resource URI carried no usable id.
	CodeMalformedReference OutcomeCode = "MALFORMED_REFERENCE"

	// CodeTransport covers network failures and bad responses. The caller
	// decides whether to retry.
	CodeTransport OutcomeCode = "TRANSPORT"

	// CodeWrite means a store statement failed and was rolled back.
	CodeWrite OutcomeCode = "WRITE"

	// CodeExtract means the record could not be decoded.
	CodeExtract OutcomeCode = "EXTRACT"

	// CodeCancelled means the run stopped before the item was processed.
	CodeCancelled OutcomeCode = "CANCELLED"
)

// Status is the final state of one item in a run.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Status reports whether an item with this code was skipped (nothing
// usable, retrying will not help) or failed.
func (c OutcomeCode) Status() Status {
	switch c {
	case CodeNone:
		return StatusCommitted
	case CodeEmpty, CodeAmbiguous, CodeNotFound, CodeMalformedReference:
		return StatusSkipped
	}
	return StatusFailed
}

// ExtractError wraps a record that could not be mapped onto the catalog.
type ExtractError struct {
	Kind catalog.Kind
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Kind, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// IsExtractError returns true if the error is an ExtractError.
// Uses errors.As to handle wrapped errors.
func IsExtractError(err error) bool {
	var ee *ExtractError
	return errors.As(err, &ee)
}

// Classify maps any error returned while syncing an item to an outcome
// code. A nil error is CodeNone.
func Classify(err error) OutcomeCode {
	if err == nil {
		return CodeNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}

	var le *provider.LookupError
	if errors.As(err, &le) {
		switch le.Code {
		case provider.ErrCodeEmpty:
			return CodeEmpty
		case provider.ErrCodeAmbiguous:
			return CodeAmbiguous
		case provider.ErrCodeNotFound:
			return CodeNotFound
		}
		return CodeTransport
	}

	switch {
	case catalog.IsMalformedReference(err):
		return CodeMalformedReference
	case store.IsWriteError(err):
		return CodeWrite
	case IsExtractError(err):
		return CodeExtract
	}
	return CodeTransport
}
