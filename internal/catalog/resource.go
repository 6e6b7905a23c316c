package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MalformedReferenceError reports a resource URI whose trailing segment is
// not a numeric id. Only the offending reference is dropped.
type MalformedReferenceError struct {
	URI    string
	Reason string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("malformed reference %q: %s", e.URI, e.Reason)
}

// IsMalformedReference reports whether err is a MalformedReferenceError.
func IsMalformedReference(err error) bool {
	var me *MalformedReferenceError
	return errors.As(err, &me)
}

// IDFromResourceURI returns the id held in the last path segment of uri.
//
//	IDFromResourceURI("http://gateway.example.com/v1/public/series/100") // 100
func IDFromResourceURI(uri string) (int64, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(uri), "/")
	if trimmed == "" {
		return 0, &MalformedReferenceError{URI: uri, Reason: "empty resource uri"}
	}
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id <= 0 {
		return 0, &MalformedReferenceError{URI: uri, Reason: fmt.Sprintf("segment %q is not an id", segment)}
	}
	return id, nil
}
