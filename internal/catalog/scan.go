package catalog

import (
	"fmt"
	"strings"
)

const prefixLen = 5

// ScannedCode is one entry read off the acquisition queue. The scanner
// writes "PREFIX-CODE" where PREFIX is five characters distinguishing
// printings and cover variants, and CODE is the catalog lookup code.
type ScannedCode struct {
	Prefix    string `json:"prefix"`
	Code      string `json:"code"`
	ScannedOn string `json:"scanned_on"` // YYYY-MM-DD
}

// ParseScannedCode splits a raw "PREFIX-CODE" string.
func ParseScannedCode(raw string) (ScannedCode, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) <= prefixLen+1 || raw[prefixLen] != '-' {
		return ScannedCode{}, fmt.Errorf("scanned code %q: want %d-character prefix, '-', then code", raw, prefixLen)
	}
	return ScannedCode{Prefix: raw[:prefixLen], Code: raw[prefixLen+1:]}, nil
}

// Raw reassembles the form the scanner wrote.
func (s ScannedCode) Raw() string { return s.Prefix + "-" + s.Code }
