package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// formatTime renders t as RFC 3339 UTC text. The fixed width keeps string
// comparison equivalent to time comparison.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// timeArg converts an optional time to a column value; nil stays NULL.
func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime reads a stored timestamp.
func parseTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

// marshalTextBlocks converts text blocks to JSON TEXT. An empty set stays
// NULL so an upsert keeps whatever was stored before.
// Go's json.Marshal sorts map keys, so output is deterministic.
func marshalTextBlocks(blocks map[string][]catalog.TextBlock) (any, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(blocks); err != nil {
		return nil, fmt.Errorf("marshal text blocks: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalTextBlocks parses JSON TEXT back into text blocks.
func unmarshalTextBlocks(ns sql.NullString) (map[string][]catalog.TextBlock, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var blocks map[string][]catalog.TextBlock
	if err := json.Unmarshal([]byte(ns.String), &blocks); err != nil {
		return nil, fmt.Errorf("unmarshal text blocks: %w", err)
	}
	return blocks, nil
}

// urlOf returns the first link of the given type, or nil.
func urlOf(urls []catalog.URL, t catalog.URLType) *string {
	for _, u := range urls {
		if u.Type == t {
			v := u.URL
			return &v
		}
	}
	return nil
}

func thumbnailArgs(img *catalog.Image) (any, any) {
	if img == nil {
		return nil, nil
	}
	return img.Path, img.Extension
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func nullBool(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	v := nb.Bool
	return &v
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
