package extract

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var stripMarkup = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// cleanText strips markup, collapses whitespace and NFC-normalizes s.
// The provider embeds <br>, <i> and entity escapes in descriptions.
func cleanText(s string) string {
	s = html.UnescapeString(stripMarkup.Sanitize(s))
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// optText returns nil for unset or blank values so an upsert leaves the
// stored column alone.
func optText(t text) *string {
	if !t.set {
		return nil
	}
	return optString(cleanText(t.s))
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads the timestamp formats the provider emits. Placeholder
// dates such as "-0001-11-30T00:00:00-0500" fail to parse and read as unset.
func parseTime(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}
