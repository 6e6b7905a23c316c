package catalog

import (
	"fmt"
	"strings"
)

// Kind names one of the six entity variants the provider serves.
type Kind string

const (
	KindIssue     Kind = "issue"
	KindSeries    Kind = "series"
	KindEvent     Kind = "event"
	KindStory     Kind = "story"
	KindCharacter Kind = "character"
	KindCreator   Kind = "creator"
)

// Kinds lists every entity kind in dependency-resolution order.
var Kinds = []Kind{KindSeries, KindEvent, KindStory, KindCharacter, KindCreator, KindIssue}

var kindInfo = map[Kind]struct {
	table    string
	endpoint string
	title    string // column holding the display title of a stub
}{
	KindIssue:     {"Issues", "comics", "title"},
	KindSeries:    {"Series", "series", "title"},
	KindEvent:     {"Events", "events", "title"},
	KindStory:     {"Stories", "stories", "title"},
	KindCharacter: {"Characters", "characters", "name"},
	KindCreator:   {"Creators", "creators", "full_name"},
}

// Table returns the store table holding rows of this kind.
func (k Kind) Table() string { return kindInfo[k].table }

// Endpoint returns the provider path segment for this kind.
func (k Kind) Endpoint() string { return kindInfo[k].endpoint }

// TitleColumn returns the column a stub's display title is written to.
func (k Kind) TitleColumn() string { return kindInfo[k].title }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindInfo[k]
	return ok
}

// ParseKind accepts a kind name, its table name or its provider endpoint.
func ParseKind(s string) (Kind, error) {
	for k, info := range kindInfo {
		if s == string(k) || s == info.endpoint || strings.EqualFold(s, info.table) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}
