package catalog

import (
	"strings"
	"time"
)

// Entity is a catalog record of one of the six kinds.
//
// The set of implementations is closed: *Issue, *Series, *Event, *Story,
// *Character and *Creator. Per-kind behavior lives in free functions that
// switch on the concrete type.
type Entity interface {
	Kind() Kind
	Base() *Common
	isEntity()
}

// Common holds the fields every entity carries.
type Common struct {
	ID          int64
	Modified    *time.Time // nil means the record has never been synced in full
	ResourceURI string
	Thumbnail   *Image
	Description *string
	URLs        []URL
}

// Base returns the shared fields.
func (c *Common) Base() *Common { return c }

func (c *Common) isEntity() {}

// Image is a provider-hosted image. Extension keeps its leading dot.
type Image struct {
	Path      string `json:"path"`
	Extension string `json:"extension"`
}

// Href is the full image location.
func (i Image) Href() string { return i.Path + i.Extension }

// URLType is the closed set of link types the provider attaches to records.
type URLType string

const (
	URLPurchase  URLType = "purchase"
	URLDetail    URLType = "detail"
	URLComicLink URLType = "comiclink"
	URLReader    URLType = "reader"
	URLInAppLink URLType = "inAppLink"
	URLWiki      URLType = "wiki"
)

// Valid reports whether t is one of the known link types.
func (t URLType) Valid() bool {
	switch t {
	case URLPurchase, URLDetail, URLComicLink, URLReader, URLInAppLink, URLWiki:
		return true
	}
	return false
}

// URL is a typed link.
type URL struct {
	Type URLType `json:"type"`
	URL  string  `json:"url"`
}

// TextBlock is one piece of localized text attached to an issue.
type TextBlock struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// Identifiers are the retail codes printed on an issue.
type Identifiers struct {
	ISBN        *string
	UPC         *string
	DiamondCode *string
	EAN         *string
	ISSN        *string
}

// IssueDates are the release milestones of an issue.
type IssueDates struct {
	OnSale          *time.Time
	FOC             *time.Time
	Unlimited       *time.Time
	DigitalPurchase *time.Time
}

// IssuePrices are the list prices of an issue.
type IssuePrices struct {
	Print           *float64
	DigitalPurchase *float64
}

// Issue is a single comic book.
type Issue struct {
	Common
	DigitalID          *int64
	Title              *string
	IssueNumber        *float64
	VariantDescription *string
	IsVariant          *bool
	Identifiers        Identifiers
	PageCount          *int64
	Format             *string
	TextBlocks         map[string][]TextBlock
	SeriesID           *int64
	OriginalIssueID    *int64
	Dates              IssueDates
	Prices             IssuePrices
	CoverStoryID       *int64
	InteriorStoryID    *int64
	Purchase           *Purchase
}

func (*Issue) Kind() Kind { return KindIssue }

// Series is a run of issues.
type Series struct {
	Common
	Title            *string
	StartYear        *int64
	EndYear          *int64
	Rating           *string
	Type             *string
	NextSeriesID     *int64
	PreviousSeriesID *int64
}

func (*Series) Kind() Kind { return KindSeries }

// Event is a crossover storyline spanning series.
type Event struct {
	Common
	Title           *string
	Start           *time.Time
	End             *time.Time
	NextEventID     *int64
	PreviousEventID *int64
}

func (*Event) Kind() Kind { return KindEvent }

// Story is an indivisible piece of content inside an issue.
type Story struct {
	Common
	Title           *string
	Type            *string
	OriginalIssueID *int64
}

func (*Story) Kind() Kind { return KindStory }

// Character appears in issues.
type Character struct {
	Common
	Name *string
}

func (*Character) Kind() Kind { return KindCharacter }

// Creator is a person credited on issues.
type Creator struct {
	Common
	FirstName  *string
	MiddleName *string
	LastName   *string
	Suffix     *string
	FullName   *string
}

func (*Creator) Kind() Kind { return KindCreator }

// ForeignKeys returns pointers to every field of e that references another
// entity, keyed by the referenced kind. Callers may nil a field out when the
// referenced row could not be materialized.
func ForeignKeys(e Entity) map[Kind][]**int64 {
	switch v := e.(type) {
	case *Issue:
		return map[Kind][]**int64{
			KindSeries: {&v.SeriesID},
			KindIssue:  {&v.OriginalIssueID},
			KindStory:  {&v.CoverStoryID, &v.InteriorStoryID},
		}
	case *Series:
		return map[Kind][]**int64{KindSeries: {&v.NextSeriesID, &v.PreviousSeriesID}}
	case *Event:
		return map[Kind][]**int64{KindEvent: {&v.NextEventID, &v.PreviousEventID}}
	case *Story:
		return map[Kind][]**int64{KindIssue: {&v.OriginalIssueID}}
	}
	return nil
}

// DisplayName returns the title or name of e, or "" when unknown.
func DisplayName(e Entity) string {
	var p *string
	switch v := e.(type) {
	case *Issue:
		p = v.Title
	case *Series:
		p = v.Title
	case *Event:
		p = v.Title
	case *Story:
		p = v.Title
	case *Character:
		p = v.Name
	case *Creator:
		p = v.FullName
	}
	if p == nil {
		return ""
	}
	return *p
}

// LooksLikeVariant reports whether an issue title names a variant cover or
// printing. Variant listings carry no other marker.
func LooksLikeVariant(title string) bool {
	return strings.Contains(title, "Variant")
}
