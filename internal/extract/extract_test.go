package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

func loadFixture(t *testing.T, name string) json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func extractIssue(t *testing.T) (*catalog.Issue, *Extraction) {
	t.Helper()
	ext, err := Extract(catalog.KindIssue, loadFixture(t, "issue_full.json"))
	require.NoError(t, err)
	issue, ok := ext.Entity.(*catalog.Issue)
	require.True(t, ok, "entity is %T", ext.Entity)
	return issue, ext
}

func TestExtractIssue_Scalars(t *testing.T) {
	issue, _ := extractIssue(t)

	assert.Equal(t, int64(1000), issue.ID)
	assert.Equal(t, catalog.KindIssue, issue.Kind())
	require.NotNil(t, issue.Title)
	assert.Equal(t, "Amazing Tales (2019) #3", *issue.Title)
	require.NotNil(t, issue.DigitalID)
	assert.Equal(t, int64(52001), *issue.DigitalID)
	require.NotNil(t, issue.IssueNumber)
	assert.Equal(t, 3.0, *issue.IssueNumber)
	require.NotNil(t, issue.PageCount)
	assert.Equal(t, int64(32), *issue.PageCount)

	// Empty strings are unset, not blank.
	assert.Nil(t, issue.VariantDescription)
	assert.Nil(t, issue.Identifiers.ISBN)
	require.NotNil(t, issue.Identifiers.UPC)
	assert.Equal(t, "75960609999900311", *issue.Identifiers.UPC)

	require.NotNil(t, issue.IsVariant)
	assert.False(t, *issue.IsVariant)

	require.NotNil(t, issue.Modified)
	assert.Equal(t, time.Date(2019, 11, 7, 22, 5, 54, 0, time.UTC), *issue.Modified)
}

func TestExtractIssue_DescriptionIsCleaned(t *testing.T) {
	issue, _ := extractIssue(t)
	require.NotNil(t, issue.Description)
	assert.Equal(t, `Peter Parker returns to "the city".`, *issue.Description)
}

func TestExtractIssue_TextBlocksAccumulatePerType(t *testing.T) {
	issue, _ := extractIssue(t)

	require.Len(t, issue.TextBlocks, 1)
	assert.Equal(t, []catalog.TextBlock{
		{Language: "en-us", Text: "The saga continues."},
		{Language: "es", Text: "La saga continúa."},
	}, issue.TextBlocks["issue_solicit_text"])
}

func TestExtractIssue_DatesAndPrices(t *testing.T) {
	issue, _ := extractIssue(t)

	require.NotNil(t, issue.Dates.OnSale)
	assert.Equal(t, time.Date(2019, 11, 6, 5, 0, 0, 0, time.UTC), *issue.Dates.OnSale)
	require.NotNil(t, issue.Dates.FOC)
	assert.Nil(t, issue.Dates.Unlimited, "placeholder date reads as unset")
	require.NotNil(t, issue.Dates.DigitalPurchase)

	require.NotNil(t, issue.Prices.Print)
	assert.Equal(t, 3.99, *issue.Prices.Print)
	require.NotNil(t, issue.Prices.DigitalPurchase)
	assert.Equal(t, 1.99, *issue.Prices.DigitalPurchase)
}

func TestExtractIssue_ThumbnailAndImages(t *testing.T) {
	issue, ext := extractIssue(t)

	require.NotNil(t, issue.Thumbnail)
	assert.Equal(t, "http://i.example.com/u/prod/1000.jpg", issue.Thumbnail.Href())
	assert.Equal(t, []catalog.Image{
		{Path: "http://i.example.com/u/prod/1000", Extension: ".jpg"},
		{Path: "http://i.example.com/u/prod/1000b", Extension: ".jpg"},
	}, ext.Refs.Images)
}

func TestExtractIssue_URLsDropUnknownTypes(t *testing.T) {
	issue, ext := extractIssue(t)

	want := []catalog.URL{
		{Type: catalog.URLDetail, URL: "http://example.com/comics/issue/1000"},
		{Type: catalog.URLPurchase, URL: "http://example.com/buy/1000"},
	}
	assert.Equal(t, want, issue.URLs)
	assert.Equal(t, want, ext.Refs.URLs)
}

func TestExtractIssue_References(t *testing.T) {
	issue, ext := extractIssue(t)

	require.NotNil(t, issue.SeriesID)
	assert.Equal(t, int64(100), *issue.SeriesID)
	require.Len(t, ext.Refs.Series, 1)
	assert.Equal(t, "Amazing Tales (2019 - Present)", ext.Refs.Series[0].Name)

	require.Len(t, ext.Refs.Characters, 1)
	assert.Equal(t, int64(300), ext.Refs.Characters[0].ID)
	require.Len(t, ext.Refs.Events, 1)
	assert.Equal(t, int64(500), ext.Refs.Events[0].ID)

	require.Len(t, ext.Refs.Stories, 2)
	assert.Equal(t, "cover", ext.Refs.Stories[0].StoryType)
	require.NotNil(t, issue.CoverStoryID)
	assert.Equal(t, int64(400), *issue.CoverStoryID)
	require.NotNil(t, issue.InteriorStoryID)
	assert.Equal(t, int64(401), *issue.InteriorStoryID)
}

func TestExtractIssue_CreatorRolesMerge(t *testing.T) {
	_, ext := extractIssue(t)

	require.Len(t, ext.Refs.Creators, 2)
	assert.Equal(t, int64(200), ext.Refs.Creators[0].ID)
	assert.Equal(t, []string{"writer", "editor"}, ext.Refs.Creators[0].Roles)
	assert.Equal(t, "John Middle Q. Public", ext.Refs.Creators[1].Name)
	assert.Equal(t, []string{"penciller (cover)"}, ext.Refs.Creators[1].Roles)
}

func TestExtractIssue_VariantsExcludeSelfAndMalformed(t *testing.T) {
	_, ext := extractIssue(t)

	require.Len(t, ext.Refs.Variants, 1)
	assert.Equal(t, int64(1001), ext.Refs.Variants[0].ID)

	require.Len(t, ext.Dropped, 1)
	assert.True(t, catalog.IsMalformedReference(ext.Dropped[0]))
}

func TestExtractIssue_VariantFlag(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 1001,
		"title": "Amazing Tales (2019) #3 (Variant)",
		"resourceURI": "http://gateway.example.com/v1/public/comics/1001"
	}`)
	ext, err := Extract(catalog.KindIssue, raw)
	require.NoError(t, err)

	issue := ext.Entity.(*catalog.Issue)
	require.NotNil(t, issue.IsVariant)
	assert.True(t, *issue.IsVariant)
	assert.Equal(t, 0, ext.Refs.Len())
}

func TestExtractSeries(t *testing.T) {
	ext, err := Extract(catalog.KindSeries, loadFixture(t, "series_100.json"))
	require.NoError(t, err)

	s := ext.Entity.(*catalog.Series)
	assert.Equal(t, int64(100), s.ID)
	assert.Nil(t, s.Description)
	require.NotNil(t, s.StartYear)
	assert.Equal(t, int64(2019), *s.StartYear)
	require.NotNil(t, s.NextSeriesID)
	assert.Equal(t, int64(101), *s.NextSeriesID)
	assert.Nil(t, s.PreviousSeriesID)

	require.Len(t, ext.Refs.Series, 1)
	assert.Equal(t, int64(101), ext.Refs.Series[0].ID)
	require.Len(t, ext.Refs.Issues, 2)
	assert.Equal(t, []int64{1000, 999}, []int64{ext.Refs.Issues[0].ID, ext.Refs.Issues[1].ID})
	require.Len(t, ext.Refs.Creators, 1)
	assert.Equal(t, []string{"writer"}, ext.Refs.Creators[0].Roles)
}

func TestExtractCreator_SplitsFullName(t *testing.T) {
	ext, err := Extract(catalog.KindCreator, loadFixture(t, "creator_200.json"))
	require.NoError(t, err)

	c := ext.Entity.(*catalog.Creator)
	require.NotNil(t, c.FirstName)
	assert.Equal(t, "John", *c.FirstName)
	require.NotNil(t, c.MiddleName)
	assert.Equal(t, "Middle Q.", *c.MiddleName)
	require.NotNil(t, c.LastName)
	assert.Equal(t, "Public", *c.LastName)
	assert.Nil(t, c.Suffix)
	assert.Equal(t, ".png", c.Thumbnail.Extension)
}

func TestExtractEvent_ChainsAndTimes(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 500,
		"title": "Web Wars",
		"resourceURI": "http://gateway.example.com/v1/public/events/500",
		"start": "2008-06-02 00:00:00",
		"end": "2008-12-20 00:00:00",
		"next": {"resourceURI": "http://gateway.example.com/v1/public/events/501", "name": "Web Wars II"},
		"previous": {"resourceURI": "http://gateway.example.com/v1/public/events/499", "name": "Prelude"},
		"series": {"items": [{"resourceURI": "http://gateway.example.com/v1/public/series/100", "name": "Amazing Tales"}]}
	}`)
	ext, err := Extract(catalog.KindEvent, raw)
	require.NoError(t, err)

	e := ext.Entity.(*catalog.Event)
	require.NotNil(t, e.Start)
	assert.Equal(t, time.Date(2008, 6, 2, 0, 0, 0, 0, time.UTC), *e.Start)
	assert.Equal(t, int64(501), *e.NextEventID)
	assert.Equal(t, int64(499), *e.PreviousEventID)
	assert.Len(t, ext.Refs.Events, 2)
	assert.Len(t, ext.Refs.Series, 1)
	assert.Nil(t, e.Modified)
}

func TestExtractStory_OriginalIssue(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 401,
		"title": "Web of Lies",
		"type": "interiorStory",
		"resourceURI": "http://gateway.example.com/v1/public/stories/401",
		"originalIssue": {"resourceURI": "http://gateway.example.com/v1/public/comics/1000", "name": "Amazing Tales (2019) #3"},
		"comics": {"items": [{"resourceURI": "http://gateway.example.com/v1/public/comics/1000", "name": "Amazing Tales (2019) #3"}]}
	}`)
	ext, err := Extract(catalog.KindStory, raw)
	require.NoError(t, err)

	s := ext.Entity.(*catalog.Story)
	assert.Equal(t, "interiorStory", *s.Type)
	assert.Equal(t, int64(1000), *s.OriginalIssueID)
	assert.Len(t, ext.Refs.Issues, 1, "original issue and comics list collapse")
}

func TestExtractCharacter_ByteDescription(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 300,
		"name": "Spider-Man",
		"description": [66, 105, 116, 116, 101, 110],
		"resourceURI": "http://gateway.example.com/v1/public/characters/300"
	}`)
	ext, err := Extract(catalog.KindCharacter, raw)
	require.NoError(t, err)

	c := ext.Entity.(*catalog.Character)
	require.NotNil(t, c.Description)
	assert.Equal(t, "Bitten", *c.Description)
	assert.Equal(t, "Spider-Man", *c.Name)
}

func TestExtract_IDFromResourceURIWhenMissing(t *testing.T) {
	raw := json.RawMessage(`{"name": "Nameless", "resourceURI": "http://gateway.example.com/v1/public/characters/321"}`)
	ext, err := Extract(catalog.KindCharacter, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(321), ext.Entity.Base().ID)
}

func TestExtract_Errors(t *testing.T) {
	_, err := Extract(catalog.KindIssue, json.RawMessage(`{"id": "abc"}`))
	assert.Error(t, err)

	_, err = Extract(catalog.KindIssue, json.RawMessage(`{"title": "no id", "resourceURI": "x"}`))
	require.Error(t, err)
	assert.True(t, catalog.IsMalformedReference(err))

	_, err = Extract(catalog.Kind("publisher"), json.RawMessage(`{}`))
	assert.Error(t, err)
}
