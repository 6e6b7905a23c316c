package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

func testSeries() *catalog.Series {
	modified := time.Date(2019, 11, 7, 22, 5, 54, 0, time.UTC)
	return &catalog.Series{
		Common: catalog.Common{
			ID:          100,
			Modified:    &modified,
			ResourceURI: "http://gateway.marvel.com/v1/public/series/100",
			Description: ptr("Spidey swings again."),
			Thumbnail:   &catalog.Image{Path: "http://i.annihil.us/u/prod/marvel/i/mg/series", Extension: ".jpg"},
		},
		Title:     ptr("Amazing Spider-Man (2018 - Present)"),
		StartYear: ptr(int64(2018)),
		EndYear:   ptr(int64(2099)),
		Rating:    ptr("T"),
		Type:      ptr("ongoing"),
	}
}

func TestUpsert_InsertsRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.Upsert(ctx, testSeries()); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, err := s.ReadSeries(ctx, 100)
	if err != nil {
		t.Fatalf("ReadSeries() failed: %v", err)
	}
	if got.Title == nil || *got.Title != "Amazing Spider-Man (2018 - Present)" {
		t.Errorf("title = %v, want Amazing Spider-Man (2018 - Present)", got.Title)
	}
	if got.StartYear == nil || *got.StartYear != 2018 {
		t.Errorf("start_year = %v, want 2018", got.StartYear)
	}
	if got.Modified == nil || !got.Modified.Equal(*testSeries().Modified) {
		t.Errorf("modified = %v, want %v", got.Modified, testSeries().Modified)
	}
	if got.Thumbnail == nil || got.Thumbnail.Href() != "http://i.annihil.us/u/prod/marvel/i/mg/series.jpg" {
		t.Errorf("thumbnail = %+v", got.Thumbnail)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx, testSeries()); err != nil {
			t.Fatalf("Upsert() iteration %d failed: %v", i, err)
		}
	}
	if got := countRows(t, s, "Series"); got != 1 {
		t.Errorf("Series rows = %d, want 1", got)
	}
}

func TestUpsert_NullNeverOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.Upsert(ctx, testSeries()); err != nil {
		t.Fatalf("first Upsert() failed: %v", err)
	}

	// Second record knows the title and a new rating but nothing else.
	partial := &catalog.Series{
		Common: catalog.Common{ID: 100},
		Rating: ptr("T+"),
	}
	if err := s.Upsert(ctx, partial); err != nil {
		t.Fatalf("second Upsert() failed: %v", err)
	}

	got, err := s.ReadSeries(ctx, 100)
	if err != nil {
		t.Fatalf("ReadSeries() failed: %v", err)
	}
	if got.Rating == nil || *got.Rating != "T+" {
		t.Errorf("rating = %v, want T+", got.Rating)
	}
	if got.Description == nil || *got.Description != "Spidey swings again." {
		t.Errorf("description was overwritten: %v", got.Description)
	}
	if got.Title == nil || *got.Title != "Amazing Spider-Man (2018 - Present)" {
		t.Errorf("title was overwritten: %v", got.Title)
	}
	if got.Modified == nil {
		t.Error("modified was overwritten with NULL")
	}
	if got.ResourceURI != "http://gateway.marvel.com/v1/public/series/100" {
		t.Errorf("resource_uri = %q, empty string must not overwrite", got.ResourceURI)
	}
}

func TestUpsert_CompletesStub(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	mustStub(t, s, testRef(catalog.KindSeries, 100, "Amazing Spider-Man"))
	state, _ := s.State(ctx, catalog.KindSeries, 100)
	if state != RowStub {
		t.Fatalf("State() = %v, want stub", state)
	}

	if err := s.Upsert(ctx, testSeries()); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	state, _ = s.State(ctx, catalog.KindSeries, 100)
	if state != RowComplete {
		t.Errorf("State() = %v, want complete", state)
	}
}

func TestUpsert_MissingForeignKey(t *testing.T) {
	s := createTestStore(t)

	issue := &catalog.Issue{
		Common:   catalog.Common{ID: 1},
		Title:    ptr("Amazing Spider-Man (2018) #1"),
		SeriesID: ptr(int64(100)),
	}
	err := s.Upsert(t.Context(), issue)
	if err == nil {
		t.Fatal("expected foreign key error, got nil")
	}
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %T", err)
	}
	if we.Table != "Issues" || we.Key != "1" || we.Op != "upsert" {
		t.Errorf("WriteError = %+v", we)
	}
	if got := countRows(t, s, "Issues"); got != 0 {
		t.Errorf("Issues rows = %d, want 0 after rolled back write", got)
	}
}

func TestUpsert_IssueAfterStubs(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	mustStub(t, s, testRef(catalog.KindSeries, 100, "Amazing Spider-Man"))
	mustStub(t, s, testRef(catalog.KindStory, 500, "Cover #500"))

	onSale := time.Date(2018, 7, 11, 0, 0, 0, 0, time.UTC)
	issue := &catalog.Issue{
		Common: catalog.Common{
			ID:   1,
			URLs: []catalog.URL{{Type: catalog.URLDetail, URL: "http://marvel.com/comics/issue/1"}},
		},
		Title:        ptr("Amazing Spider-Man (2018) #1"),
		IssueNumber:  ptr(1.0),
		IsVariant:    ptr(false),
		Identifiers:  catalog.Identifiers{UPC: ptr("75960608936900111")},
		PageCount:    ptr(int64(40)),
		TextBlocks:   map[string][]catalog.TextBlock{"issue_solicit_text": {{Language: "en-us", Text: "Spidey!"}}},
		SeriesID:     ptr(int64(100)),
		CoverStoryID: ptr(int64(500)),
		Dates:        catalog.IssueDates{OnSale: &onSale},
		Prices:       catalog.IssuePrices{Print: ptr(5.99)},
	}
	if err := s.Upsert(ctx, issue); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, err := s.ReadIssue(ctx, 1)
	if err != nil {
		t.Fatalf("ReadIssue() failed: %v", err)
	}
	if got.SeriesID == nil || *got.SeriesID != 100 {
		t.Errorf("series_id = %v, want 100", got.SeriesID)
	}
	if got.IsVariant == nil || *got.IsVariant {
		t.Errorf("is_variant = %v, want false", got.IsVariant)
	}
	if got.Identifiers.UPC == nil || *got.Identifiers.UPC != "75960608936900111" {
		t.Errorf("upc = %v", got.Identifiers.UPC)
	}
	if got.Dates.OnSale == nil || !got.Dates.OnSale.Equal(onSale) {
		t.Errorf("on_sale_date = %v, want %v", got.Dates.OnSale, onSale)
	}
	if got.Prices.Print == nil || *got.Prices.Print != 5.99 {
		t.Errorf("print_price = %v, want 5.99", got.Prices.Print)
	}
	if len(got.TextBlocks["issue_solicit_text"]) != 1 {
		t.Errorf("text blocks = %+v", got.TextBlocks)
	}
	if len(got.URLs) != 1 || got.URLs[0].URL != "http://marvel.com/comics/issue/1" {
		t.Errorf("urls = %+v", got.URLs)
	}
	if got.Purchase != nil {
		t.Errorf("purchase = %+v, want nil", got.Purchase)
	}
}

func TestInsertStub_NeverOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	if err := s.Upsert(ctx, testSeries()); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	inserted, err := s.InsertStub(ctx, testRef(catalog.KindSeries, 100, "Some Other Title"))
	if err != nil {
		t.Fatalf("InsertStub() failed: %v", err)
	}
	if inserted {
		t.Error("InsertStub() reported an insert over an existing row")
	}

	got, _ := s.ReadSeries(ctx, 100)
	if *got.Title != "Amazing Spider-Man (2018 - Present)" {
		t.Errorf("title = %q, stub overwrote complete row", *got.Title)
	}
	if got.Description == nil {
		t.Error("description was cleared by stub")
	}
}

func TestInsertStub_CreatorSplitsName(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	mustStub(t, s, testRef(catalog.KindCreator, 200, "Nick Spencer"))

	got, err := s.ReadCreator(ctx, 200)
	if err != nil {
		t.Fatalf("ReadCreator() failed: %v", err)
	}
	if got.FullName == nil || *got.FullName != "Nick Spencer" {
		t.Errorf("full_name = %v", got.FullName)
	}
	if got.FirstName == nil || *got.FirstName != "Nick" {
		t.Errorf("first_name = %v, want Nick", got.FirstName)
	}
	if got.LastName == nil || *got.LastName != "Spencer" {
		t.Errorf("last_name = %v, want Spencer", got.LastName)
	}
	if got.MiddleName != nil {
		t.Errorf("middle_name = %v, want nil", got.MiddleName)
	}
	if got.Modified != nil {
		t.Errorf("stub has modified = %v", got.Modified)
	}
}

func TestInsertStub_IssueVariantFlag(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	mustStub(t, s, testRef(catalog.KindIssue, 2, "Amazing Spider-Man (2018) #1 (Ramos Variant)"))
	mustStub(t, s, testRef(catalog.KindIssue, 3, "Amazing Spider-Man (2018) #2"))

	for id, want := range map[int64]bool{2: true, 3: false} {
		var got sql.NullBool
		if err := s.db.QueryRow("SELECT is_variant FROM Issues WHERE id = ?", id).Scan(&got); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if !got.Valid || got.Bool != want {
			t.Errorf("issue %d is_variant = %+v, want %v", id, got, want)
		}
	}
}

func TestInsertStub_UnknownKind(t *testing.T) {
	s := createTestStore(t)
	_, err := s.InsertStub(t.Context(), catalog.Ref{Kind: "widget", ID: 1})
	if !IsWriteError(err) {
		t.Errorf("expected WriteError, got %v", err)
	}
}

func TestInsertImageAndURL_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	img := catalog.Image{Path: "http://i.annihil.us/u/prod/marvel/i/mg/c/e0/cover", Extension: ".jpg"}
	u := catalog.URL{Type: catalog.URLDetail, URL: "http://marvel.com/comics/issue/1"}

	for i := 0; i < 2; i++ {
		inserted, err := s.InsertImage(ctx, img)
		if err != nil {
			t.Fatalf("InsertImage() failed: %v", err)
		}
		if inserted != (i == 0) {
			t.Errorf("InsertImage() iteration %d inserted = %v", i, inserted)
		}
		inserted, err = s.InsertURL(ctx, u)
		if err != nil {
			t.Fatalf("InsertURL() failed: %v", err)
		}
		if inserted != (i == 0) {
			t.Errorf("InsertURL() iteration %d inserted = %v", i, inserted)
		}
	}
	if got := countRows(t, s, "Images"); got != 1 {
		t.Errorf("Images rows = %d, want 1", got)
	}
	if got := countRows(t, s, "URLs"); got != 1 {
		t.Errorf("URLs rows = %d, want 1", got)
	}
}

func TestUpsertPurchase(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	mustStub(t, s, testRef(catalog.KindIssue, 1, "Amazing Spider-Man (2018) #1"))

	date := time.Date(2018, 7, 11, 0, 0, 0, 0, time.UTC)
	if err := s.UpsertPurchase(ctx, 1, catalog.Purchase{Date: &date, Price: ptr(5.99), Format: catalog.FormatPhysical}); err != nil {
		t.Fatalf("UpsertPurchase() failed: %v", err)
	}
	// Price unknown the second time: keep the stored one.
	if err := s.UpsertPurchase(ctx, 1, catalog.Purchase{Format: catalog.FormatPhysical}); err != nil {
		t.Fatalf("second UpsertPurchase() failed: %v", err)
	}

	got, err := s.ReadIssue(ctx, 1)
	if err != nil {
		t.Fatalf("ReadIssue() failed: %v", err)
	}
	if got.Purchase == nil {
		t.Fatal("purchase overlay missing")
	}
	if got.Purchase.Price == nil || *got.Purchase.Price != 5.99 {
		t.Errorf("purchase price = %v, want 5.99", got.Purchase.Price)
	}
	if got.Purchase.Format != catalog.FormatPhysical {
		t.Errorf("purchase format = %q", got.Purchase.Format)
	}

	ids, err := s.PurchasedIssueIDs(ctx)
	if err != nil {
		t.Fatalf("PurchasedIssueIDs() failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("PurchasedIssueIDs() = %v, want [1]", ids)
	}
}

func TestUpsertPurchase_RejectsUnknownFormat(t *testing.T) {
	s := createTestStore(t)
	mustStub(t, s, testRef(catalog.KindIssue, 1, "Amazing Spider-Man (2018) #1"))

	err := s.UpsertPurchase(t.Context(), 1, catalog.Purchase{Format: "borrowed"})
	if !IsWriteError(err) {
		t.Errorf("expected WriteError, got %v", err)
	}
}

func TestUpsertPurchase_RequiresIssue(t *testing.T) {
	s := createTestStore(t)
	err := s.UpsertPurchase(t.Context(), 42, catalog.Purchase{Format: catalog.FormatDigital})
	if !IsWriteError(err) {
		t.Errorf("expected WriteError for missing issue, got %v", err)
	}
}
