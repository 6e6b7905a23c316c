package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// ErrNotFound is returned by Read* methods when no row has the given id.
var ErrNotFound = errors.New("not found")

// knownTable reports whether name is a table this store created.
func knownTable(name string) bool {
	switch name {
	case "Images", "URLs", "PurchasedComics", "scanned_codes":
		return true
	}
	for _, k := range catalog.Kinds {
		if k.Table() == name {
			return true
		}
	}
	for _, r := range relations {
		if r.Table == name {
			return true
		}
	}
	return false
}

// CountRows returns the number of rows in a store table.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("count rows: unknown table %q", table)
	}
	var n int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows %s: %w", table, err)
	}
	return n, nil
}

// RowState describes how much of an entity the store holds.
type RowState int

const (
	// RowAbsent means no row exists.
	RowAbsent RowState = iota
	// RowStub means only the identifying fields are known.
	RowStub
	// RowComplete means the record has been synced in full at least once.
	RowComplete
)

func (r RowState) String() string {
	switch r {
	case RowStub:
		return "stub"
	case RowComplete:
		return "complete"
	}
	return "absent"
}

// State reports whether an entity row is absent, a stub or complete. A row
// is complete once a full record has been upserted, whether or not the
// provider gave it a usable modified date.
func (s *Store) State(ctx context.Context, kind catalog.Kind, id int64) (RowState, error) {
	var synced sql.NullString
	err := s.queryRow(ctx, "SELECT synced_at FROM "+kind.Table()+" WHERE id = ?", id).Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return RowAbsent, nil
	}
	if err != nil {
		return RowAbsent, fmt.Errorf("read state %s %d: %w", kind, id, err)
	}
	if synced.Valid {
		return RowComplete, nil
	}
	return RowStub, nil
}

// FindStale returns up to limit ids of the given kind that are stale: stubs,
// and complete rows whose modified date is older than cutoff. A complete row
// without a modified date ages from the time it was synced.
//
// Ids never attempted come first, then the least recently attempted, so
// ids that keep failing do not starve the rest. A non-zero attemptedBefore
// leaves out ids attempted at or after it; a sweep passes its start time
// to page without revisiting ids.
//
// Returns an empty slice (not nil) if nothing is stale.
func (s *Store) FindStale(ctx context.Context, kind catalog.Kind, cutoff, attemptedBefore time.Time, limit int) ([]int64, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("find stale: unknown kind %q", kind)
	}
	query := `SELECT id FROM ` + kind.Table() + `
		WHERE (synced_at IS NULL OR COALESCE(modified, synced_at) < ?)`
	args := []any{formatTime(cutoff)}
	if !attemptedBefore.IsZero() {
		query += ` AND (attempted_at IS NULL OR attempted_at < ?)`
		args = append(args, formatTime(attemptedBefore))
	}
	query += `
		ORDER BY COALESCE(attempted_at, '') ASC, id ASC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find stale %s: %w", kind, err)
	}
	return scanIDs(rows)
}

// RelatedIDs returns the ids of entities of the given kind that an issue
// is linked to: its series, variants, characters, creators, events or
// stories.
func (s *Store) RelatedIDs(ctx context.Context, issueID int64, kind catalog.Kind) ([]int64, error) {
	var query string
	switch kind {
	case catalog.KindSeries:
		query = "SELECT series_id FROM Issues WHERE id = ? AND series_id IS NOT NULL"
	case catalog.KindIssue:
		query = "SELECT variant_id FROM Issues_has_Variants WHERE issue_id = ? ORDER BY variant_id"
	default:
		rel, left, ok := RelationFor(catalog.KindIssue, KindTarget(kind))
		if !ok || !left {
			return nil, fmt.Errorf("related ids: issues have no %s relation", kind)
		}
		query = fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s = ? ORDER BY %s", rel.RightCol, rel.Table, rel.LeftCol, rel.RightCol)
	}

	rows, err := s.Query(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("related ids %s: %w", kind, err)
	}
	return scanIDs(rows)
}

// PurchasedIssueIDs returns the ids of every owned issue, ascending.
func (s *Store) PurchasedIssueIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.Query(ctx, "SELECT issue_id FROM PurchasedComics ORDER BY issue_id")
	if err != nil {
		return nil, fmt.Errorf("purchased issues: %w", err)
	}
	return scanIDs(rows)
}

// Roles returns the roles recorded for one creator link, ascending.
func (s *Store) Roles(ctx context.Context, rel Relation, left, right any) ([]string, error) {
	if !rel.HasRole {
		return []string{}, nil
	}
	rows, err := s.Query(ctx, fmt.Sprintf("SELECT role FROM %s WHERE %s = ? AND %s = ? ORDER BY role",
		rel.Table, rel.LeftCol, rel.RightCol), left, right)
	if err != nil {
		return nil, fmt.Errorf("read roles: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

// ReadIssue returns the stored issue, including its purchase overlay.
func (s *Store) ReadIssue(ctx context.Context, id int64) (*catalog.Issue, error) {
	var (
		issue                                    catalog.Issue
		digitalID, pageCount, seriesID           sql.NullInt64
		originalID, coverID, interiorID          sql.NullInt64
		title, variantDesc, desc, uri, modified  sql.NullString
		isbn, upc, diamond, ean, issn, format    sql.NullString
		textObjects, thumb, thumbExt             sql.NullString
		onSale, foc, unlimited, digitalDate      sql.NullString
		detailURL, purchaseURL, readerURL, inApp sql.NullString
		issueNumber, printPrice, digitalPrice    sql.NullFloat64
		isVariant                                sql.NullBool
	)
	err := s.queryRow(ctx, `
		SELECT id, digital_id, title, issue_number, variant_description, is_variant,
			description, resource_uri, modified, isbn, upc, diamond_code, ean, issn,
			format, page_count, text_objects, detail_url, purchase_url, reader_url,
			in_app_link_url, on_sale_date, foc_date, unlimited_date, digital_purchase_date,
			print_price, digital_purchase_price, series_id, original_issue_id,
			thumbnail, thumbnail_extension, cover_story_id, interior_story_id
		FROM Issues WHERE id = ?
	`, id).Scan(
		&issue.ID, &digitalID, &title, &issueNumber, &variantDesc, &isVariant,
		&desc, &uri, &modified, &isbn, &upc, &diamond, &ean, &issn,
		&format, &pageCount, &textObjects, &detailURL, &purchaseURL, &readerURL,
		&inApp, &onSale, &foc, &unlimited, &digitalDate,
		&printPrice, &digitalPrice, &seriesID, &originalID,
		&thumb, &thumbExt, &coverID, &interiorID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read issue %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read issue %d: %w", id, err)
	}

	if err := readCommon(&issue.Common, desc, uri, modified, thumb, thumbExt); err != nil {
		return nil, fmt.Errorf("read issue %d: %w", id, err)
	}
	for _, link := range []struct {
		t catalog.URLType
		v sql.NullString
	}{
		{catalog.URLDetail, detailURL},
		{catalog.URLPurchase, purchaseURL},
		{catalog.URLReader, readerURL},
		{catalog.URLInAppLink, inApp},
	} {
		if link.v.Valid {
			issue.URLs = append(issue.URLs, catalog.URL{Type: link.t, URL: link.v.String})
		}
	}

	issue.DigitalID = nullInt(digitalID)
	issue.Title = nullString(title)
	issue.IssueNumber = nullFloat(issueNumber)
	issue.VariantDescription = nullString(variantDesc)
	issue.IsVariant = nullBool(isVariant)
	issue.Identifiers = catalog.Identifiers{
		ISBN:        nullString(isbn),
		UPC:         nullString(upc),
		DiamondCode: nullString(diamond),
		EAN:         nullString(ean),
		ISSN:        nullString(issn),
	}
	issue.Format = nullString(format)
	issue.PageCount = nullInt(pageCount)
	issue.SeriesID = nullInt(seriesID)
	issue.OriginalIssueID = nullInt(originalID)
	issue.CoverStoryID = nullInt(coverID)
	issue.InteriorStoryID = nullInt(interiorID)
	issue.Prices = catalog.IssuePrices{Print: nullFloat(printPrice), DigitalPurchase: nullFloat(digitalPrice)}

	if issue.TextBlocks, err = unmarshalTextBlocks(textObjects); err != nil {
		return nil, fmt.Errorf("read issue %d: %w", id, err)
	}
	for _, d := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&issue.Dates.OnSale, onSale},
		{&issue.Dates.FOC, foc},
		{&issue.Dates.Unlimited, unlimited},
		{&issue.Dates.DigitalPurchase, digitalDate},
	} {
		if *d.dst, err = parseTime(d.src); err != nil {
			return nil, fmt.Errorf("read issue %d: %w", id, err)
		}
	}

	if issue.Purchase, err = s.readPurchase(ctx, id); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *Store) readPurchase(ctx context.Context, issueID int64) (*catalog.Purchase, error) {
	var (
		date   sql.NullString
		price  sql.NullFloat64
		format string
	)
	err := s.queryRow(ctx, `
		SELECT purchase_date, purchase_price, purchase_format
		FROM PurchasedComics WHERE issue_id = ?
	`, issueID).Scan(&date, &price, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read purchase %d: %w", issueID, err)
	}

	p := &catalog.Purchase{Price: nullFloat(price), Format: catalog.PurchaseFormat(format)}
	if p.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("read purchase %d: %w", issueID, err)
	}
	return p, nil
}

// ReadSeries returns the stored series.
func (s *Store) ReadSeries(ctx context.Context, id int64) (*catalog.Series, error) {
	var (
		series                             catalog.Series
		title, desc, uri, modified         sql.NullString
		rating, typ, thumb, thumbExt       sql.NullString
		startYear, endYear, nextID, prevID sql.NullInt64
	)
	err := s.queryRow(ctx, `
		SELECT id, title, description, resource_uri, modified, start_year, end_year,
			rating, type, thumbnail, thumbnail_extension, next_series_id, previous_series_id
		FROM Series WHERE id = ?
	`, id).Scan(
		&series.ID, &title, &desc, &uri, &modified, &startYear, &endYear,
		&rating, &typ, &thumb, &thumbExt, &nextID, &prevID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read series %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read series %d: %w", id, err)
	}

	if err := readCommon(&series.Common, desc, uri, modified, thumb, thumbExt); err != nil {
		return nil, fmt.Errorf("read series %d: %w", id, err)
	}
	series.Title = nullString(title)
	series.StartYear = nullInt(startYear)
	series.EndYear = nullInt(endYear)
	series.Rating = nullString(rating)
	series.Type = nullString(typ)
	series.NextSeriesID = nullInt(nextID)
	series.PreviousSeriesID = nullInt(prevID)
	return &series, nil
}

// ReadCreator returns the stored creator.
func (s *Store) ReadCreator(ctx context.Context, id int64) (*catalog.Creator, error) {
	var (
		c                                   catalog.Creator
		first, middle, last, suffix, full   sql.NullString
		desc, uri, modified, thumb, thumbExt sql.NullString
	)
	err := s.queryRow(ctx, `
		SELECT id, first_name, middle_name, last_name, suffix, full_name,
			description, resource_uri, modified, thumbnail, thumbnail_extension
		FROM Creators WHERE id = ?
	`, id).Scan(&c.ID, &first, &middle, &last, &suffix, &full, &desc, &uri, &modified, &thumb, &thumbExt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read creator %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read creator %d: %w", id, err)
	}

	if err := readCommon(&c.Common, desc, uri, modified, thumb, thumbExt); err != nil {
		return nil, fmt.Errorf("read creator %d: %w", id, err)
	}
	c.FirstName = nullString(first)
	c.MiddleName = nullString(middle)
	c.LastName = nullString(last)
	c.Suffix = nullString(suffix)
	c.FullName = nullString(full)
	return &c, nil
}

func readCommon(c *catalog.Common, desc, uri, modified, thumb, thumbExt sql.NullString) error {
	c.Description = nullString(desc)
	c.ResourceURI = uri.String
	if thumb.Valid {
		c.Thumbnail = &catalog.Image{Path: thumb.String, Extension: thumbExt.String}
	}
	t, err := parseTime(modified)
	if err != nil {
		return err
	}
	c.Modified = t
	return nil
}
