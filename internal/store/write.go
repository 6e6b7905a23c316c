package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// WriteError reports a failed statement. The statement's transaction has
// been rolled back; nothing else is affected.
type WriteError struct {
	Op    string // "upsert", "stub", "link", ...
	Table string
	Key   string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s[%s]: %v", e.Op, e.Table, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsWriteError returns true if the error is a WriteError.
// Uses errors.As to handle wrapped errors.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// exec runs one statement in its own transaction and returns the number of
// rows it affected.
func (s *Store) exec(ctx context.Context, op, table, key, query string, args ...any) (int64, error) {
	fail := func(err error) (int64, error) {
		return 0, &WriteError{Op: op, Table: table, Key: key, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return fail(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fail(fmt.Errorf("rows affected: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	return n, nil
}

// row is an ordered column/value list for one INSERT.
type row struct {
	cols []string
	vals []any
}

func (r *row) set(col string, v any) {
	r.cols = append(r.cols, col)
	r.vals = append(r.vals, v)
}

// val dereferences an optional field; nil becomes SQL NULL.
func val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func isKey(col string, keys []string) bool {
	for _, k := range keys {
		if k == col {
			return true
		}
	}
	return false
}

// upsertRow inserts r into table or, when a row with the same keys exists,
// merges every non-key column with COALESCE so that NULLs never overwrite.
func (s *Store) upsertRow(ctx context.Context, op, table string, keys []string, key string, r row) error {
	var sets []string
	for _, c := range r.cols {
		if isKey(c, keys) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, %s.%s)", c, c, table, c))
	}

	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) %s",
		table,
		strings.Join(r.cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(r.cols)), ", "),
		strings.Join(keys, ", "),
		conflict,
	)

	_, err := s.exec(ctx, op, table, key, query, r.vals...)
	return err
}

// insertIfAbsent writes r only when no row with the same keys exists.
// Returns whether a row was inserted.
func (s *Store) insertIfAbsent(ctx context.Context, op, table string, keys []string, key string, r row) (bool, error) {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO NOTHING",
		table,
		strings.Join(r.cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(r.cols)), ", "),
		strings.Join(keys, ", "),
	)
	n, err := s.exec(ctx, op, table, key, query, r.vals...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var idKey = []string{"id"}

// Upsert inserts or merges a full entity record. Every column is merged
// with COALESCE(incoming, existing): fields the record leaves unset keep
// their stored values.
//
// Referenced rows (series, stories, variants, next/previous links) must
// already exist; the engine materializes stubs for them first.
func (s *Store) Upsert(ctx context.Context, e catalog.Entity) error {
	r, err := s.entityRow(e)
	if err != nil {
		return &WriteError{Op: "upsert", Table: e.Kind().Table(), Key: strconv.FormatInt(e.Base().ID, 10), Err: err}
	}
	return s.upsertRow(ctx, "upsert", e.Kind().Table(), idKey, strconv.FormatInt(e.Base().ID, 10), r)
}

func (s *Store) entityRow(e catalog.Entity) (row, error) {
	var r row
	c := e.Base()
	thumb, ext := thumbnailArgs(c.Thumbnail)

	common := func() {
		r.set("description", val(c.Description))
		r.set("resource_uri", optString(c.ResourceURI))
		r.set("modified", timeArg(c.Modified))
		r.set("thumbnail", thumb)
		r.set("thumbnail_extension", ext)
	}

	r.set("id", c.ID)
	switch v := e.(type) {
	case *catalog.Issue:
		blocks, err := marshalTextBlocks(v.TextBlocks)
		if err != nil {
			return row{}, err
		}
		r.set("digital_id", val(v.DigitalID))
		r.set("title", val(v.Title))
		r.set("issue_number", val(v.IssueNumber))
		r.set("variant_description", val(v.VariantDescription))
		r.set("is_variant", val(v.IsVariant))
		common()
		r.set("isbn", val(v.Identifiers.ISBN))
		r.set("upc", val(v.Identifiers.UPC))
		r.set("diamond_code", val(v.Identifiers.DiamondCode))
		r.set("ean", val(v.Identifiers.EAN))
		r.set("issn", val(v.Identifiers.ISSN))
		r.set("format", val(v.Format))
		r.set("page_count", val(v.PageCount))
		r.set("text_objects", blocks)
		r.set("detail_url", val(urlOf(v.URLs, catalog.URLDetail)))
		r.set("purchase_url", val(urlOf(v.URLs, catalog.URLPurchase)))
		r.set("reader_url", val(urlOf(v.URLs, catalog.URLReader)))
		r.set("in_app_link_url", val(urlOf(v.URLs, catalog.URLInAppLink)))
		r.set("on_sale_date", timeArg(v.Dates.OnSale))
		r.set("foc_date", timeArg(v.Dates.FOC))
		r.set("unlimited_date", timeArg(v.Dates.Unlimited))
		r.set("digital_purchase_date", timeArg(v.Dates.DigitalPurchase))
		r.set("print_price", val(v.Prices.Print))
		r.set("digital_purchase_price", val(v.Prices.DigitalPurchase))
		r.set("series_id", val(v.SeriesID))
		r.set("original_issue_id", val(v.OriginalIssueID))
		r.set("cover_story_id", val(v.CoverStoryID))
		r.set("interior_story_id", val(v.InteriorStoryID))
	case *catalog.Series:
		r.set("title", val(v.Title))
		common()
		r.set("start_year", val(v.StartYear))
		r.set("end_year", val(v.EndYear))
		r.set("rating", val(v.Rating))
		r.set("type", val(v.Type))
		r.set("next_series_id", val(v.NextSeriesID))
		r.set("previous_series_id", val(v.PreviousSeriesID))
	case *catalog.Event:
		r.set("title", val(v.Title))
		common()
		r.set("start_date", timeArg(v.Start))
		r.set("end_date", timeArg(v.End))
		r.set("next_event_id", val(v.NextEventID))
		r.set("previous_event_id", val(v.PreviousEventID))
	case *catalog.Story:
		r.set("title", val(v.Title))
		common()
		r.set("type", val(v.Type))
		r.set("original_issue_id", val(v.OriginalIssueID))
	case *catalog.Character:
		r.set("name", val(v.Name))
		common()
	case *catalog.Creator:
		r.set("first_name", val(v.FirstName))
		r.set("middle_name", val(v.MiddleName))
		r.set("last_name", val(v.LastName))
		r.set("suffix", val(v.Suffix))
		r.set("full_name", val(v.FullName))
		common()
	default:
		return row{}, fmt.Errorf("unsupported entity %T", e)
	}
	now := s.timestamp()
	r.set("synced_at", now)
	r.set("attempted_at", now)
	r.set("updated_at", now)
	return r, nil
}

// InsertStub writes a minimal row for a referenced entity when no row with
// its id exists. An existing row, stub or complete, is never touched.
// Returns whether a row was inserted.
func (s *Store) InsertStub(ctx context.Context, ref catalog.Ref) (bool, error) {
	table := ref.Kind.Table()
	key := strconv.FormatInt(ref.ID, 10)
	if !ref.Kind.Valid() {
		return false, &WriteError{Op: "stub", Table: string(ref.Kind), Key: key, Err: fmt.Errorf("unknown kind")}
	}

	var r row
	r.set("id", ref.ID)
	r.set(ref.Kind.TitleColumn(), optString(ref.Name))
	r.set("resource_uri", optString(ref.ResourceURI))

	switch ref.Kind {
	case catalog.KindCreator:
		name := catalog.SplitName(ref.Name)
		r.set("first_name", optString(name.First))
		r.set("middle_name", optString(name.Middle))
		r.set("last_name", optString(name.Last))
	case catalog.KindStory:
		r.set("type", optString(ref.StoryType))
	case catalog.KindIssue:
		r.set("is_variant", catalog.LooksLikeVariant(ref.Name))
	}
	r.set("updated_at", s.timestamp())

	return s.insertIfAbsent(ctx, "stub", table, idKey, key, r)
}

// MarkAttempted records a sync attempt that did not upsert the row, so the
// id moves behind others in FindStale. Absent rows are left absent.
func (s *Store) MarkAttempted(ctx context.Context, kind catalog.Kind, id int64) error {
	key := strconv.FormatInt(id, 10)
	if !kind.Valid() {
		return &WriteError{Op: "attempt", Table: string(kind), Key: key, Err: fmt.Errorf("unknown kind")}
	}
	_, err := s.exec(ctx, "attempt", kind.Table(), key,
		"UPDATE "+kind.Table()+" SET attempted_at = ? WHERE id = ?", s.timestamp(), id)
	return err
}

// InsertImage records an image by path if it is not yet known.
func (s *Store) InsertImage(ctx context.Context, img catalog.Image) (bool, error) {
	var r row
	r.set("path", img.Path)
	r.set("extension", optString(img.Extension))
	return s.insertIfAbsent(ctx, "stub", "Images", []string{"path"}, img.Path, r)
}

// InsertURL records a typed link if it is not yet known.
func (s *Store) InsertURL(ctx context.Context, u catalog.URL) (bool, error) {
	var r row
	r.set("type", string(u.Type))
	r.set("url", u.URL)
	return s.insertIfAbsent(ctx, "stub", "URLs", []string{"type", "url"}, string(u.Type)+" "+u.URL, r)
}

// UpsertPurchase records or merges the ownership overlay for an issue.
// The issue row must exist.
func (s *Store) UpsertPurchase(ctx context.Context, issueID int64, p catalog.Purchase) error {
	if _, err := catalog.ParsePurchaseFormat(string(p.Format)); err != nil {
		return &WriteError{Op: "upsert", Table: "PurchasedComics", Key: strconv.FormatInt(issueID, 10), Err: err}
	}

	var r row
	r.set("issue_id", issueID)
	r.set("purchase_date", timeArg(p.Date))
	r.set("purchase_price", val(p.Price))
	r.set("purchase_format", string(p.Format))
	r.set("updated_at", s.timestamp())
	return s.upsertRow(ctx, "upsert", "PurchasedComics", []string{"issue_id"}, strconv.FormatInt(issueID, 10), r)
}
