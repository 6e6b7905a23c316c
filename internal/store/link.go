package store

import (
	"context"
	"fmt"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// Target is the far side of a relationship: an entity kind, or one of the
// value kinds that are not entities.
type Target string

const (
	TargetImage   Target = "image"
	TargetURL     Target = "url"
	TargetVariant Target = "variant"
)

// KindTarget names an entity kind as a relationship target.
func KindTarget(k catalog.Kind) Target { return Target(k) }

// Relation describes one join table.
type Relation struct {
	Table    string
	LeftKind catalog.Kind
	LeftCol  string
	Right    Target
	RightCol string
	HasRole  bool
}

// relations lists every join table. A pair of kinds has exactly one table
// no matter which side is being synced.
var relations = []Relation{
	{"Issues_has_Characters", catalog.KindIssue, "issue_id", KindTarget(catalog.KindCharacter), "character_id", false},
	{"Issues_has_Creators", catalog.KindIssue, "issue_id", KindTarget(catalog.KindCreator), "creator_id", true},
	{"Issues_has_Events", catalog.KindIssue, "issue_id", KindTarget(catalog.KindEvent), "event_id", false},
	{"Issues_has_Stories", catalog.KindIssue, "issue_id", KindTarget(catalog.KindStory), "story_id", false},
	{"Issues_has_Images", catalog.KindIssue, "issue_id", TargetImage, "image_path", false},
	{"Issues_has_URLs", catalog.KindIssue, "issue_id", TargetURL, "url", false},
	{"Issues_has_Variants", catalog.KindIssue, "issue_id", TargetVariant, "variant_id", false},
	{"Series_has_Issues", catalog.KindSeries, "series_id", KindTarget(catalog.KindIssue), "issue_id", false},
	{"Series_has_Characters", catalog.KindSeries, "series_id", KindTarget(catalog.KindCharacter), "character_id", false},
	{"Series_has_Creators", catalog.KindSeries, "series_id", KindTarget(catalog.KindCreator), "creator_id", true},
	{"Series_has_Events", catalog.KindSeries, "series_id", KindTarget(catalog.KindEvent), "event_id", false},
	{"Series_has_Stories", catalog.KindSeries, "series_id", KindTarget(catalog.KindStory), "story_id", false},
	{"Series_has_URLs", catalog.KindSeries, "series_id", TargetURL, "url", false},
	{"Events_has_Characters", catalog.KindEvent, "event_id", KindTarget(catalog.KindCharacter), "character_id", false},
	{"Events_has_Creators", catalog.KindEvent, "event_id", KindTarget(catalog.KindCreator), "creator_id", true},
	{"Events_has_Stories", catalog.KindEvent, "event_id", KindTarget(catalog.KindStory), "story_id", false},
	{"Events_has_URLs", catalog.KindEvent, "event_id", TargetURL, "url", false},
	{"Stories_has_Characters", catalog.KindStory, "story_id", KindTarget(catalog.KindCharacter), "character_id", false},
	{"Stories_has_Creators", catalog.KindStory, "story_id", KindTarget(catalog.KindCreator), "creator_id", true},
	{"Characters_has_URLs", catalog.KindCharacter, "character_id", TargetURL, "url", false},
	{"Creators_has_URLs", catalog.KindCreator, "creator_id", TargetURL, "url", false},
}

// Relations returns every join table definition.
func Relations() []Relation {
	out := make([]Relation, len(relations))
	copy(out, relations)
	return out
}

// RelationFor finds the join table between an owner kind and a target.
// ownerIsLeft reports which column the owner's id belongs in.
func RelationFor(owner catalog.Kind, target Target) (rel Relation, ownerIsLeft bool, ok bool) {
	for _, r := range relations {
		if r.LeftKind == owner && r.Right == target {
			return r, true, true
		}
	}
	for _, r := range relations {
		if KindTarget(r.LeftKind) == target && r.Right == KindTarget(owner) {
			return r, false, true
		}
	}
	return Relation{}, false, false
}

// Link writes a join row between left and right. It is idempotent: a row
// already present is left alone and reported as not inserted.
//
// For relations carrying a role, an empty role means "unknown". A known
// role first fills in an existing unknown-role row for the same pair;
// otherwise it adds one row per distinct role. An unknown role is only
// recorded when the pair has no row at all.
func (s *Store) Link(ctx context.Context, rel Relation, left, right any, role string) (bool, error) {
	key := fmt.Sprintf("%v-%v", left, right)

	if !rel.HasRole {
		query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT DO NOTHING",
			rel.Table, rel.LeftCol, rel.RightCol)
		n, err := s.exec(ctx, "link", rel.Table, key, query, left, right)
		return n > 0, err
	}

	if role == "" {
		var count int
		exists := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND %s = ?", rel.Table, rel.LeftCol, rel.RightCol)
		if err := s.queryRow(ctx, exists, left, right).Scan(&count); err != nil {
			return false, &WriteError{Op: "link", Table: rel.Table, Key: key, Err: err}
		}
		if count > 0 {
			return false, nil
		}
		query := fmt.Sprintf("INSERT INTO %s (%s, %s, role) VALUES (?, ?, '') ON CONFLICT DO NOTHING",
			rel.Table, rel.LeftCol, rel.RightCol)
		n, err := s.exec(ctx, "link", rel.Table, key, query, left, right)
		return n > 0, err
	}

	fill := fmt.Sprintf("UPDATE %s SET role = ? WHERE %s = ? AND %s = ? AND role = ''",
		rel.Table, rel.LeftCol, rel.RightCol)
	n, err := s.exec(ctx, "link", rel.Table, key, fill, role, left, right)
	if err != nil || n > 0 {
		return n > 0, err
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s, %s, role) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		rel.Table, rel.LeftCol, rel.RightCol)
	n, err = s.exec(ctx, "link", rel.Table, key, insert, left, right, role)
	return n > 0, err
}
