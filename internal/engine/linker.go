package engine

import (
	"context"
	"log/slog"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

// LinkStats counts the join rows written for one record.
type LinkStats struct {
	Inserted int
	Existing int
	Skipped  int // endpoint unresolved or no join table for the pair
	Failed   int
}

// Linker writes the join rows between a committed record and the rows it
// references.
type Linker struct {
	store *store.Store
}

// NewLinker creates a linker writing to s.
func NewLinker(s *store.Store) *Linker {
	return &Linker{store: s}
}

// LinkAll writes one join row per reference of owner. References the
// resolution could not create are skipped; pairs without a join table
// (a series' next/previous neighbours, an issue's original issue) are
// skipped silently. A failed link is logged and does not stop the rest.
func (l *Linker) LinkAll(ctx context.Context, owner catalog.Entity, refs catalog.Refs, res *Resolution) LinkStats {
	var stats LinkStats
	kind := owner.Kind()
	id := owner.Base().ID

	link := func(target store.Target, right any, role string) {
		rel, ownerIsLeft, ok := store.RelationFor(kind, target)
		if !ok {
			stats.Skipped++
			return
		}
		left := any(id)
		if !ownerIsLeft {
			left, right = right, left
		}
		inserted, err := l.store.Link(ctx, rel, left, right, role)
		switch {
		case err != nil:
			slog.Warn("link failed", "table", rel.Table, "kind", kind, "id", id, "error", err)
			stats.Failed++
		case inserted:
			stats.Inserted++
		default:
			stats.Existing++
		}
	}

	for _, img := range refs.Images {
		if !res.ImageResolved(img.Path) {
			stats.Skipped++
			continue
		}
		link(store.TargetImage, img.Path, "")
	}
	for _, u := range refs.URLs {
		if !res.URLResolved(u.URL) {
			stats.Skipped++
			continue
		}
		link(store.TargetURL, u.URL, "")
	}

	for _, group := range [][]catalog.Ref{refs.Series, refs.Events, refs.Stories, refs.Characters, refs.Issues} {
		for _, ref := range group {
			if !res.Resolved(ref.Kind, ref.ID) {
				stats.Skipped++
				continue
			}
			link(store.KindTarget(ref.Kind), ref.ID, "")
		}
	}

	for _, cr := range refs.Creators {
		if !res.Resolved(catalog.KindCreator, cr.ID) {
			stats.Skipped++
			continue
		}
		if len(cr.Roles) == 0 {
			link(store.KindTarget(catalog.KindCreator), cr.ID, "")
			continue
		}
		for _, role := range cr.Roles {
			link(store.KindTarget(catalog.KindCreator), cr.ID, role)
		}
	}

	for _, v := range refs.Variants {
		if !res.Resolved(catalog.KindIssue, v.ID) {
			stats.Skipped++
			continue
		}
		link(store.TargetVariant, v.ID, "")
	}

	return stats
}
