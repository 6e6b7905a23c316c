package engine

import (
	"context"
	"log/slog"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

// Resolution reports which references of one record have a row in the
// store after MaterializeStubs.
type Resolution struct {
	// Created counts rows inserted as stubs.
	Created int
	// Existing counts references whose row was already present.
	Existing int

	failed       map[catalog.Kind]map[int64]error
	failedImages map[string]error
	failedURLs   map[string]error
}

func newResolution() *Resolution {
	return &Resolution{
		failed:       make(map[catalog.Kind]map[int64]error),
		failedImages: make(map[string]error),
		failedURLs:   make(map[string]error),
	}
}

// Resolved reports false only for a (kind, id) whose stub could not be
// written. Ids never passed to MaterializeStubs count as resolved.
func (r *Resolution) Resolved(kind catalog.Kind, id int64) bool {
	_, bad := r.failed[kind][id]
	return !bad
}

// ImageResolved reports whether the image row exists.
func (r *Resolution) ImageResolved(path string) bool {
	_, bad := r.failedImages[path]
	return !bad
}

// URLResolved reports whether the url row exists.
func (r *Resolution) URLResolved(u string) bool {
	_, bad := r.failedURLs[u]
	return !bad
}

// Failures returns the number of references that could not be stored.
func (r *Resolution) Failures() int {
	n := len(r.failedImages) + len(r.failedURLs)
	for _, ids := range r.failed {
		n += len(ids)
	}
	return n
}

func (r *Resolution) fail(kind catalog.Kind, id int64, err error) {
	if r.failed[kind] == nil {
		r.failed[kind] = make(map[int64]error)
	}
	r.failed[kind][id] = err
}

func (r *Resolution) record(inserted bool) {
	if inserted {
		r.Created++
	} else {
		r.Existing++
	}
}

// Resolver makes sure every referenced row exists before the record that
// points at it is written.
type Resolver struct {
	store *store.Store
}

// NewResolver creates a resolver writing to s.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// MaterializeStubs inserts a stub row for every reference that has no row
// yet. Existing rows are left untouched whatever their freshness.
//
// Dependencies are processed in a fixed order: images, urls, series,
// events, stories, characters, creators, variants, then other issues.
// A failed stub is logged and recorded in the Resolution; the remaining
// references are still processed.
func (r *Resolver) MaterializeStubs(ctx context.Context, refs catalog.Refs) *Resolution {
	res := newResolution()

	for _, img := range refs.Images {
		inserted, err := r.store.InsertImage(ctx, img)
		if err != nil {
			slog.Warn("image stub failed", "path", img.Path, "error", err)
			res.failedImages[img.Path] = err
			continue
		}
		res.record(inserted)
	}

	for _, u := range refs.URLs {
		inserted, err := r.store.InsertURL(ctx, u)
		if err != nil {
			slog.Warn("url stub failed", "url", u.URL, "error", err)
			res.failedURLs[u.URL] = err
			continue
		}
		res.record(inserted)
	}

	stub := func(ref catalog.Ref) {
		inserted, err := r.store.InsertStub(ctx, ref)
		if err != nil {
			slog.Warn("stub failed", "kind", ref.Kind, "id", ref.ID, "error", err)
			res.fail(ref.Kind, ref.ID, err)
			return
		}
		if inserted {
			slog.Debug("stub created", "kind", ref.Kind, "id", ref.ID)
		}
		res.record(inserted)
	}

	for _, group := range [][]catalog.Ref{refs.Series, refs.Events, refs.Stories, refs.Characters} {
		for _, ref := range group {
			stub(ref)
		}
	}
	for _, cr := range refs.Creators {
		stub(cr.Ref)
	}
	for _, group := range [][]catalog.Ref{refs.Variants, refs.Issues} {
		for _, ref := range group {
			stub(ref)
		}
	}

	return res
}

// clearUnresolved nils every foreign key on e that points at a row the
// resolution could not create, so the owner can still be written.
func clearUnresolved(e catalog.Entity, res *Resolution) {
	for kind, fields := range catalog.ForeignKeys(e) {
		for _, f := range fields {
			if *f == nil || res.Resolved(kind, **f) {
				continue
			}
			slog.Warn("clearing unresolved reference",
				"kind", e.Kind(), "id", e.Base().ID, "ref_kind", kind, "ref_id", **f)
			*f = nil
		}
	}
}
