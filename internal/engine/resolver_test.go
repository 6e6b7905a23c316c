package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

func ref(kind catalog.Kind, id int64) catalog.Ref {
	return catalog.Ref{Kind: kind, ID: id, Name: string(kind) + " stub"}
}

func TestMaterializeStubs(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	r := NewResolver(env.store)

	refs := catalog.Refs{
		Images:   []catalog.Image{{Path: "http://i.example.com/a", Extension: ".jpg"}},
		URLs:     []catalog.URL{{Type: catalog.URLDetail, URL: "http://example.com/a"}},
		Series:   []catalog.Ref{ref(catalog.KindSeries, 100)},
		Creators: []catalog.CreatorRef{{Ref: ref(catalog.KindCreator, 200), Roles: []string{"writer"}}},
		Variants: []catalog.Ref{ref(catalog.KindIssue, 2)},
	}

	res := r.MaterializeStubs(ctx, refs)
	assert.Equal(t, 5, res.Created)
	assert.Equal(t, 0, res.Existing)
	assert.Equal(t, 0, res.Failures())
	assert.True(t, res.Resolved(catalog.KindSeries, 100))
	assert.True(t, res.ImageResolved("http://i.example.com/a"))
	assert.Equal(t, store.RowStub, state(t, env.store, catalog.KindIssue, 2))

	res = r.MaterializeStubs(ctx, refs)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 5, res.Existing)
}

func TestMaterializeStubs_LeavesCompleteRows(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SetRecord("series", 100, loadRecord(t, "series_100.json"))
	ctx := t.Context()
	require.Equal(t, 1, env.syncer().SyncByID(ctx, catalog.KindSeries, 100).Committed())
	before := dump(t, env.store)

	res := NewResolver(env.store).MaterializeStubs(ctx, catalog.Refs{Series: []catalog.Ref{ref(catalog.KindSeries, 100)}})
	assert.Equal(t, 1, res.Existing)
	assert.Equal(t, before, dump(t, env.store))
}

func TestMaterializeStubs_FailureIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.DB().Exec(`CREATE TRIGGER reject_event BEFORE INSERT ON Events
		BEGIN SELECT RAISE(ABORT, 'event rejected'); END`)
	require.NoError(t, err)

	res := NewResolver(env.store).MaterializeStubs(t.Context(), catalog.Refs{
		Events: []catalog.Ref{ref(catalog.KindEvent, 7)},
		Series: []catalog.Ref{ref(catalog.KindSeries, 100)},
	})
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Failures())
	assert.False(t, res.Resolved(catalog.KindEvent, 7))
	assert.True(t, res.Resolved(catalog.KindSeries, 100))
	assert.True(t, res.Resolved(catalog.KindEvent, 8), "ids that were never referenced are not failures")
}

func TestClearUnresolved(t *testing.T) {
	series, cover := int64(100), int64(400)
	issue := &catalog.Issue{Common: catalog.Common{ID: 1}, SeriesID: &series, CoverStoryID: &cover}

	res := newResolution()
	res.fail(catalog.KindSeries, 100, assert.AnError)
	clearUnresolved(issue, res)

	assert.Nil(t, issue.SeriesID)
	require.NotNil(t, issue.CoverStoryID)
	assert.Equal(t, int64(400), *issue.CoverStoryID)
}

func TestLinkAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	r := NewResolver(env.store)
	l := NewLinker(env.store)

	owner := &catalog.Issue{Common: catalog.Common{ID: 1}}
	require.NoError(t, env.store.Upsert(ctx, owner))

	refs := catalog.Refs{
		Series:     []catalog.Ref{ref(catalog.KindSeries, 100)},
		Characters: []catalog.Ref{ref(catalog.KindCharacter, 300)},
		Creators: []catalog.CreatorRef{
			{Ref: ref(catalog.KindCreator, 200), Roles: []string{"writer", "penciler"}},
			{Ref: ref(catalog.KindCreator, 201)},
		},
		Variants: []catalog.Ref{ref(catalog.KindIssue, 2)},
	}
	res := r.MaterializeStubs(ctx, refs)

	stats := l.LinkAll(ctx, owner, refs, res)
	// series, character, two roles for 200, one unknown role for 201, variant
	assert.Equal(t, LinkStats{Inserted: 6}, stats)
	assert.Equal(t, 1, rows(t, env.store, "Series_has_Issues"))
	assert.Equal(t, 3, rows(t, env.store, "Issues_has_Creators"))
	assert.Equal(t, 1, rows(t, env.store, "Issues_has_Variants"))

	rel, _, _ := store.RelationFor(catalog.KindIssue, store.KindTarget(catalog.KindCreator))
	roles, err := env.store.Roles(ctx, rel, int64(1), int64(200))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"writer", "penciler"}, roles)

	stats = l.LinkAll(ctx, owner, refs, res)
	assert.Equal(t, LinkStats{Existing: 6}, stats)
}

func TestLinkAll_SkipsUnresolvedAndUnlinkedPairs(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	owner := &catalog.Series{Common: catalog.Common{ID: 100}}
	require.NoError(t, env.store.Upsert(ctx, owner))

	refs := catalog.Refs{
		// next/previous neighbours have no join table
		Series: []catalog.Ref{ref(catalog.KindSeries, 101)},
		Events: []catalog.Ref{ref(catalog.KindEvent, 7)},
	}
	res := NewResolver(env.store).MaterializeStubs(ctx, catalog.Refs{Series: refs.Series})
	res.fail(catalog.KindEvent, 7, assert.AnError)

	stats := NewLinker(env.store).LinkAll(ctx, owner, refs, res)
	assert.Equal(t, LinkStats{Skipped: 2}, stats)
	assert.Equal(t, 0, rows(t, env.store, "Series_has_Events"))
}
