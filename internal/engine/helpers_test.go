package engine

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/provider"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
	"github.com/zanemmiller2/pi-comic-scanner/internal/testutil"
)

// testNow puts every fixture's modified date inside the staleness window
// except creator 200 (2019-05-01).
var testNow = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

const issue1Code = "75960608936900111"

type testEnv struct {
	store    *store.Store
	provider *testutil.FakeProvider
	client   *provider.Client
	clock    *FixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ticks := testutil.NewTickingClock(testNow, time.Second)
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(ticks.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fake := testutil.NewFakeProvider(t)
	return &testEnv{
		store:    s,
		provider: fake,
		client:   provider.NewClient(fake.URL(), provider.Signer{PublicKey: "pub", PrivateKey: "priv"}),
		clock:    NewFixedClock(testNow),
	}
}

func (e *testEnv) syncer(opts ...Option) *Syncer {
	base := []Option{WithClock(e.clock), WithRunIDs(testutil.NewFixedRunID("run-test"))}
	return New(e.store, e.client, append(base, opts...)...)
}

func loadRecord(t *testing.T, name string) json.RawMessage {
	return testutil.Record(t, name)
}

// dump renders the whole store.
func dump(t *testing.T, s *store.Store) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, s.Dump(t.Context(), &b))
	return b.String()
}

func rows(t *testing.T, s *store.Store, table string) int {
	t.Helper()
	n, err := s.CountRows(t.Context(), table)
	require.NoError(t, err)
	return n
}

func state(t *testing.T, s *store.Store, kind catalog.Kind, id int64) store.RowState {
	t.Helper()
	st, err := s.State(t.Context(), kind, id)
	require.NoError(t, err)
	return st
}
