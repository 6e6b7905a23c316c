package store

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing with a fixed
// clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// countRows fails the test if the count query fails.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	n, err := s.CountRows(t.Context(), table)
	if err != nil {
		t.Fatalf("CountRows(%s) failed: %v", table, err)
	}
	return n
}

// testRef builds a reference with a resource URI in the provider's shape.
func testRef(kind catalog.Kind, id int64, name string) catalog.Ref {
	return catalog.Ref{
		Kind:        kind,
		ID:          id,
		Name:        name,
		ResourceURI: "http://gateway.marvel.com/v1/public/" + kind.Endpoint() + "/" + strconv.FormatInt(id, 10),
	}
}

// mustStub inserts a stub and fails the test on error.
func mustStub(t *testing.T, s *Store, ref catalog.Ref) {
	t.Helper()
	if _, err := s.InsertStub(t.Context(), ref); err != nil {
		t.Fatalf("InsertStub(%s %d) failed: %v", ref.Kind, ref.ID, err)
	}
}
